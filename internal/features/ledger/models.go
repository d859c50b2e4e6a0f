// Package ledger — учёт балансов покупателей в трёх независимых валютах
// (WL, DL, BGL) с журналом всех изменений.
// models.go описывает структуры таблиц users и transaction_log.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/fdygg/DC-store/internal/common"
)

// Currency — валюта баланса. Конвертации между валютами нет.
type Currency string

const (
	WL  Currency = "WL"
	DL  Currency = "DL"
	BGL Currency = "BGL"
)

// Currencies — все валюты в порядке отображения.
var Currencies = []Currency{WL, DL, BGL}

// ParseCurrency разбирает код валюты без учёта регистра.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case WL, DL, BGL:
		return c, nil
	}
	return "", common.Invalid("currency", fmt.Sprintf("неизвестная валюта %q, допустимы WL, DL, BGL", s))
}

// Snapshot — все три баланса пользователя на один момент.
// Хранится в журнале как JSONB.
type Snapshot struct {
	WL  int64 `json:"wl"`
	DL  int64 `json:"dl"`
	BGL int64 `json:"bgl"`
}

// Get возвращает баланс в валюте c.
func (s Snapshot) Get(c Currency) int64 {
	switch c {
	case DL:
		return s.DL
	case BGL:
		return s.BGL
	default:
		return s.WL
	}
}

// With возвращает копию снимка с новым значением валюты c.
func (s Snapshot) With(c Currency, v int64) Snapshot {
	switch c {
	case DL:
		s.DL = v
	case BGL:
		s.BGL = v
	default:
		s.WL = v
	}
	return s
}

// IsZero — все три баланса нулевые.
func (s Snapshot) IsZero() bool {
	return s.WL == 0 && s.DL == 0 && s.BGL == 0
}

func (s Snapshot) String() string {
	return fmt.Sprintf("WL: %d, DL: %d, BGL: %d", s.WL, s.DL, s.BGL)
}

// EntryType — вид записи журнала.
type EntryType string

const (
	EntryAdminAdd    EntryType = "ADMIN_ADD"
	EntryAdminRemove EntryType = "ADMIN_REMOVE"
	EntryAdminSet    EntryType = "ADMIN_SET"
)

// Entry — запись журнала transaction_log. Только добавляется,
// никогда не меняется и не удаляется.
type Entry struct {
	ID        int64     `db:"id"`
	GrowID    string    `db:"growid"`
	Amount    int64     `db:"amount"`   // модуль изменения, для ADMIN_SET всегда 0
	Currency  *Currency `db:"currency"` // nil для ADMIN_SET
	Type      EntryType `db:"type"`
	Details   string    `db:"details"`
	Actor     string    `db:"actor"`
	Old       Snapshot  `db:"old_balance"`
	New       Snapshot  `db:"new_balance"`
	Timestamp time.Time `db:"timestamp"`
}

// Change — изменение одной валюты. Delta > 0 — начисление, < 0 — списание.
type Change struct {
	Currency Currency
	Delta    int64
	Details  string
}

// Result — баланс до и после операции.
type Result struct {
	GrowID string
	Old    Snapshot
	New    Snapshot
}
