// Package ledger — service.go содержит правила изменения балансов:
// проверку сумм, текст записей журнала и логирование.
package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
)

// Store — хранилище балансов. Реализуется *Repository.
type Store interface {
	Apply(ctx context.Context, growID, actor string, changes []Change) (Result, error)
	Set(ctx context.Context, growID, actor, details string, target Snapshot) (Result, error)
	Get(ctx context.Context, growID string) (Snapshot, error)
	History(ctx context.Context, growID string, limit int) ([]Entry, error)
}

// MaxHistory — сколько записей журнала можно запросить за раз.
const MaxHistory = 50

var growIDRules = []validation.Rule{
	validation.Required.Error("GrowID не указан"),
	validation.RuneLength(1, 64).Error("GrowID длиннее 64 символов"),
	validation.Match(regexp.MustCompile(`^\S+$`)).Error("GrowID не может содержать пробелы"),
}

// Service — книга балансов.
type Service struct {
	store Store
}

// NewService создаёт сервис балансов.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AdjustBalance меняет одну валюту на delta. Пользователь создаётся
// автоматически; списание ниже нуля отклоняется целиком.
func (s *Service) AdjustBalance(ctx context.Context, growID, currency string, delta int64, reason, actor string) (Result, error) {
	growID = strings.TrimSpace(growID)
	if err := common.Check("growid", growID, growIDRules...); err != nil {
		return Result{}, err
	}
	c, err := ParseCurrency(currency)
	if err != nil {
		return Result{}, err
	}
	if delta == 0 {
		return Result{}, common.Invalid("amount", "сумма должна быть ненулевой")
	}

	res, err := s.store.Apply(ctx, growID, actor, []Change{{
		Currency: c,
		Delta:    delta,
		Details:  details(c, delta, reason, actor),
	}})
	if err != nil {
		return Result{}, err
	}
	logResult("Баланс изменён", res, actor)
	return res, nil
}

// Credit начисляет сразу несколько валют (addBal).
func (s *Service) Credit(ctx context.Context, growID string, amounts Snapshot, actor string) (Result, error) {
	return s.applyAmounts(ctx, growID, amounts, 1, actor)
}

// Debit списывает сразу несколько валют (reduceBal). Если хоть одной
// не хватает, не списывается ничего.
func (s *Service) Debit(ctx context.Context, growID string, amounts Snapshot, actor string) (Result, error) {
	return s.applyAmounts(ctx, growID, amounts, -1, actor)
}

func (s *Service) applyAmounts(ctx context.Context, growID string, amounts Snapshot, sign int64, actor string) (Result, error) {
	growID = strings.TrimSpace(growID)
	if err := common.Check("growid", growID, growIDRules...); err != nil {
		return Result{}, err
	}
	if err := validateAmounts(amounts); err != nil {
		return Result{}, err
	}
	if amounts.IsZero() {
		return Result{}, common.Invalid("amount", "укажите сумму хотя бы в одной валюте")
	}

	var changes []Change
	for _, c := range Currencies {
		if v := amounts.Get(c); v > 0 {
			changes = append(changes, Change{
				Currency: c,
				Delta:    sign * v,
				Details:  details(c, sign*v, "", actor),
			})
		}
	}

	res, err := s.store.Apply(ctx, growID, actor, changes)
	if err != nil {
		return Result{}, err
	}
	logResult("Баланс изменён", res, actor)
	return res, nil
}

// SetBalance перезаписывает все три баланса.
func (s *Service) SetBalance(ctx context.Context, growID string, target Snapshot, actor string) (Result, error) {
	growID = strings.TrimSpace(growID)
	if err := common.Check("growid", growID, growIDRules...); err != nil {
		return Result{}, err
	}
	if err := validateAmounts(target); err != nil {
		return Result{}, err
	}

	res, err := s.store.Set(ctx, growID, actor, fmt.Sprintf("Баланс установлен: %s", actor), target)
	if err != nil {
		return Result{}, err
	}
	logResult("Баланс установлен", res, actor)
	return res, nil
}

// GetBalance возвращает баланс или NotFoundError.
func (s *Service) GetBalance(ctx context.Context, growID string) (Snapshot, error) {
	growID = strings.TrimSpace(growID)
	if err := common.Check("growid", growID, growIDRules...); err != nil {
		return Snapshot{}, err
	}
	return s.store.Get(ctx, growID)
}

// History возвращает последние записи журнала пользователя.
func (s *Service) History(ctx context.Context, growID string, limit int) ([]Entry, error) {
	growID = strings.TrimSpace(growID)
	if err := common.Check("growid", growID, growIDRules...); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	return s.store.History(ctx, growID, limit)
}

func validateAmounts(a Snapshot) error {
	nonNegative := func(c Currency) error {
		return common.Check(strings.ToLower(string(c)), a.Get(c),
			validation.Min(0).Error("сумма не может быть отрицательной"))
	}
	return common.CheckAll(nonNegative(WL), nonNegative(DL), nonNegative(BGL))
}

func details(c Currency, delta int64, reason, actor string) string {
	var text string
	if delta > 0 {
		text = fmt.Sprintf("Начислено %d %s, %s", delta, c, actor)
	} else {
		text = fmt.Sprintf("Списано %d %s, %s", -delta, c, actor)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		text += ": " + reason
	}
	return text
}

func logResult(msg string, res Result, actor string) {
	log.WithFields(log.Fields{
		"growid": res.GrowID,
		"old":    res.Old.String(),
		"new":    res.New.String(),
		"actor":  actor,
	}).Info(msg)
}
