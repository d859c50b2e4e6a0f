// Package world хранит сведения о мире, где сейчас работает магазин:
// название мира, владелец и имя бота. Запись всегда одна.
package world

import "time"

// Info — строка world_info (id = 1).
type Info struct {
	World     string    `db:"world"`
	Owner     string    `db:"owner"`
	Bot       string    `db:"bot"`
	UpdatedBy string    `db:"updated_by"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Same — совпадают ли значимые поля.
func (i Info) Same(o Info) bool {
	return i.World == o.World && i.Owner == o.Owner && i.Bot == o.Bot
}
