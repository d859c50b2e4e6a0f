// Package admin — права администраторов магазина: список ADMIN_IDS и,
// если задан ADMIN_PASSWORD_HASH, вход по паролю с сессией.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// Session — активная сессия администратора.
type Session struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	IsActive        bool      `db:"is_active"`
}

// Защита от перебора: MaxFailedAttempts неудачных попыток за
// AttemptWindow блокируют вход до конца окна.
const (
	MaxFailedAttempts = 3
	AttemptWindow     = time.Hour
)
