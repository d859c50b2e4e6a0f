// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/DC-store/internal/common"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
	`, s.UserID, s.SessionToken, s.ExpiresAt)
	return common.Persistence("create session", err)
}

// GetActiveSession возвращает действующую сессию или NotFoundError.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64, now time.Time) (*Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, session_token, authenticated_at, expires_at, is_active
		FROM admin_sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY authenticated_at DESC
		LIMIT 1
	`, userID, now).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt, &s.ExpiresAt, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound("сессия", "")
		}
		return nil, common.Persistence("get session", err)
	}
	return &s, nil
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE
	`, userID)
	if err != nil {
		return 0, common.Persistence("deactivate sessions", err)
	}
	return tag.RowsAffected(), nil
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`, userID, success)
	return common.Persistence("log attempt", err)
}

// CountFailures возвращает число неудачных попыток с момента since.
func (r *Repository) CountFailures(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`, userID, since).Scan(&count)
	if err != nil {
		return 0, common.Persistence("count attempts", err)
	}
	return count, nil
}

// PurgeExpired удаляет истёкшие и закрытые сессии и старые попытки входа.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM admin_sessions WHERE expires_at <= $1 OR is_active = FALSE
	`, now)
	if err != nil {
		return 0, common.Persistence("purge sessions", err)
	}
	if _, err := r.db.Exec(ctx, `
		DELETE FROM admin_login_attempts WHERE attempt_time < $1
	`, now.Add(-24*time.Hour)); err != nil {
		return 0, common.Persistence("purge attempts", err)
	}
	return tag.RowsAffected(), nil
}
