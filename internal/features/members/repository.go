// Package members — repository.go отвечает за все операции с таблицей members в БД.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/DC-store/internal/common"
)

const entityMember = "пользователь Telegram"

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert добавляет пользователя или обновляет имя/username по user_id.
// Один и тот же @username мог перейти к другому аккаунту — у старой
// записи он освобождается.
func (r *Repository) Upsert(ctx context.Context, p Profile) error {
	if p.Username != "" {
		if _, err := r.db.Exec(ctx, `
			UPDATE members SET username = NULL, updated_at = NOW()
			WHERE LOWER(username) = LOWER($1) AND user_id <> $2
		`, p.Username, p.UserID); err != nil {
			return common.Persistence("release username", err)
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO members (user_id, username, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`, p.UserID, p.Username, p.FirstName, p.LastName)
	if err != nil {
		return common.Persistence(fmt.Sprintf("upsert member %d", p.UserID), err)
	}
	return nil
}

// GetByUserID: если не найден — NotFoundError.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return r.getOne(ctx, fmt.Sprint(userID), `WHERE user_id = $1`, userID)
}

// GetByUsername ищет без учёта регистра, username без @.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return r.getOne(ctx, "@"+username, `WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *Repository) getOne(ctx context.Context, key, where string, arg any) (*Member, error) {
	query := `
		SELECT id, user_id, COALESCE(username, ''), first_name, COALESCE(last_name, ''),
		       created_at, updated_at
		FROM members
	` + where
	var m Member
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&m.ID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound(entityMember, key)
		}
		return nil, common.Persistence("get member", err)
	}
	return &m, nil
}
