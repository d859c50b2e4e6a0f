package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/db/postgres"
)

const entityWorld = "мир"

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает текущую запись или NotFoundError.
func (r *Repository) Get(ctx context.Context) (*Info, error) {
	var i Info
	err := r.db.QueryRow(ctx, `
		SELECT world, owner, bot, updated_by, updated_at FROM world_info WHERE id = 1
	`).Scan(&i.World, &i.Owner, &i.Bot, &i.UpdatedBy, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound(entityWorld, "")
		}
		return nil, common.Persistence("get world", err)
	}
	return &i, nil
}

// Replace заменяет запись целиком и возвращает прежнюю (nil, если её не было).
// Те же значения → ConflictError, запись не трогается.
func (r *Repository) Replace(ctx context.Context, next Info) (*Info, error) {
	var prev *Info
	err := postgres.WithTx(ctx, r.db, "set world", func(tx pgx.Tx) error {
		var cur Info
		err := tx.QueryRow(ctx, `
			SELECT world, owner, bot, updated_by, updated_at FROM world_info WHERE id = 1 FOR UPDATE
		`).Scan(&cur.World, &cur.Owner, &cur.Bot, &cur.UpdatedBy, &cur.UpdatedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("ошибка чтения мира: %w", err)
		default:
			if cur.Same(next) {
				return &common.ConflictError{Entity: entityWorld, Key: cur.World, Reason: "уже установлен с этими значениями"}
			}
			prev = &cur
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO world_info (id, world, owner, bot, updated_by, updated_at)
			VALUES (1, $1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE
			SET world = EXCLUDED.world,
			    owner = EXCLUDED.owner,
			    bot = EXCLUDED.bot,
			    updated_by = EXCLUDED.updated_by,
			    updated_at = NOW()
		`, next.World, next.Owner, next.Bot, next.UpdatedBy)
		if err != nil {
			return fmt.Errorf("ошибка записи мира: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}
