// Package ledger — repository.go работает с таблицами users и transaction_log.
// Изменение баланса и запись в журнал всегда идут одной транзакцией,
// строка пользователя блокируется FOR UPDATE до конца транзакции.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/db/postgres"
)

const entityUser = "пользователь"

// Repository работает с балансами и журналом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий балансов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Apply применяет изменения валют по очереди в одной транзакции.
// На каждое изменение пишется своя запись журнала со снимками до и после.
// Если хоть одна валюта ушла бы в минус — InsufficientBalanceError,
// и не меняется ничего.
func (r *Repository) Apply(ctx context.Context, growID, actor string, changes []Change) (Result, error) {
	res := Result{GrowID: growID}
	err := postgres.WithTx(ctx, r.db, "apply balance", func(tx pgx.Tx) error {
		old, err := lockUser(ctx, tx, growID)
		if err != nil {
			return err
		}
		res.Old = old

		cur := old
		for _, ch := range changes {
			next := cur.Get(ch.Currency) + ch.Delta
			if next < 0 {
				return &common.InsufficientBalanceError{
					GrowID:   growID,
					Currency: string(ch.Currency),
					Balance:  cur.Get(ch.Currency),
					Amount:   -ch.Delta,
				}
			}
			after := cur.With(ch.Currency, next)

			typ, amount := EntryAdminAdd, ch.Delta
			if ch.Delta < 0 {
				typ, amount = EntryAdminRemove, -ch.Delta
			}
			currency := string(ch.Currency)
			if err := insertEntry(ctx, tx, growID, amount, &currency, typ, ch.Details, actor, cur, after); err != nil {
				return err
			}
			cur = after
		}

		if err := writeBalance(ctx, tx, growID, cur); err != nil {
			return err
		}
		res.New = cur
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Set перезаписывает все три баланса и пишет одну запись ADMIN_SET.
func (r *Repository) Set(ctx context.Context, growID, actor, details string, target Snapshot) (Result, error) {
	res := Result{GrowID: growID}
	err := postgres.WithTx(ctx, r.db, "set balance", func(tx pgx.Tx) error {
		old, err := lockUser(ctx, tx, growID)
		if err != nil {
			return err
		}
		if err := writeBalance(ctx, tx, growID, target); err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, growID, 0, nil, EntryAdminSet, details, actor, old, target); err != nil {
			return err
		}
		res.Old, res.New = old, target
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Get возвращает баланс. Пользователя нет → NotFoundError.
func (r *Repository) Get(ctx context.Context, growID string) (Snapshot, error) {
	var s Snapshot
	err := postgres.WithReadTx(ctx, r.db, "get balance", func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT balance_wl, balance_dl, balance_bgl FROM users WHERE growid = $1
		`, growID).Scan(&s.WL, &s.DL, &s.BGL)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFound(entityUser, growID)
		}
		return err
	})
	return s, err
}

// History возвращает последние limit записей журнала, новые сверху.
func (r *Repository) History(ctx context.Context, growID string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, growid, amount, currency, type, details, actor, old_balance, new_balance, timestamp
		FROM transaction_log
		WHERE growid = $1
		ORDER BY id DESC
		LIMIT $2
	`, growID, limit)
	if err != nil {
		return nil, common.Persistence("balance history", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			currency *string
			typ      string
		)
		if err := rows.Scan(
			&e.ID, &e.GrowID, &e.Amount, &currency, &typ, &e.Details, &e.Actor,
			&e.Old, &e.New, &e.Timestamp,
		); err != nil {
			return nil, common.Persistence("scan entry", err)
		}
		e.Type = EntryType(typ)
		if currency != nil {
			c := Currency(*currency)
			e.Currency = &c
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("balance history", err)
	}
	return out, nil
}

// lockUser создаёт пользователя с нулевыми балансами, если его ещё нет,
// и блокирует строку до конца транзакции.
func lockUser(ctx context.Context, tx pgx.Tx, growID string) (Snapshot, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (growid) VALUES ($1) ON CONFLICT (growid) DO NOTHING
	`, growID); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	var s Snapshot
	err := tx.QueryRow(ctx, `
		SELECT balance_wl, balance_dl, balance_bgl FROM users WHERE growid = $1 FOR UPDATE
	`, growID).Scan(&s.WL, &s.DL, &s.BGL)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка блокировки баланса: %w", err)
	}
	return s, nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, growID string, s Snapshot) error {
	_, err := tx.Exec(ctx, `
		UPDATE users
		SET balance_wl = $2, balance_dl = $3, balance_bgl = $4, updated_at = NOW()
		WHERE growid = $1
	`, growID, s.WL, s.DL, s.BGL)
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return common.Invalid("balance", "баланс не может быть отрицательным")
		}
		return fmt.Errorf("ошибка обновления баланса: %w", err)
	}
	return nil
}

func insertEntry(
	ctx context.Context, tx pgx.Tx,
	growID string, amount int64, currency *string, typ EntryType,
	details, actor string, before, after Snapshot,
) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transaction_log (growid, amount, currency, type, details, actor, old_balance, new_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, growID, amount, currency, string(typ), details, actor, before, after)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}
