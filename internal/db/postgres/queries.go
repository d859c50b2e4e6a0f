// Package postgres — queries.go содержит scoped-транзакции, через которые
// проходит каждая изменяющая операция магазина.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fdygg/DC-store/internal/common"
)

// TxBeginner — то, из чего можно начать транзакцию (*pgxpool.Pool, pgx.Conn).
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// WithTx выполняет fn в одной read-write транзакции.
// Ошибка fn (или паника) откатывает всё, что fn успела записать;
// при успехе транзакция фиксируется ровно один раз. Соединение
// возвращается в пул на любом пути выхода.
//
// Ошибки драйвера оборачиваются в common.PersistenceError, доменные
// ошибки из fn возвращаются без изменений.
func WithTx(ctx context.Context, db TxBeginner, op string, fn func(tx pgx.Tx) error) error {
	return run(ctx, db, pgx.TxOptions{}, op, fn)
}

// WithReadTx выполняет fn в read-only транзакции REPEATABLE READ:
// все запросы внутри видят один и тот же снимок данных.
func WithReadTx(ctx context.Context, db TxBeginner, op string, fn func(tx pgx.Tx) error) error {
	return run(ctx, db, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, op, fn)
}

func run(ctx context.Context, db TxBeginner, opts pgx.TxOptions, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return common.Persistence(op, fmt.Errorf("ошибка начала транзакции: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			// Rollback после неудачного Commit безопасен и вернёт ErrTxClosed
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return common.Persistence(op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return common.Persistence(op, fmt.Errorf("ошибка фиксации транзакции: %w", err))
	}
	return nil
}
