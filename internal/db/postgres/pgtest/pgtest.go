// Package pgtest поднимает одноразовый PostgreSQL в контейнере для
// интеграционных тестов репозиториев. Схема накатывается теми же
// миграциями, что и в проде.
package pgtest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fdygg/DC-store/internal/db/postgres"
)

// Image — версия PostgreSQL, на которой гоняются тесты.
const Image = "postgres:16-alpine"

// DB — запущенный контейнер и пул к нему.
type DB struct {
	Pool      *pgxpool.Pool
	container *tcpostgres.PostgresContainer
}

// Start запускает контейнер, открывает пул и применяет миграции.
// Вызывается один раз из TestMain пакета.
func Start(ctx context.Context) (*DB, error) {
	container, err := tcpostgres.Run(ctx,
		Image,
		tcpostgres.WithDatabase("dc_store"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("запуск контейнера: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("строка подключения: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("миграции: %w", err)
	}

	return &DB{Pool: pool, container: container}, nil
}

// Reset очищает все таблицы магазина между тестами.
// transaction_log защищён триггером от DELETE, поэтому только TRUNCATE.
func (d *DB) Reset(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `
		TRUNCATE product_stock, products, transaction_log, users, world_info,
		         members, admin_sessions, admin_login_attempts
		RESTART IDENTITY CASCADE
	`)
	return err
}

// Close закрывает пул и останавливает контейнер.
func (d *DB) Close(ctx context.Context) {
	d.Pool.Close()
	_ = d.container.Terminate(ctx)
}
