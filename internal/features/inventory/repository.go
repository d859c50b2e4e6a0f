// Package inventory — repository.go выполняет все SQL-запросы к таблицам
// products и product_stock. Каждая изменяющая операция — одна транзакция
// через postgres.WithTx.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/db/postgres"
)

const entityProduct = "товар"

// Repository работает с товарами и складом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий склада.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateProduct добавляет товар с пустым складом.
// Дубликат кода → ConflictError.
func (r *Repository) CreateProduct(ctx context.Context, p NewProduct) (*Product, error) {
	query := `
		INSERT INTO products (code, name, price, stock_count, description)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING code, name, price, stock_count, description, created_at, updated_at
	`
	var out Product
	err := r.db.QueryRow(ctx, query, p.Code, p.Name, p.Price, p.Description).Scan(
		&out.Code, &out.Name, &out.Price, &out.StockCount, &out.Description,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "products_pkey") {
			return nil, &common.ConflictError{Entity: entityProduct, Key: p.Code, Reason: "уже существует"}
		}
		return nil, common.Persistence("create product", err)
	}
	return &out, nil
}

// GetProduct возвращает товар по коду.
func (r *Repository) GetProduct(ctx context.Context, code string) (*Product, error) {
	query := `
		SELECT code, name, price, stock_count, description, created_at, updated_at
		FROM products
		WHERE code = $1
	`
	var p Product
	err := r.db.QueryRow(ctx, query, code).Scan(
		&p.Code, &p.Name, &p.Price, &p.StockCount, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound(entityProduct, code)
		}
		return nil, common.Persistence("get product", err)
	}
	return &p, nil
}

// ListProducts возвращает все товары, отсортированные по коду.
func (r *Repository) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT code, name, price, stock_count, description, created_at, updated_at
		FROM products
		ORDER BY code
	`)
	if err != nil {
		return nil, common.Persistence("list products", err)
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.Code, &p.Name, &p.Price, &p.StockCount, &p.Description, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, common.Persistence("scan product", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("list products", err)
	}
	return out, nil
}

// AddStock вставляет партию единиц через COPY и увеличивает stock_count
// в одной транзакции. Строка товара блокируется первой, как и при выдаче.
func (r *Repository) AddStock(ctx context.Context, b StockBatch) (int, error) {
	err := postgres.WithTx(ctx, r.db, "add stock", func(tx pgx.Tx) error {
		if _, err := lockProduct(ctx, tx, b.ProductCode); err != nil {
			return err
		}

		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"product_stock"},
			[]string{"product_code", "content", "added_by", "source_file"},
			pgx.CopyFromSlice(len(b.Lines), func(i int) ([]any, error) {
				return []any{b.ProductCode, b.Lines[i], b.Actor, b.Source}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("ошибка вставки единиц: %w", err)
		}
		if int(copied) != len(b.Lines) {
			return fmt.Errorf("вставлено %d из %d единиц", copied, len(b.Lines))
		}

		_, err = tx.Exec(ctx, `
			UPDATE products SET stock_count = stock_count + $2, updated_at = NOW()
			WHERE code = $1
		`, b.ProductCode, len(b.Lines))
		if err != nil {
			return fmt.Errorf("ошибка обновления счётчика: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(b.Lines), nil
}

// Allocate выдаёт count самых старых неиспользованных единиц получателю.
//
// Порядок блокировок: сначала строка товара (сериализует всех, кто
// выдаёт или пополняет этот товар), затем сами единицы FOR UPDATE.
// Если единиц меньше count — InsufficientStockError, ничего не меняется.
func (r *Repository) Allocate(ctx context.Context, code string, count int, recipient string) ([]StockItem, error) {
	var items []StockItem
	err := postgres.WithTx(ctx, r.db, "allocate stock", func(tx pgx.Tx) error {
		if _, err := lockProduct(ctx, tx, code); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT id, content, added_by, added_at, source_file
			FROM product_stock
			WHERE product_code = $1 AND NOT used
			ORDER BY id
			LIMIT $2
			FOR UPDATE
		`, code, count)
		if err != nil {
			return fmt.Errorf("ошибка выборки единиц: %w", err)
		}
		items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (StockItem, error) {
			it := StockItem{ProductCode: code}
			err := row.Scan(&it.ID, &it.Content, &it.AddedBy, &it.AddedAt, &it.SourceFile)
			return it, err
		})
		if err != nil {
			return fmt.Errorf("ошибка чтения единиц: %w", err)
		}

		if len(items) < count {
			return &common.InsufficientStockError{ProductCode: code, Requested: count, Available: len(items)}
		}

		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		var usedAt time.Time
		err = tx.QueryRow(ctx, `
			WITH upd AS (
				UPDATE product_stock
				SET used = TRUE, used_by = $2, used_at = NOW()
				WHERE id = ANY($1)
				RETURNING used_at
			)
			SELECT MAX(used_at) FROM upd
		`, ids, recipient).Scan(&usedAt)
		if err != nil {
			return fmt.Errorf("ошибка отметки выдачи: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock_count = stock_count - $2, updated_at = NOW()
			WHERE code = $1
		`, code, count)
		if err != nil {
			return fmt.Errorf("ошибка обновления счётчика: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("товар %s пропал во время выдачи", code)
		}

		for i := range items {
			items[i].Used = true
			items[i].UsedBy = &recipient
			items[i].UsedAt = &usedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteProduct удаляет товар и весь его склад. Возвращает, сколько
// единиц было удалено вместе с товаром.
func (r *Repository) DeleteProduct(ctx context.Context, code string) (int64, error) {
	var removed int64
	err := postgres.WithTx(ctx, r.db, "delete product", func(tx pgx.Tx) error {
		if _, err := lockProduct(ctx, tx, code); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM product_stock WHERE product_code = $1`, code)
		if err != nil {
			return fmt.Errorf("ошибка удаления склада: %w", err)
		}
		removed = tag.RowsAffected()

		if _, err := tx.Exec(ctx, `DELETE FROM products WHERE code = $1`, code); err != nil {
			return fmt.Errorf("ошибка удаления товара: %w", err)
		}
		return nil
	})
	return removed, err
}

// UpdatePrice меняет цену и возвращает старую.
func (r *Repository) UpdatePrice(ctx context.Context, code string, price int64) (int64, error) {
	var old int64
	err := postgres.WithTx(ctx, r.db, "update price", func(tx pgx.Tx) error {
		p, err := lockProduct(ctx, tx, code)
		if err != nil {
			return err
		}
		old = p.Price
		_, err = tx.Exec(ctx, `UPDATE products SET price = $2, updated_at = NOW() WHERE code = $1`, code, price)
		return err
	})
	return old, err
}

// UpdateDescription заменяет описание товара.
func (r *Repository) UpdateDescription(ctx context.Context, code, description string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET description = $2, updated_at = NOW() WHERE code = $1
	`, code, description)
	if err != nil {
		return common.Persistence("update description", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound(entityProduct, code)
	}
	return nil
}

// StockReport собирает статистику склада из одного снимка данных.
func (r *Repository) StockReport(ctx context.Context, code string) (*StockReport, error) {
	var rep StockReport
	err := postgres.WithReadTx(ctx, r.db, "stock report", func(tx pgx.Tx) error {
		p := &rep.Product
		err := tx.QueryRow(ctx, `
			SELECT code, name, price, stock_count, description, created_at, updated_at
			FROM products WHERE code = $1
		`, code).Scan(&p.Code, &p.Name, &p.Price, &p.StockCount, &p.Description, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NotFound(entityProduct, code)
			}
			return err
		}

		return tx.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE NOT used),
				COUNT(*) FILTER (WHERE used),
				COUNT(*),
				MAX(added_at),
				MAX(used_at)
			FROM product_stock
			WHERE product_code = $1
		`, code).Scan(&rep.Available, &rep.Used, &rep.Total, &rep.LastAdded, &rep.LastUsed)
	})
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Reconcile пересчитывает неиспользованные единицы под блокировкой товара
// и чинит stock_count, если он разошёлся с реальностью.
func (r *Repository) Reconcile(ctx context.Context, code string) (Drift, error) {
	d := Drift{ProductCode: code}
	err := postgres.WithTx(ctx, r.db, "reconcile stock", func(tx pgx.Tx) error {
		p, err := lockProduct(ctx, tx, code)
		if err != nil {
			return err
		}
		d.Cached = p.StockCount

		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM product_stock WHERE product_code = $1 AND NOT used
		`, code).Scan(&d.Actual); err != nil {
			return fmt.Errorf("ошибка пересчёта склада: %w", err)
		}
		if d.Actual == d.Cached {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE products SET stock_count = $2, updated_at = NOW() WHERE code = $1
		`, code, d.Actual)
		return err
	})
	return d, err
}

// lockProduct берёт строку товара FOR UPDATE.
func lockProduct(ctx context.Context, tx pgx.Tx, code string) (*Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		SELECT code, name, price, stock_count, description
		FROM products
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&p.Code, &p.Name, &p.Price, &p.StockCount, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound(entityProduct, code)
		}
		return nil, fmt.Errorf("ошибка блокировки товара: %w", err)
	}
	return &p, nil
}
