// Package inventory — движок выдачи товара: продукты, склад одноразовых
// единиц и атомарное списание со склада.
// models.go описывает структуры таблиц products и product_stock.
package inventory

import "time"

// Product — товар магазина.
// StockCount — кеш числа неиспользованных единиц на складе, меняется
// только в той же транзакции, что и сами единицы.
type Product struct {
	Code        string    `db:"code"`        // уникальный код товара (SWD, DLK, ...)
	Name        string    `db:"name"`        // отображаемое имя
	Price       int64     `db:"price"`       // цена в WL, >= 0
	StockCount  int       `db:"stock_count"` // сколько единиц можно выдать
	Description string    `db:"description"` // описание (может быть пустым)
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// StockItem — одна единица товара (например, данные аккаунта).
// Content не интерпретируется: что загрузили, то и выдаём.
type StockItem struct {
	ID          int64      `db:"id"` // порядок добавления, по нему идёт FIFO
	ProductCode string     `db:"product_code"`
	Content     string     `db:"content"`
	Used        bool       `db:"used"`    // false → true ровно один раз
	UsedBy      *string    `db:"used_by"` // кому выдано, nil пока не выдано
	UsedAt      *time.Time `db:"used_at"`
	AddedBy     string     `db:"added_by"`
	AddedAt     time.Time  `db:"added_at"`
	SourceFile  string     `db:"source_file"` // имя файла или "message"
}

// StockReport — сводка по складу одного товара для checkStock.
type StockReport struct {
	Product   Product
	Available int
	Used      int
	Total     int
	LastAdded *time.Time // nil, если на склад ещё ничего не добавляли
	LastUsed  *time.Time // nil, если ещё ничего не выдавали
}

// Drift — расхождение кеша stock_count с реальным количеством.
type Drift struct {
	ProductCode string
	Cached      int
	Actual      int
}

// NewProduct — входные данные для AddProduct.
type NewProduct struct {
	Code        string
	Name        string
	Price       int64
	Description string
}

// StockBatch — партия строк для пополнения склада.
type StockBatch struct {
	ProductCode string
	Lines       []string
	Actor       string // кто загрузил
	Source      string // откуда: имя файла или "message"
}
