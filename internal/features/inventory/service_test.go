package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdygg/DC-store/internal/common"
)

// memStore — Store в памяти с теми же правилами, что и у Postgres.
type memStore struct {
	mu       sync.Mutex
	products map[string]*Product
	items    []StockItem
	nextID   int64
	calls    int
}

func newMemStore() *memStore {
	return &memStore{products: make(map[string]*Product)}
}

func (m *memStore) CreateProduct(_ context.Context, p NewProduct) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.products[p.Code]; ok {
		return nil, &common.ConflictError{Entity: entityProduct, Key: p.Code, Reason: "уже существует"}
	}
	out := &Product{Code: p.Code, Name: p.Name, Price: p.Price, Description: p.Description}
	m.products[p.Code] = out
	cp := *out
	return &cp, nil
}

func (m *memStore) GetProduct(_ context.Context, code string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return nil, common.NotFound(entityProduct, code)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProducts(context.Context) ([]*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Product
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) AddStock(_ context.Context, b StockBatch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.products[b.ProductCode]
	if !ok {
		return 0, common.NotFound(entityProduct, b.ProductCode)
	}
	for _, line := range b.Lines {
		m.nextID++
		m.items = append(m.items, StockItem{
			ID: m.nextID, ProductCode: b.ProductCode, Content: line,
			AddedBy: b.Actor, SourceFile: b.Source,
		})
	}
	p.StockCount += len(b.Lines)
	return len(b.Lines), nil
}

func (m *memStore) Allocate(_ context.Context, code string, count int, recipient string) ([]StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.products[code]
	if !ok {
		return nil, common.NotFound(entityProduct, code)
	}
	var idx []int
	for i := range m.items {
		if m.items[i].ProductCode == code && !m.items[i].Used && len(idx) < count {
			idx = append(idx, i)
		}
	}
	if len(idx) < count {
		return nil, &common.InsufficientStockError{ProductCode: code, Requested: count, Available: len(idx)}
	}
	out := make([]StockItem, 0, count)
	for _, i := range idx {
		m.items[i].Used = true
		m.items[i].UsedBy = &recipient
		out = append(out, m.items[i])
	}
	p.StockCount -= count
	return out, nil
}

func (m *memStore) DeleteProduct(_ context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[code]; !ok {
		return 0, common.NotFound(entityProduct, code)
	}
	delete(m.products, code)
	kept := m.items[:0]
	var removed int64
	for _, it := range m.items {
		if it.ProductCode == code {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
	return removed, nil
}

func (m *memStore) UpdatePrice(_ context.Context, code string, price int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return 0, common.NotFound(entityProduct, code)
	}
	old := p.Price
	p.Price = price
	return old, nil
}

func (m *memStore) UpdateDescription(_ context.Context, code, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return common.NotFound(entityProduct, code)
	}
	p.Description = description
	return nil
}

func (m *memStore) StockReport(_ context.Context, code string) (*StockReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return nil, common.NotFound(entityProduct, code)
	}
	rep := &StockReport{Product: *p}
	for _, it := range m.items {
		if it.ProductCode != code {
			continue
		}
		rep.Total++
		if it.Used {
			rep.Used++
		} else {
			rep.Available++
		}
	}
	return rep, nil
}

func (m *memStore) Reconcile(_ context.Context, code string) (Drift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return Drift{}, common.NotFound(entityProduct, code)
	}
	d := Drift{ProductCode: code, Cached: p.StockCount}
	for _, it := range m.items {
		if it.ProductCode == code && !it.Used {
			d.Actual++
		}
	}
	p.StockCount = d.Actual
	return d, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store), store
}

func TestAddProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	tests := []struct {
		name  string
		input NewProduct
		field string
	}{
		{"negative price", NewProduct{Code: "SWD", Name: "Sword", Price: -1}, "price"},
		{"empty code", NewProduct{Code: "  ", Name: "Sword", Price: 1}, "code"},
		{"code with space", NewProduct{Code: "S W", Name: "Sword", Price: 1}, "code"},
		{"empty name", NewProduct{Code: "SWD", Name: "", Price: 1}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddProduct(ctx, tt.input)
			require.ErrorIs(t, err, common.ErrValidation)

			var vErr *common.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
	assert.Zero(t, store.calls, "невалидный ввод не должен доходить до хранилища")
}

func TestAddProductDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, err := svc.AddProduct(ctx, NewProduct{Code: " SWD ", Name: "Sword", Price: 100})
	require.NoError(t, err)
	assert.Equal(t, "SWD", p.Code)
	assert.Zero(t, p.StockCount)

	_, err = svc.AddProduct(ctx, NewProduct{Code: "SWD", Name: "Other", Price: 5})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestAddStockDiscardsBlankLines(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_, err := svc.AddProduct(ctx, NewProduct{Code: "SWD", Name: "Sword", Price: 100})
	require.NoError(t, err)

	n, err := svc.AddStock(ctx, StockBatch{
		ProductCode: "SWD",
		Lines:       []string{"a", "", "  ", " b ", "c\r"},
		Actor:       "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, store.items, 3)
	assert.Equal(t, "b", store.items[1].Content)
	assert.Equal(t, "message", store.items[0].SourceFile)
}

func TestAddStockErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddStock(ctx, StockBatch{ProductCode: "NOPE", Lines: []string{"x"}})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.AddProduct(ctx, NewProduct{Code: "SWD", Name: "Sword"})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, StockBatch{ProductCode: "SWD", Lines: []string{"", " "}})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAllocateScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddProduct(ctx, NewProduct{Code: "SWD", Name: "Sword", Price: 100})
	require.NoError(t, err)
	n, err := svc.AddStock(ctx, StockBatch{ProductCode: "SWD", Lines: []string{"a", "b", "c"}, Actor: "admin"})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	got, err := svc.Allocate(ctx, "SWD", 2, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = svc.Allocate(ctx, "SWD", 2, "carl")
	require.ErrorIs(t, err, common.ErrInsufficientStock)
	var sErr *common.InsufficientStockError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, 1, sErr.Available)

	rep, err := svc.CheckStock(ctx, "SWD")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Product.StockCount)
	assert.Equal(t, 1, rep.Available)
	assert.Equal(t, 2, rep.Used)
	assert.Equal(t, 3, rep.Total)

	require.NoError(t, svc.DeleteProduct(ctx, "SWD"))
	_, err = svc.CheckStock(ctx, "SWD")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	for _, count := range []int{0, -3} {
		_, err := svc.Allocate(ctx, "SWD", count, "bob")
		assert.ErrorIs(t, err, common.ErrValidation)
	}
	_, err := svc.Allocate(ctx, "SWD", 1, " ")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, store.calls)
}

func TestChangePriceAndDescription(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_, err := svc.AddProduct(ctx, NewProduct{Code: "SWD", Name: "Sword", Price: 100})
	require.NoError(t, err)

	old, err := svc.ChangePrice(ctx, "SWD", 150)
	require.NoError(t, err)
	assert.EqualValues(t, 100, old)
	assert.EqualValues(t, 150, store.products["SWD"].Price)

	_, err = svc.ChangePrice(ctx, "SWD", -5)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.ChangePrice(ctx, "NOPE", 5)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, svc.SetDescription(ctx, "SWD", "  острый  "))
	assert.Equal(t, "острый", store.products["SWD"].Description)
	assert.ErrorIs(t, svc.SetDescription(ctx, "NOPE", "x"), common.ErrNotFound)
}

func TestReconcileAllRepairsDrift(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	for _, code := range []string{"AAA", "BBB"} {
		_, err := svc.AddProduct(ctx, NewProduct{Code: code, Name: code})
		require.NoError(t, err)
		_, err = svc.AddStock(ctx, StockBatch{ProductCode: code, Lines: []string{"x", "y"}})
		require.NoError(t, err)
	}
	store.products["BBB"].StockCount = 7

	drifts, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, Drift{ProductCode: "BBB", Cached: 7, Actual: 2}, drifts[0])
	assert.Equal(t, 2, store.products["BBB"].StockCount)
}
