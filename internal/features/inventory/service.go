// Package inventory — service.go содержит правила движка выдачи: проверку
// входных данных, нормализацию строк склада и логирование операций.
// Атомарность и блокировки обеспечивает Store.
package inventory

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
)

// Store — хранилище товаров и склада. Реализуется *Repository.
type Store interface {
	CreateProduct(ctx context.Context, p NewProduct) (*Product, error)
	GetProduct(ctx context.Context, code string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	AddStock(ctx context.Context, b StockBatch) (int, error)
	Allocate(ctx context.Context, code string, count int, recipient string) ([]StockItem, error)
	DeleteProduct(ctx context.Context, code string) (int64, error)
	UpdatePrice(ctx context.Context, code string, price int64) (int64, error)
	UpdateDescription(ctx context.Context, code, description string) error
	StockReport(ctx context.Context, code string) (*StockReport, error)
	Reconcile(ctx context.Context, code string) (Drift, error)
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

var codeRules = []validation.Rule{
	validation.Required.Error("код товара не указан"),
	validation.Length(1, 64).Error("код товара длиннее 64 символов"),
	validation.Match(codePattern).Error("код товара: только латиница, цифры, _ и -"),
}

// Service — движок выдачи товара.
type Service struct {
	store Store
}

// NewService создаёт сервис склада.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddProduct создаёт товар с пустым складом.
func (s *Service) AddProduct(ctx context.Context, p NewProduct) (*Product, error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)

	if err := common.CheckAll(
		common.Check("code", p.Code, codeRules...),
		common.Check("name", p.Name,
			validation.Required.Error("название не указано"),
			validation.RuneLength(1, 255).Error("название длиннее 255 символов"),
		),
		common.Check("price", p.Price, validation.Min(0).Error("цена не может быть отрицательной")),
	); err != nil {
		return nil, err
	}

	product, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"code":  product.Code,
		"price": product.Price,
	}).Info("Товар добавлен")
	return product, nil
}

// AddStock пополняет склад. Пустые строки отбрасываются, остальные
// обрезаются по краям; одна строка — одна единица товара.
func (s *Service) AddStock(ctx context.Context, b StockBatch) (int, error) {
	b.ProductCode = strings.TrimSpace(b.ProductCode)
	b.Lines = common.NonBlankLines(b.Lines)
	if b.Source == "" {
		b.Source = "message"
	}

	if err := common.Check("code", b.ProductCode, codeRules...); err != nil {
		return 0, err
	}
	if len(b.Lines) == 0 {
		return 0, common.Invalid("lines", "нет ни одной непустой строки")
	}

	n, err := s.store.AddStock(ctx, b)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"code":   b.ProductCode,
		"count":  n,
		"actor":  b.Actor,
		"source": b.Source,
	}).Info("Склад пополнен")
	return n, nil
}

// Allocate списывает count единиц в пользу recipient и возвращает их
// содержимое в порядке добавления на склад.
func (s *Service) Allocate(ctx context.Context, code string, count int, recipient string) ([]string, error) {
	code = strings.TrimSpace(code)
	if err := common.CheckAll(
		common.Check("code", code, codeRules...),
		common.Check("count", count,
			validation.Required.Error("количество должно быть больше нуля"),
			validation.Min(1).Error("количество должно быть больше нуля"),
		),
		common.Check("recipient", strings.TrimSpace(recipient), validation.Required.Error("получатель не указан")),
	); err != nil {
		return nil, err
	}

	items, err := s.store.Allocate(ctx, code, count, recipient)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(items))
	for i, it := range items {
		contents[i] = it.Content
	}

	log.WithFields(log.Fields{
		"code":      code,
		"count":     len(contents),
		"recipient": recipient,
	}).Info("Товар выдан")
	return contents, nil
}

// DeleteProduct безвозвратно удаляет товар вместе со складом.
func (s *Service) DeleteProduct(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := common.Check("code", code, codeRules...); err != nil {
		return err
	}

	removed, err := s.store.DeleteProduct(ctx, code)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"code":          code,
		"stock_removed": removed,
	}).Info("Товар удалён")
	return nil
}

// ChangePrice меняет цену, возвращает прежнюю.
func (s *Service) ChangePrice(ctx context.Context, code string, price int64) (int64, error) {
	code = strings.TrimSpace(code)
	if err := common.CheckAll(
		common.Check("code", code, codeRules...),
		common.Check("price", price, validation.Min(0).Error("цена не может быть отрицательной")),
	); err != nil {
		return 0, err
	}

	old, err := s.store.UpdatePrice(ctx, code, price)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"code":      code,
		"old_price": old,
		"new_price": price,
	}).Info("Цена изменена")
	return old, nil
}

// SetDescription заменяет описание товара.
func (s *Service) SetDescription(ctx context.Context, code, text string) error {
	code = strings.TrimSpace(code)
	text = strings.TrimSpace(text)
	if err := common.CheckAll(
		common.Check("code", code, codeRules...),
		common.Check("description", text, validation.RuneLength(0, 1000).Error("описание длиннее 1000 символов")),
	); err != nil {
		return err
	}

	if err := s.store.UpdateDescription(ctx, code, text); err != nil {
		return err
	}
	log.WithField("code", code).Info("Описание обновлено")
	return nil
}

// CheckStock возвращает сводку по складу товара.
func (s *Service) CheckStock(ctx context.Context, code string) (*StockReport, error) {
	code = strings.TrimSpace(code)
	if err := common.Check("code", code, codeRules...); err != nil {
		return nil, err
	}
	return s.store.StockReport(ctx, code)
}

// ListProducts возвращает весь каталог.
func (s *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.store.ListProducts(ctx)
}

// ReconcileAll сверяет stock_count каждого товара с реальным числом
// неиспользованных единиц и чинит расхождения.
// Возвращает только товары, где кеш разошёлся.
func (s *Service) ReconcileAll(ctx context.Context) ([]Drift, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, p := range products {
		d, err := s.store.Reconcile(ctx, p.Code)
		if err != nil {
			// товар могли удалить между ListProducts и Reconcile
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return drifts, err
		}
		if d.Cached != d.Actual {
			log.WithFields(log.Fields{
				"code":   d.ProductCode,
				"cached": d.Cached,
				"actual": d.Actual,
			}).Warn("stock_count разошёлся со складом, исправлено")
			drifts = append(drifts, d)
		}
	}
	return drifts, nil
}
