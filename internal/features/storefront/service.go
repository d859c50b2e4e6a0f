// Package storefront — фасад магазина: именованные операции, которые
// вызывают команды бота. Сам фасад своих инвариантов не держит, всё
// атомарное делают inventory и ledger.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/features/inventory"
	"github.com/fdygg/DC-store/internal/features/ledger"
	"github.com/fdygg/DC-store/internal/features/world"
)

// DefaultChunkSize — максимальная длина одного сообщения при выдаче.
const DefaultChunkSize = 1900

// Inventory — движок выдачи товара.
type Inventory interface {
	AddProduct(ctx context.Context, p inventory.NewProduct) (*inventory.Product, error)
	AddStock(ctx context.Context, b inventory.StockBatch) (int, error)
	Allocate(ctx context.Context, code string, count int, recipient string) ([]string, error)
	DeleteProduct(ctx context.Context, code string) error
	ChangePrice(ctx context.Context, code string, price int64) (int64, error)
	SetDescription(ctx context.Context, code, text string) error
	CheckStock(ctx context.Context, code string) (*inventory.StockReport, error)
	ListProducts(ctx context.Context) ([]*inventory.Product, error)
}

// Ledger — книга балансов.
type Ledger interface {
	Credit(ctx context.Context, growID string, amounts ledger.Snapshot, actor string) (ledger.Result, error)
	Debit(ctx context.Context, growID string, amounts ledger.Snapshot, actor string) (ledger.Result, error)
	SetBalance(ctx context.Context, growID string, target ledger.Snapshot, actor string) (ledger.Result, error)
	GetBalance(ctx context.Context, growID string) (ledger.Snapshot, error)
	History(ctx context.Context, growID string, limit int) ([]ledger.Entry, error)
}

// Worlds — сведения о мире для покупателей.
type Worlds interface {
	SetWorld(ctx context.Context, world, owner, bot, actor string) (*world.Info, error)
	GetWorld(ctx context.Context) (*world.Info, error)
}

// Deliverer отправляет текст пользователю в личку. Если пользователь
// закрыл личные сообщения, возвращает ошибку вида common.ErrDeliveryForbidden.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// Recipient — кому выдаётся товар.
type Recipient struct {
	ChatID int64  // куда доставлять
	Label  string // что записать в used_by
}

// SendResult — итог выдачи товара.
type SendResult struct {
	ProductCode string
	Recipient   Recipient
	Items       []string
	Chunks      int  // сколько сообщений ушло получателю
	Delivered   bool // false — товар списан, но доставить не вышло
}

// Service — фасад магазина.
type Service struct {
	inventory Inventory
	ledger    Ledger
	worlds    Worlds
	deliverer Deliverer
	chunkSize int
}

// NewService собирает фасад. chunkSize <= 0 — DefaultChunkSize.
func NewService(inv Inventory, led Ledger, worlds Worlds, deliverer Deliverer, chunkSize int) *Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Service{
		inventory: inv,
		ledger:    led,
		worlds:    worlds,
		deliverer: deliverer,
		chunkSize: chunkSize,
	}
}

// AddProduct — addProduct.
func (s *Service) AddProduct(ctx context.Context, p inventory.NewProduct) (*inventory.Product, error) {
	return s.inventory.AddProduct(ctx, p)
}

// AddStock — addStock.
func (s *Service) AddStock(ctx context.Context, b inventory.StockBatch) (int, error) {
	return s.inventory.AddStock(ctx, b)
}

// DeleteProduct — deleteProduct.
func (s *Service) DeleteProduct(ctx context.Context, code string) error {
	return s.inventory.DeleteProduct(ctx, code)
}

// ChangePrice — changePrice, возвращает прежнюю цену.
func (s *Service) ChangePrice(ctx context.Context, code string, price int64) (int64, error) {
	return s.inventory.ChangePrice(ctx, code, price)
}

// SetDescription — setDescription.
func (s *Service) SetDescription(ctx context.Context, code, text string) error {
	return s.inventory.SetDescription(ctx, code, text)
}

// CheckStock — checkStock.
func (s *Service) CheckStock(ctx context.Context, code string) (*inventory.StockReport, error) {
	return s.inventory.CheckStock(ctx, code)
}

// Products — каталог для покупателей.
func (s *Service) Products(ctx context.Context) ([]*inventory.Product, error) {
	return s.inventory.ListProducts(ctx)
}

// AddBal — addBal: начисление в одной или нескольких валютах.
func (s *Service) AddBal(ctx context.Context, growID string, amounts ledger.Snapshot, actor string) (ledger.Result, error) {
	return s.ledger.Credit(ctx, growID, amounts, actor)
}

// ReduceBal — reduceBal: списание, всё или ничего.
func (s *Service) ReduceBal(ctx context.Context, growID string, amounts ledger.Snapshot, actor string) (ledger.Result, error) {
	return s.ledger.Debit(ctx, growID, amounts, actor)
}

// SetBalance — setBalance.
func (s *Service) SetBalance(ctx context.Context, growID string, target ledger.Snapshot, actor string) (ledger.Result, error) {
	return s.ledger.SetBalance(ctx, growID, target, actor)
}

// Balance возвращает баланс по GrowID.
func (s *Service) Balance(ctx context.Context, growID string) (ledger.Snapshot, error) {
	return s.ledger.GetBalance(ctx, growID)
}

// History возвращает последние записи журнала по GrowID.
func (s *Service) History(ctx context.Context, growID string, limit int) ([]ledger.Entry, error) {
	return s.ledger.History(ctx, growID, limit)
}

// SetWorld — setWorld, возвращает прежние сведения (nil при первой установке).
func (s *Service) SetWorld(ctx context.Context, worldName, owner, bot, actor string) (*world.Info, error) {
	return s.worlds.SetWorld(ctx, worldName, owner, bot, actor)
}

// World возвращает текущие сведения о мире.
func (s *Service) World(ctx context.Context) (*world.Info, error) {
	return s.worlds.GetWorld(ctx)
}

// Send списывает count единиц товара и доставляет их получателю в личку.
// Длинный список режется на части не длиннее chunkSize, части уходят по
// порядку. Если получатель закрыл личку, списание не откатывается:
// возвращается результат с Items и Delivered=false вместе с ошибкой
// вида common.ErrDeliveryForbidden.
func (s *Service) Send(ctx context.Context, code string, count int, to Recipient) (*SendResult, error) {
	if to.ChatID == 0 {
		return nil, common.Invalid("recipient", "получатель не указан")
	}
	if strings.TrimSpace(to.Label) == "" {
		to.Label = fmt.Sprintf("id%d", to.ChatID)
	}

	items, err := s.inventory.Allocate(ctx, code, count, to.Label)
	if err != nil {
		return nil, err
	}

	res := &SendResult{
		ProductCode: strings.TrimSpace(code),
		Recipient:   to,
		Items:       items,
	}

	sent, err := s.deliverChunks(ctx, to.ChatID, DeliveryText(res.ProductCode, items))
	res.Chunks = sent
	if err != nil {
		logger := log.WithFields(log.Fields{
			"code":      res.ProductCode,
			"recipient": to.Label,
			"count":     len(items),
			"delivered": sent,
		})
		if errors.Is(err, common.ErrDeliveryForbidden) {
			logger.Warn("Получатель закрыл личку, товар списан без доставки")
		} else {
			logger.WithError(err).Error("Ошибка доставки товара")
		}
		return res, fmt.Errorf("доставка %s: %w", to.Label, err)
	}
	res.Delivered = true

	log.WithFields(log.Fields{
		"code":      res.ProductCode,
		"recipient": to.Label,
		"count":     len(items),
		"chunks":    res.Chunks,
	}).Info("Товар доставлен")
	return res, nil
}

// DeliverAll отправляет text в chatID частями не длиннее chunkSize.
func (s *Service) DeliverAll(ctx context.Context, chatID int64, text string) error {
	_, err := s.deliverChunks(ctx, chatID, text)
	return err
}

func (s *Service) deliverChunks(ctx context.Context, chatID int64, text string) (int, error) {
	sent := 0
	for _, chunk := range common.SplitMessage(text, s.chunkSize) {
		if err := s.deliverer.Deliver(ctx, chatID, chunk); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// DeliveryText — сообщение получателю со списком выданных единиц.
func DeliveryText(code string, items []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎁 Вы получили %s товара %s:\n\n", common.FormatItems(int64(len(items))), code)
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return sb.String()
}
