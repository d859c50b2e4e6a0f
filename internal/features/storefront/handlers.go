// Package storefront — handlers.go разбирает аргументы команд магазина,
// вызывает фасад и собирает текст ответа. Ошибки отдаются диспетчеру как
// есть, он же превращает их в сообщение.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/features/inventory"
	"github.com/fdygg/DC-store/internal/features/ledger"
	"github.com/fdygg/DC-store/internal/features/members"
)

// MaxStockFileSize — предел размера .txt со стоком.
const MaxStockFileSize = 1 << 20

// Resolver находит получателя send по @username или ID.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*members.Member, error)
}

// Downloader скачивает вложение Telegram по file_id.
type Downloader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Handler — команды магазина.
type Handler struct {
	service  *Service
	members  Resolver
	files    Downloader
	location *time.Location
}

// NewHandler создаёт обработчик команд магазина. tz — часовой пояс для дат.
func NewHandler(service *Service, resolver Resolver, files Downloader, tz string) *Handler {
	return &Handler{
		service:  service,
		members:  resolver,
		files:    files,
		location: common.LoadLocation(tz),
	}
}

// Commands возвращает команды для реестра.
func (h *Handler) Commands() []command.Spec {
	admin := func(s command.Spec) command.Spec {
		s.Privileged = true
		s.Dedupe = true
		return s
	}
	return []command.Spec{
		admin(command.Spec{Name: "addProduct", Usage: "!addProduct <название> <код> <цена> [описание]", Handler: h.AddProduct}),
		admin(command.Spec{Name: "addStock", Usage: "!addStock <код> + строки ниже или .txt файл", Handler: h.AddStock}),
		admin(command.Spec{Name: "deleteProduct", Usage: "!deleteProduct <код>", Handler: h.DeleteProduct}),
		admin(command.Spec{Name: "addBal", Usage: "!addBal <growid> <wl> [dl] [bgl]", Handler: h.AddBal}),
		admin(command.Spec{Name: "reduceBal", Usage: "!reduceBal <growid> <wl> [dl] [bgl]", Handler: h.ReduceBal}),
		admin(command.Spec{Name: "setBalance", Usage: "!setBalance <growid> <wl> <dl> <bgl>", Handler: h.SetBalance}),
		admin(command.Spec{Name: "changePrice", Usage: "!changePrice <код> <цена>", Handler: h.ChangePrice}),
		admin(command.Spec{Name: "setDescription", Usage: "!setDescription <код> <текст>", Handler: h.SetDescription}),
		admin(command.Spec{Name: "setWorld", Usage: "!setWorld <мир> <владелец> <бот>", Handler: h.SetWorld}),
		admin(command.Spec{Name: "send", Usage: "!send <@user|id> <код> <кол-во> (или ответом: !send <код> <кол-во>)", Handler: h.Send}),
		admin(command.Spec{Name: "checkStock", Usage: "!checkStock <код>", Handler: h.CheckStock}),
		{Name: "balance", Aliases: []string{"bal"}, Usage: "!balance <growid>", Privileged: true, Handler: h.Balance},
		{Name: "history", Usage: "!history <growid> [кол-во]", Privileged: true, Handler: h.History},
		{Name: "products", Aliases: []string{"stock", "товары"}, Usage: "!products", Handler: h.Products},
		{Name: "world", Aliases: []string{"мир"}, Usage: "!world", Handler: h.World},
	}
}

// AddProduct — !addProduct <название> <код> <цена> [описание].
func (h *Handler) AddProduct(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) < 3 {
		return "", command.ErrUsage
	}
	price, err := parseInt("price", req.Args[2])
	if err != nil {
		return "", err
	}
	p, err := h.service.AddProduct(ctx, inventory.NewProduct{
		Name:        req.Args[0],
		Code:        req.Args[1],
		Price:       price,
		Description: req.Tail(3),
	})
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("✅ Товар добавлен\n\nНазвание: %s\nКод: %s\nЦена: %s WL",
		p.Name, p.Code, common.FormatNumber(p.Price))
	if p.Description != "" {
		text += "\nОписание: " + p.Description
	}
	return text, nil
}

// AddStock — !addStock <код>, дальше строки стока в том же сообщении
// или .txt вложением (в этом сообщении или в том, на которое ответили).
func (h *Handler) AddStock(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) < 1 {
		return "", command.ErrUsage
	}
	code := req.Args[0]

	lines, source, err := h.stockLines(ctx, req)
	if err != nil {
		return "", err
	}

	n, err := h.service.AddStock(ctx, inventory.StockBatch{
		ProductCode: code,
		Lines:       lines,
		Actor:       req.Actor(),
		Source:      source,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ На склад %s добавлено %s (источник: %s)",
		strings.TrimSpace(code), common.FormatItems(int64(n)), source), nil
}

func (h *Handler) stockLines(ctx context.Context, req *command.Request) ([]string, string, error) {
	if doc := attachedDocument(req.Message); doc != nil {
		if !strings.EqualFold(path.Ext(doc.FileName), ".txt") {
			return nil, "", common.Invalid("file", "нужен .txt файл")
		}
		if doc.FileSize > MaxStockFileSize {
			return nil, "", common.Invalid("file", "файл больше 1 МБ")
		}
		if h.files == nil {
			return nil, "", fmt.Errorf("загрузка файлов не настроена")
		}
		body, err := h.files.Download(ctx, doc.FileID)
		if err != nil {
			return nil, "", fmt.Errorf("скачивание %s: %w", doc.FileName, err)
		}
		defer body.Close()

		lines, err := common.ReadLines(io.LimitReader(body, MaxStockFileSize))
		if err != nil {
			return nil, "", err
		}
		return lines, doc.FileName, nil
	}

	// строки после первой строки команды; аргументы после кода в первой
	// строке тоже считаются стоком
	tail := req.Tail(1)
	return strings.Split(tail, "\n"), "message", nil
}

func attachedDocument(m *tgbotapi.Message) *tgbotapi.Document {
	if m == nil {
		return nil
	}
	if m.Document != nil {
		return m.Document
	}
	if m.ReplyToMessage != nil {
		return m.ReplyToMessage.Document
	}
	return nil
}

// DeleteProduct — !deleteProduct <код>.
func (h *Handler) DeleteProduct(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 1 {
		return "", command.ErrUsage
	}
	if err := h.service.DeleteProduct(ctx, req.Args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗑 Товар %s удалён вместе со складом", req.Args[0]), nil
}

// AddBal — !addBal <growid> <wl> [dl] [bgl].
func (h *Handler) AddBal(ctx context.Context, req *command.Request) (string, error) {
	growID, amounts, err := parseAmounts(req.Args, false)
	if err != nil {
		return "", err
	}
	res, err := h.service.AddBal(ctx, growID, amounts, req.Actor())
	if err != nil {
		return "", err
	}
	return balanceReply("✅ Баланс пополнен", res, amounts, "+"), nil
}

// ReduceBal — !reduceBal <growid> <wl> [dl] [bgl].
func (h *Handler) ReduceBal(ctx context.Context, req *command.Request) (string, error) {
	growID, amounts, err := parseAmounts(req.Args, false)
	if err != nil {
		return "", err
	}
	res, err := h.service.ReduceBal(ctx, growID, amounts, req.Actor())
	if err != nil {
		return "", err
	}
	return balanceReply("✅ Баланс уменьшен", res, amounts, "-"), nil
}

// SetBalance — !setBalance <growid> <wl> <dl> <bgl>.
func (h *Handler) SetBalance(ctx context.Context, req *command.Request) (string, error) {
	growID, target, err := parseAmounts(req.Args, true)
	if err != nil {
		return "", err
	}
	res, err := h.service.SetBalance(ctx, growID, target, req.Actor())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Баланс %s установлен\n\nБыло: %s\nСтало: %s",
		res.GrowID, res.Old, res.New), nil
}

// Balance — !balance <growid>.
func (h *Handler) Balance(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 1 {
		return "", command.ErrUsage
	}
	b, err := h.service.Balance(ctx, req.Args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("💰 Баланс %s\n\n%s", req.Args[0], formatSnapshot(b)), nil
}

// History — !history <growid> [кол-во].
func (h *Handler) History(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) < 1 || len(req.Args) > 2 {
		return "", command.ErrUsage
	}
	limit := 10
	if len(req.Args) == 2 {
		n, err := parseInt("limit", req.Args[1])
		if err != nil {
			return "", err
		}
		limit = int(n)
	}

	entries, err := h.service.History(ctx, req.Args[0], limit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("📜 У %s пока нет операций", req.Args[0]), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Последние операции %s:\n", req.Args[0])
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s %s — %s\n   %s → %s",
			common.FormatDateTime(e.Timestamp, h.location), e.Type, e.Details, e.Old, e.New)
	}
	return sb.String(), nil
}

// ChangePrice — !changePrice <код> <цена>.
func (h *Handler) ChangePrice(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 2 {
		return "", command.ErrUsage
	}
	price, err := parseInt("price", req.Args[1])
	if err != nil {
		return "", err
	}
	old, err := h.service.ChangePrice(ctx, req.Args[0], price)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Цена %s: %s → %s WL",
		req.Args[0], common.FormatNumber(old), common.FormatNumber(price)), nil
}

// SetDescription — !setDescription <код> <текст>.
func (h *Handler) SetDescription(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) < 2 {
		return "", command.ErrUsage
	}
	if err := h.service.SetDescription(ctx, req.Args[0], req.Tail(1)); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Описание %s обновлено", req.Args[0]), nil
}

// SetWorld — !setWorld <мир> <владелец> <бот>.
func (h *Handler) SetWorld(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 3 {
		return "", command.ErrUsage
	}
	prev, err := h.service.SetWorld(ctx, req.Args[0], req.Args[1], req.Args[2], req.Actor())
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("🌍 Мир обновлён\n\nМир: %s\nВладелец: %s\nБот: %s",
		req.Args[0], req.Args[1], req.Args[2])
	if prev != nil {
		text += fmt.Sprintf("\n\nБыло: %s / %s / %s", prev.World, prev.Owner, prev.Bot)
	}
	return text, nil
}

// World — !world.
func (h *Handler) World(ctx context.Context, _ *command.Request) (string, error) {
	info, err := h.service.World(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return "🌍 Мир ещё не указан", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🌍 Мир: %s\nВладелец: %s\nБот: %s", info.World, info.Owner, info.Bot), nil
}

// Products — !products.
func (h *Handler) Products(ctx context.Context, _ *command.Request) (string, error) {
	products, err := h.service.Products(ctx)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "🛒 Каталог пуст", nil
	}

	var sb strings.Builder
	sb.WriteString("🛒 Товары:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "\n%s (%s): %s WL, в наличии %s",
			p.Name, p.Code, common.FormatNumber(p.Price), common.FormatItems(int64(p.StockCount)))
		if p.Description != "" {
			fmt.Fprintf(&sb, "\n   %s", p.Description)
		}
	}
	return sb.String(), nil
}

// CheckStock — !checkStock <код>.
func (h *Handler) CheckStock(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 1 {
		return "", command.ErrUsage
	}
	r, err := h.service.CheckStock(ctx, req.Args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📦 %s (%s)\n\nДоступно: %d\nВыдано: %d\nВсего: %d\nПоследнее пополнение: %s\nПоследняя выдача: %s",
		r.Product.Name, r.Product.Code, r.Available, r.Used, r.Total,
		h.formatTime(r.LastAdded), h.formatTime(r.LastUsed)), nil
}

// Send — !send <@user|id> <код> <кол-во> или ответом на сообщение
// получателя: !send <код> <кол-во>.
func (h *Handler) Send(ctx context.Context, req *command.Request) (string, error) {
	var (
		to   Recipient
		rest []string
	)
	switch {
	case len(req.Args) == 3:
		m, err := h.members.Resolve(ctx, req.Args[0])
		if err != nil {
			return "", err
		}
		to = recipientOf(m)
		rest = req.Args[1:]
	case len(req.Args) == 2 && replyAuthor(req.Message) != nil:
		u := replyAuthor(req.Message)
		to = recipientOf(&members.Member{UserID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName})
		rest = req.Args
	default:
		return "", command.ErrUsage
	}

	count, err := parseInt("count", rest[1])
	if err != nil {
		return "", err
	}

	res, err := h.service.Send(ctx, rest[0], int(count), to)
	if err != nil && res == nil {
		return "", err
	}
	if err != nil {
		return h.undelivered(ctx, req, res, err), nil
	}
	return fmt.Sprintf("✅ Товар отправлен\n\nПолучатель: %s\nТовар: %s\nКоличество: %d",
		res.Recipient.Label, res.ProductCode, len(res.Items)), nil
}

// undelivered сообщает админу, что товар списан, но не доставлен, и
// пересылает ему содержимое, чтобы передать вручную.
func (h *Handler) undelivered(ctx context.Context, req *command.Request, res *SendResult, cause error) string {
	reason := "ошибка доставки"
	if errors.Is(cause, common.ErrDeliveryForbidden) {
		reason = "получатель закрыл личные сообщения"
	}
	header := fmt.Sprintf("⚠️ Товар списан, но не доставлен %s: %s.\nСписано: %s %s",
		res.Recipient.Label, reason, common.FormatItems(int64(len(res.Items))), res.ProductCode)

	text := DeliveryText(res.ProductCode, res.Items)
	if req.Private {
		return header + "\n\n" + text
	}
	if err := h.service.DeliverAll(ctx, req.UserID, text); err != nil {
		log.WithError(err).WithField("user_id", req.UserID).Warn("Не удалось переслать товар админу")
		return header + "\n\n" + text
	}
	return header + "\nСодержимое отправлено вам в личку."
}

func (h *Handler) formatTime(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return common.FormatDateTime(*t, h.location)
}

func replyAuthor(m *tgbotapi.Message) *tgbotapi.User {
	if m == nil || m.ReplyToMessage == nil || m.ReplyToMessage.From == nil || m.ReplyToMessage.From.IsBot {
		return nil
	}
	return m.ReplyToMessage.From
}

func recipientOf(m *members.Member) Recipient {
	label := fmt.Sprintf("id%d", m.UserID)
	if m.Username != "" {
		label = fmt.Sprintf("@%s (%d)", m.Username, m.UserID)
	}
	return Recipient{ChatID: m.UserID, Label: label}
}

// parseAmounts разбирает <growid> <wl> [dl] [bgl]. all — нужны все три суммы.
func parseAmounts(args []string, all bool) (string, ledger.Snapshot, error) {
	if len(args) < 2 || len(args) > 4 || (all && len(args) != 4) {
		return "", ledger.Snapshot{}, command.ErrUsage
	}
	var vals [3]int64
	for i, raw := range args[1:] {
		v, err := parseInt(strings.ToLower(string(ledger.Currencies[i])), raw)
		if err != nil {
			return "", ledger.Snapshot{}, err
		}
		vals[i] = v
	}
	return args[0], ledger.Snapshot{WL: vals[0], DL: vals[1], BGL: vals[2]}, nil
}

func parseInt(field, s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, common.Invalid(field, fmt.Sprintf("%q не целое число", s))
	}
	return v, nil
}

func balanceReply(title string, res ledger.Result, amounts ledger.Snapshot, sign string) string {
	var changed []string
	for _, c := range ledger.Currencies {
		if v := amounts.Get(c); v > 0 {
			changed = append(changed, fmt.Sprintf("%s%s %s", sign, common.FormatNumber(v), c))
		}
	}
	return fmt.Sprintf("%s\n\nGrowID: %s\nИзменение: %s\n\nБыло:\n%s\n\nСтало:\n%s",
		title, res.GrowID, strings.Join(changed, ", "), formatSnapshot(res.Old), formatSnapshot(res.New))
}

func formatSnapshot(s ledger.Snapshot) string {
	return fmt.Sprintf("WL: %s\nDL: %s\nBGL: %s",
		common.FormatNumber(s.WL), common.FormatNumber(s.DL), common.FormatNumber(s.BGL))
}
