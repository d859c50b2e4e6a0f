package storefront

import (
	"context"
	"io"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/features/ledger"
	"github.com/fdygg/DC-store/internal/features/members"
)

type fakeResolver map[string]*members.Member

func (f fakeResolver) Resolve(_ context.Context, ref string) (*members.Member, error) {
	if m, ok := f[strings.TrimPrefix(ref, "@")]; ok {
		return m, nil
	}
	return nil, common.NotFound("пользователь", ref)
}

type fakeFiles map[string]string

func (f fakeFiles) Download(_ context.Context, fileID string) (io.ReadCloser, error) {
	body, ok := f[fileID]
	if !ok {
		return nil, common.NotFound("файл", fileID)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func newTestHandler(f *fixture, files fakeFiles) *Handler {
	resolver := fakeResolver{"bob": {UserID: 42, Username: "bob"}}
	return NewHandler(f.svc, resolver, files, "UTC")
}

// request собирает Request так же, как диспетчер.
func request(text string) *command.Request {
	name, args, _ := command.Parse(text)
	return &command.Request{
		ChatID:   -100,
		UserID:   1,
		Username: "admin",
		Name:     name,
		Args:     args,
		Text:     text,
		Message:  &tgbotapi.Message{Text: text},
	}
}

func TestAddProductHandler(t *testing.T) {
	f := newFixture(0)
	h := newTestHandler(f, nil)
	ctx := context.Background()

	reply, err := h.AddProduct(ctx, request("!addProduct Sword SWD 1500 Острый меч"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Цена: 1 500 WL")
	assert.Equal(t, "Острый меч", f.inv.products["SWD"].Description)

	_, err = h.AddProduct(ctx, request("!addProduct Sword SWD"))
	assert.ErrorIs(t, err, command.ErrUsage)

	_, err = h.AddProduct(ctx, request("!addProduct Sword SW2 дорого"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAddStockFromMessage(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD")
	h := newTestHandler(f, nil)

	reply, err := h.AddStock(context.Background(), request("!addStock SWD\nacc1:pw\n\n  acc2:pw  \n"))
	require.NoError(t, err)
	assert.Contains(t, reply, "2 штуки")
	assert.Equal(t, []string{"acc1:pw", "acc2:pw"}, f.inv.stock["SWD"])
}

func TestAddStockFromDocument(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD")
	h := newTestHandler(f, fakeFiles{"file-1": "x1\nx2\nx3\n"})

	req := request("!addStock SWD")
	req.Message.Document = &tgbotapi.Document{FileID: "file-1", FileName: "stock.txt", FileSize: 9}

	reply, err := h.AddStock(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, reply, "stock.txt")
	assert.Equal(t, []string{"x1", "x2", "x3"}, f.inv.stock["SWD"])

	req.Message.Document = &tgbotapi.Document{FileID: "file-1", FileName: "stock.csv"}
	_, err = h.AddStock(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSendHandlerByUsername(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD", "a", "b", "c")
	h := newTestHandler(f, nil)

	reply, err := h.Send(context.Background(), request("!send @bob SWD 2"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Товар отправлен")
	assert.Contains(t, reply, "@bob (42)")
	assert.Len(t, f.deliverer.sent[42], 1)

	_, err = h.Send(context.Background(), request("!send @nobody SWD 1"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = h.Send(context.Background(), request("!send SWD 1"))
	assert.ErrorIs(t, err, command.ErrUsage)
}

func TestSendHandlerByReply(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD", "a")
	h := newTestHandler(f, nil)

	req := request("!send SWD 1")
	req.Message.ReplyToMessage = &tgbotapi.Message{From: &tgbotapi.User{ID: 77}}

	_, err := h.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, f.inv.used["id77"])
}

func TestSendHandlerForbiddenForwardsToAdmin(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD", "a", "b")
	f.deliverer.forbidden[42] = true
	h := newTestHandler(f, nil)

	reply, err := h.Send(context.Background(), request("!send bob SWD 2"))
	require.NoError(t, err)
	assert.Contains(t, reply, "закрыл личные сообщения")
	assert.Contains(t, reply, "отправлено вам в личку")

	require.Len(t, f.deliverer.sent[1], 1)
	assert.Contains(t, f.deliverer.sent[1][0], "1. a\n2. b")
}

func TestSendHandlerForbiddenInPrivateShowsItems(t *testing.T) {
	f := newFixture(0)
	f.seed(t, "SWD", "a")
	f.deliverer.forbidden[42] = true
	h := newTestHandler(f, nil)

	req := request("!send bob SWD 1")
	req.Private = true
	reply, err := h.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, reply, "1. a")
	assert.Empty(t, f.deliverer.sent[1])
}

func TestBalanceHandlers(t *testing.T) {
	f := newFixture(0)
	h := newTestHandler(f, nil)
	ctx := context.Background()

	reply, err := h.AddBal(ctx, request("!addBal Steve 10 5 1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "+10 WL, +5 DL, +1 BGL")

	_, err = h.ReduceBal(ctx, request("!reduceBal Steve 3"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Snapshot{WL: 7, DL: 5, BGL: 1}, f.led.balances["Steve"])

	_, err = h.SetBalance(ctx, request("!setBalance Steve 1 2"))
	assert.ErrorIs(t, err, command.ErrUsage)

	_, err = h.AddBal(ctx, request("!addBal Steve ten"))
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "wl", verr.Field)

	reply, err = h.History(ctx, request("!history Steve"))
	require.NoError(t, err)
	assert.Contains(t, reply, "ADMIN_ADD")
	assert.Contains(t, reply, "ADMIN_REMOVE")
}

func TestWorldHandlers(t *testing.T) {
	f := newFixture(0)
	h := newTestHandler(f, nil)
	ctx := context.Background()

	reply, err := h.World(ctx, request("!world"))
	require.NoError(t, err)
	assert.Contains(t, reply, "ещё не указан")

	_, err = h.SetWorld(ctx, request("!setWorld BUYWORLD Steve StoreBot"))
	require.NoError(t, err)
	reply, err = h.SetWorld(ctx, request("!setWorld NEWWORLD Steve StoreBot"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Было: BUYWORLD / Steve / StoreBot")
}

func TestCommandsRegister(t *testing.T) {
	h := newTestHandler(newFixture(0), nil)
	reg := command.NewRegistry()
	require.NotPanics(t, func() { reg.MustRegister(h.Commands()...) })

	spec, ok := reg.Lookup("ADDSTOCK")
	require.True(t, ok)
	assert.True(t, spec.Privileged)
	assert.True(t, spec.Dedupe)

	spec, ok = reg.Lookup("товары")
	require.True(t, ok)
	assert.False(t, spec.Privileged)
}
