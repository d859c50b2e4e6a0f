package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/features/admin"
)

type fakeAuth struct{ err error }

func (f fakeAuth) Authorize(context.Context, int64) error { return f.err }

type fakeGuard struct {
	seen map[string]bool
}

func (g *fakeGuard) ShouldSuppress(actor, op string, _ time.Duration) bool {
	key := actor + "/" + op
	if g.seen[key] {
		return true
	}
	g.seen[key] = true
	return false
}

func message(text string, private bool) *tgbotapi.Message {
	chat := &tgbotapi.Chat{ID: -100, Type: "supergroup"}
	if private {
		chat = &tgbotapi.Chat{ID: 5, Type: "private"}
	}
	return &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		Chat:      chat,
		From:      &tgbotapi.User{ID: 5, UserName: "admin"},
	}
}

func newTestDispatcher(t *testing.T, authErr error) (*Dispatcher, *int) {
	t.Helper()
	calls := 0
	reg := command.NewRegistry()
	reg.MustRegister(
		command.Spec{
			Name:       "addStock",
			Usage:      "!addStock <код>",
			Privileged: true,
			Dedupe:     true,
			Handler: func(_ context.Context, req *command.Request) (string, error) {
				calls++
				if len(req.Args) == 0 {
					return "", command.ErrUsage
				}
				return "ok " + req.Args[0], nil
			},
		},
		command.Spec{
			Name:        "login",
			Usage:       "/login <пароль>",
			PrivateOnly: true,
			Sensitive:   true,
			Handler: func(context.Context, *command.Request) (string, error) {
				return "вошли", nil
			},
		},
		command.Spec{
			Name:  "fail",
			Usage: "!fail",
			Handler: func(context.Context, *command.Request) (string, error) {
				return "", common.Persistence("select", errors.New("conn refused"))
			},
		},
	)
	d := NewDispatcher(reg, fakeAuth{err: authErr}, &fakeGuard{seen: map[string]bool{}}, 3*time.Second)
	return d, &calls
}

func TestDispatchRunsCommand(t *testing.T) {
	d, calls := newTestDispatcher(t, nil)

	out, handled := d.Dispatch(context.Background(), message("!addstock SWD", false))
	require.True(t, handled)
	assert.Equal(t, "ok SWD", out.Reply)
	assert.Equal(t, 1, *calls)
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	_, handled := d.Dispatch(context.Background(), message("привет", false))
	assert.False(t, handled)
	_, handled = d.Dispatch(context.Background(), message("!unknown", false))
	assert.False(t, handled)
}

func TestDispatchSuppressesRepeat(t *testing.T) {
	d, calls := newTestDispatcher(t, nil)

	d.Dispatch(context.Background(), message("!addStock SWD", false))
	out, handled := d.Dispatch(context.Background(), message("!addStock SWD", false))
	assert.True(t, handled)
	assert.Empty(t, out.Reply)
	assert.Equal(t, 1, *calls)
}

func TestDispatchChecksPrivilege(t *testing.T) {
	d, calls := newTestDispatcher(t, common.ErrNotAdmin)

	out, _ := d.Dispatch(context.Background(), message("!addStock SWD", false))
	assert.Equal(t, "❌ У вас нет прав администратора", out.Reply)
	assert.Zero(t, *calls)

	d, _ = newTestDispatcher(t, admin.ErrSessionRequired)
	out, _ = d.Dispatch(context.Background(), message("!addStock SWD", false))
	assert.Contains(t, out.Reply, "/login")
}

func TestDispatchPrivateOnly(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	out, _ := d.Dispatch(context.Background(), message("/login secret", false))
	assert.True(t, out.DeleteMessage)
	assert.Contains(t, out.Reply, "только в личке")

	out, _ = d.Dispatch(context.Background(), message("/login secret", true))
	assert.False(t, out.DeleteMessage)
	assert.Equal(t, "вошли", out.Reply)
}

func TestDispatchRendersErrors(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	out, _ := d.Dispatch(context.Background(), message("!addStock", false))
	assert.Equal(t, "ℹ️ Использование: !addStock <код>", out.Reply)

	out, _ = d.Dispatch(context.Background(), message("!fail", false))
	assert.Equal(t, "❌ Ошибка базы данных, попробуйте позже", out.Reply)
}

func TestDispatchReadsCaption(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	msg := message("", false)
	msg.Caption = "!addStock SWD"
	out, handled := d.Dispatch(context.Background(), msg)
	require.True(t, handled)
	assert.Equal(t, "ok SWD", out.Reply)
}

func TestHelpListsCommands(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	out, handled := d.Dispatch(context.Background(), message("/start", true))
	require.True(t, handled)
	assert.Contains(t, out.Reply, "!addStock <код> 🔒")
	assert.Contains(t, out.Reply, "/login <пароль>")
}

func TestRender(t *testing.T) {
	spec := &command.Spec{Name: "send", Usage: "!send"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", common.Invalid("count", "больше нуля"), "❌ Некорректные данные (count): больше нуля"},
		{"not found", common.NotFound("товар", "SWD"), "❌ Товар SWD не найден"},
		{"stock", &common.InsufficientStockError{ProductCode: "SWD", Requested: 2, Available: 1},
			"❌ Недостаточно товара SWD: запрошено 2, в наличии 1"},
		{"balance", &common.InsufficientBalanceError{GrowID: "Steve", Currency: "DL", Balance: 5, Amount: 6},
			"❌ Недостаточно DL у Steve: на балансе 5, нужно 6"},
		{"too many attempts", common.ErrTooManyAttempts, "⛔ Слишком много попыток, подождите 1 час"},
		{"unknown", errors.New("boom"), "❌ Внутренняя ошибка, попробуйте позже"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(spec, tt.err))
		})
	}
}
