package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/bot/middleware"
)

// Authorizer проверяет права на привилегированные команды.
type Authorizer interface {
	Authorize(ctx context.Context, userID int64) error
}

// Guard гасит повторные команды.
type Guard interface {
	ShouldSuppress(actor, operation string, window time.Duration) bool
}

// Outcome — что сделать после команды.
type Outcome struct {
	Reply         string // пусто — не отвечать
	DeleteMessage bool   // удалить исходное сообщение (пароль в открытом чате)
}

// Dispatcher находит команду в реестре, проверяет права и повтор и
// вызывает обработчик.
type Dispatcher struct {
	registry *command.Registry
	auth     Authorizer
	guard    Guard
	window   time.Duration
}

func NewDispatcher(registry *command.Registry, auth Authorizer, guard Guard, window time.Duration) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		auth:     auth,
		guard:    guard,
		window:   window,
	}
	registry.MustRegister(command.Spec{
		Name:    "help",
		Aliases: []string{"start", "помощь"},
		Usage:   "!help",
		Handler: d.help,
	})
	return d
}

// Dispatch обрабатывает сообщение. handled=false — это не команда бота.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *tgbotapi.Message) (Outcome, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Outcome{}, false
	}
	text := commandText(msg)
	name, args, ok := command.Parse(text)
	if !ok {
		return Outcome{}, false
	}
	spec, ok := d.registry.Lookup(name)
	if !ok {
		return Outcome{}, false
	}

	middleware.LogMessage(msg, spec.Sensitive)

	req := &command.Request{
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		Private:  msg.Chat.IsPrivate(),
		Name:     spec.Name,
		Args:     args,
		Text:     text,
		Message:  msg,
	}
	logger := log.WithFields(log.Fields{
		"command": spec.Name,
		"user_id": req.UserID,
		"chat_id": req.ChatID,
	})

	out := Outcome{DeleteMessage: spec.Sensitive && !req.Private}

	if spec.PrivateOnly && !req.Private {
		out.Reply = "🔒 Эта команда работает только в личке с ботом"
		return out, true
	}

	if spec.Privileged {
		if err := d.auth.Authorize(ctx, req.UserID); err != nil {
			logger.WithError(err).Info("Отказано в доступе")
			out.Reply = Render(spec, err)
			return out, true
		}
	}

	if spec.Dedupe && d.guard.ShouldSuppress(strconv.FormatInt(req.UserID, 10), spec.Name, d.window) {
		logger.Debug("Повтор команды проигнорирован")
		return out, true
	}

	reply, err := spec.Handler(ctx, req)
	if err != nil {
		logger.WithError(err).Debug("Команда завершилась ошибкой")
		out.Reply = Render(spec, err)
		return out, true
	}
	out.Reply = reply
	return out, true
}

func (d *Dispatcher) help(context.Context, *command.Request) (string, error) {
	var sb strings.Builder
	sb.WriteString("📖 Команды (префикс ! . или /):\n")
	for _, s := range d.registry.All() {
		lock := ""
		if s.Privileged {
			lock = " 🔒"
		}
		fmt.Fprintf(&sb, "\n%s%s", s.Usage, lock)
	}
	return sb.String(), nil
}

// commandText — текст команды. У документа команда лежит в подписи.
func commandText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}
