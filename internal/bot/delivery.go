package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fdygg/DC-store/internal/common"
)

// Sender — часть *tgbotapi.BotAPI, которой достаточно для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Deliverer доставляет товар покупателю в личные сообщения.
type Deliverer struct {
	api Sender
}

func NewDeliverer(api Sender) *Deliverer {
	return &Deliverer{api: api}
}

// Deliver отправляет text в chatID. Если пользователь заблокировал бота
// или ни разу ему не писал, ошибка имеет вид common.ErrDeliveryForbidden.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := d.api.Send(msg); err != nil {
		if forbidden(err) {
			return fmt.Errorf("чат %d: %w", chatID, common.ErrDeliveryForbidden)
		}
		return fmt.Errorf("отправка в чат %d: %w", chatID, err)
	}
	return nil
}

func forbidden(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		// личка ещё не открыта: пользователь не нажимал /start
		return strings.Contains(strings.ToLower(apiErr.Message), "chat not found")
	}
	return false
}
