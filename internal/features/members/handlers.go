// Package members — handlers.go обрабатывает Telegram-события, связанные
// со справочником: новые участники чата и отправители сообщений.
package members

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события справочника.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик событий справочника.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSender запоминает автора сообщения. Ошибка не мешает обработке
// команды, поэтому только логируется.
func (h *Handler) HandleSender(ctx context.Context, from *tgbotapi.User) {
	if from == nil || from.IsBot {
		return
	}
	if err := h.service.Touch(ctx, profileOf(from)); err != nil {
		log.WithError(err).WithField("user_id", from.ID).Warn("Не удалось сохранить отправителя")
	}
}

// HandleNewChatMembers регистрирует вступивших в чат, чтобы им можно было
// выдавать товар по @username ещё до первого сообщения.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for i := range newMembers {
		h.HandleSender(ctx, &newMembers[i])
	}
}

func profileOf(u *tgbotapi.User) Profile {
	return Profile{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
