// Package bot содержит главный модуль бота: polling апдейтов Telegram,
// диспетчер команд и доставку сообщений.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/bot/filters"
	"github.com/fdygg/DC-store/internal/bot/middleware"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/config"
	"github.com/fdygg/DC-store/internal/features/members"
)

// telegramMessageLimit — лимит Telegram на длину одного сообщения.
const telegramMessageLimit = 4096

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter    *filters.ChatFilter
	memberHandler *members.Handler
	dispatcher    *Dispatcher

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	memberHandler *members.Handler,
	dispatcher *Dispatcher,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    chatFilter,
		memberHandler: memberHandler,
		dispatcher:    dispatcher,
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil {
		return
	}

	// Вступившие в чат попадают в справочник сразу
	if len(message.NewChatMembers) > 0 {
		b.memberHandler.HandleNewChatMembers(ctx, message.NewChatMembers)
		return
	}

	if message.Text == "" && message.Caption == "" {
		return
	}
	if !b.chatFilter.CheckAccess(message) {
		return
	}

	// Запоминаем отправителя, чтобы send находил его по @username
	b.memberHandler.HandleSender(ctx, message.From)

	out, handled := b.dispatcher.Dispatch(ctx, message)
	if !handled {
		return
	}

	if out.DeleteMessage {
		b.deleteMessage(message.Chat.ID, message.MessageID)
	}
	if out.Reply != "" {
		replyTo := message.MessageID
		if out.DeleteMessage {
			replyTo = 0
		}
		b.reply(message.Chat.ID, replyTo, out.Reply)
	}
}

// reply отправляет ответ, при необходимости частями.
func (b *Bot) reply(chatID int64, replyTo int, text string) {
	for _, part := range common.SplitMessage(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ReplyToMessageID = replyTo
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
			return
		}
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось удалить сообщение")
	}
}
