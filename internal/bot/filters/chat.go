// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает личные сообщения и сообщения из разрешённых чатов.
// Пустой список чатов — разрешены все.
type ChatFilter struct {
	allowed map[int64]struct{}
}

func NewChatFilter(allowedChatIDs []int64) *ChatFilter {
	allowed := make(map[int64]struct{}, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = struct{}{}
	}
	return &ChatFilter{allowed: allowed}
}

func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("nil message.From (service/channel message?)")
		return false
	}
	if message.From.IsBot {
		return false
	}

	// 1) Личка всегда
	if message.Chat.IsPrivate() {
		return true
	}

	// 2) Группы: все или только из списка
	if len(f.allowed) == 0 {
		return true
	}
	if _, ok := f.allowed[message.Chat.ID]; ok {
		return true
	}

	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"user_id":   message.From.ID,
	}).Debug("deny: chat not in ALLOWED_CHAT_IDS")
	return false
}
