// Package middleware содержит обёртки вокруг обработки апдейтов: логирование,
// восстановление после паники и подавление повторных команд.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const logTextLimit = 50

// LogMessage логирует входящее сообщение.
// Пишет user_id, chat_id, username и начало текста. Для чувствительных
// команд (пароль) текст не пишется.
func LogMessage(message *tgbotapi.Message, sensitive bool) {
	if message == nil {
		return
	}

	fields := log.Fields{}
	if message.Chat != nil {
		fields["chat_id"] = message.Chat.ID
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	if sensitive {
		fields["text"] = "***"
	} else {
		fields["text"] = Truncate(message.Text, logTextLimit)
	}
	if message.Document != nil {
		fields["document"] = message.Document.FileName
	}

	log.WithFields(fields).Debug("Входящее сообщение")
}

// Truncate обрезает строку до limit рун.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
