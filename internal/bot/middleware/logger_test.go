package middleware

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "при...", Truncate("привет", 3))
}

func TestLogMessageToleratesPartialMessages(t *testing.T) {
	assert.NotPanics(t, func() {
		LogMessage(nil, false)
		LogMessage(&tgbotapi.Message{Text: "!help"}, false)
		LogMessage(&tgbotapi.Message{Text: "/login x", From: &tgbotapi.User{ID: 1}}, true)
	})
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic(7)
		panic("boom")
	})
}
