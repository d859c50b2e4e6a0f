package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func msg(chatID int64, chatType string, from *tgbotapi.User) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: chatType}, From: from}
}

func TestChatFilter(t *testing.T) {
	user := &tgbotapi.User{ID: 5}
	bot := &tgbotapi.User{ID: 6, IsBot: true}

	open := NewChatFilter(nil)
	assert.True(t, open.CheckAccess(msg(5, "private", user)))
	assert.True(t, open.CheckAccess(msg(-100, "supergroup", user)))
	assert.False(t, open.CheckAccess(msg(-100, "supergroup", nil)))
	assert.False(t, open.CheckAccess(msg(-100, "supergroup", bot)))
	assert.False(t, open.CheckAccess(nil))

	limited := NewChatFilter([]int64{-100})
	assert.True(t, limited.CheckAccess(msg(-100, "supergroup", user)))
	assert.False(t, limited.CheckAccess(msg(-200, "group", user)))
	assert.True(t, limited.CheckAccess(msg(5, "private", user)))
}
