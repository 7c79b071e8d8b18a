// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter sends owner-chat messages through a running telebot.Bot.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage addresses the chat by id so group chats work as well as private ones.
func (a *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) (*telebot.Message, error) {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	if options.ParseMode == "" {
		options.ParseMode = telebot.ModeMarkdownV2
	}
	return a.bot.Send(telebot.ChatID(chatID), text, options)
}
