package telegram

import "gopkg.in/telebot.v3"

// Client is the outbound half of the bot: the owner chat receives digests through it.
// The returned message carries the id recorded on the delivery log.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) (*telebot.Message, error)
}
