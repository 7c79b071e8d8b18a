package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"gopkg.in/telebot.v3"

	"paytrack/internal/domain/notification"
	domaintg "paytrack/internal/domain/telegram"
)

// Sender delivers notification payloads as Telegram MarkdownV2 messages.
type Sender struct {
	client domaintg.Client
}

func NewSender(client domaintg.Client) *Sender {
	return &Sender{client: client}
}

func (s *Sender) Channel() notification.Channel { return notification.ChannelTelegram }

func (s *Sender) Send(ctx context.Context, p notification.Payload) (notification.Receipt, error) {
	chatID, err := strconv.ParseInt(p.Recipient, 10, 64)
	if err != nil {
		return notification.Receipt{}, &notification.TransportError{
			Channel: notification.ChannelTelegram,
			Err:     fmt.Errorf("invalid chat id %q: %w", p.Recipient, err),
		}
	}
	if err := ctx.Err(); err != nil {
		return notification.Receipt{}, &notification.TransportError{Channel: notification.ChannelTelegram, Err: err}
	}

	opts := &telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2, DisableWebPagePreview: true}
	if m := actionMarkup(p); m != nil {
		opts.ReplyMarkup = m
	}
	msg, err := s.client.SendMessage(chatID, RenderPayload(p), opts)
	if err != nil {
		return notification.Receipt{}, classifyError(err)
	}
	var receipt notification.Receipt
	if msg != nil {
		receipt.MessageID = strconv.Itoa(msg.ID)
	}
	return receipt, nil
}

// classifyError marks rate limits, server errors and network failures as retryable.
func classifyError(err error) *notification.TransportError {
	te := &notification.TransportError{Channel: notification.ChannelTelegram, Err: err}

	var (
		flood    telebot.FloodError
		floodPtr *telebot.FloodError
		apiErr   *telebot.Error
		netErr   net.Error
	)
	switch {
	case errors.As(err, &flood), errors.As(err, &floodPtr):
		te.Retryable = true
	case errors.As(err, &apiErr):
		te.Retryable = apiErr.Code == 429 || apiErr.Code >= 500
	case errors.As(err, &netErr):
		te.Retryable = true
	}
	return te
}
