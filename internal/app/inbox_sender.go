package app

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"paytrack/internal/domain/notification"
)

// InAppSender delivers payloads into the in-app inbox table.
type InAppSender struct {
	repo notification.Repository
}

func NewInAppSender(repo notification.Repository) *InAppSender {
	return &InAppSender{repo: repo}
}

func (s *InAppSender) Channel() notification.Channel { return notification.ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, p notification.Payload) (notification.Receipt, error) {
	n := &notification.Notification{
		Type:  p.Type,
		Title: p.Title,
		Body:  plainBody(p),
	}
	if len(p.Items) == 1 {
		n.OccurrenceID = sql.NullInt64{Int64: p.Items[0].OccurrenceID, Valid: true}
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return notification.Receipt{}, &notification.TransportError{Channel: notification.ChannelInApp, Err: err}
	}
	return notification.Receipt{MessageID: strconv.FormatInt(n.ID, 10)}, nil
}

func plainBody(p notification.Payload) string {
	lines := append([]string(nil), p.Lines...)
	for _, it := range p.Items {
		lines = append(lines, fmt.Sprintf("- %s %s %s", it.DueDate, it.PaymentName, formatMoney(it.Amount)))
	}
	return strings.Join(lines, "\n")
}
