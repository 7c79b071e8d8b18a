// internal/app/notification_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
	"paytrack/internal/domain/payment"
	"paytrack/internal/domain/settings"
)

const (
	sendMaxAttempts   = 3
	sendRetryInterval = 250 * time.Millisecond
)

// NotificationService produces due-soon, overdue and daily-summary notifications.
type NotificationService interface {
	// SendDueNotices emits one digest per type and channel covering occurrences not yet notified today.
	SendDueNotices(ctx context.Context, today calendar.Date) (NoticeResult, error)
	// SendDailySummary emits the summary once per channel per day. Before the configured
	// time it reports Deferred unless force is set.
	SendDailySummary(ctx context.Context, today calendar.Date, now time.Time, force bool) (SummaryResult, error)
	ListInbox(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error)
	MarkInboxRead(ctx context.Context) (int, error)
}

// NoticeResult counts occurrences newly covered per type, and channel deliveries.
type NoticeResult struct {
	DueSoon int
	Overdue int
	Sent    int
	Failed  int
}

type SummaryResult struct {
	Deferred bool
	Sent     int
	Failed   int
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	payments      payment.Repository
	notifRepo     notification.Repository
	settings      *SettingsService
	dedup         *NotificationDedupGuard
	inApp         notification.Sender
	telegram      notification.Sender // nil when no bot token is configured
	log           *logrus.Entry
	retryInterval time.Duration
}

func NewNotificationServiceImpl(
	pr payment.Repository,
	nr notification.Repository,
	ss *SettingsService,
	telegram notification.Sender,
	log *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		payments:      pr,
		notifRepo:     nr,
		settings:      ss,
		dedup:         NewNotificationDedupGuard(nr),
		inApp:         NewInAppSender(nr),
		telegram:      telegram,
		log:           log.WithField("component", "notifications"),
		retryInterval: sendRetryInterval,
	}
}

type target struct {
	sender    notification.Sender
	recipient string
}

// targets lists the channels enabled right now: in-app always, Telegram when fully configured.
func (s *NotificationServiceImpl) targets(app *settings.AppSettings) []target {
	out := []target{{sender: s.inApp}}
	if s.telegram != nil && app.TelegramEnabled && app.TelegramChatID != "" {
		out = append(out, target{sender: s.telegram, recipient: app.TelegramChatID})
	}
	return out
}

type scheduledRows struct {
	dueToday []*payment.OccurrenceView
	dueSoon  []*payment.OccurrenceView
	overdue  []*payment.OccurrenceView
	soonEnd  calendar.Date
}

func (s *NotificationServiceImpl) loadScheduled(ctx context.Context, today calendar.Date, dueSoonDays int) (*scheduledRows, error) {
	rows := &scheduledRows{soonEnd: today.AddDays(max(dueSoonDays, 0))}
	views, err := s.payments.ListOccurrences(ctx, payment.OccurrenceFilter{
		Statuses: []payment.Status{payment.StatusScheduled},
		DueTo:    calendar.NewNullDate(rows.soonEnd),
		Sort:     payment.SortDueAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled occurrences: %w", err)
	}
	for _, v := range views {
		switch {
		case v.IsOverdue(today):
			rows.overdue = append(rows.overdue, v)
		default:
			rows.dueSoon = append(rows.dueSoon, v)
			if v.DueDate == today {
				rows.dueToday = append(rows.dueToday, v)
			}
		}
	}
	return rows, nil
}

func (s *NotificationServiceImpl) SendDueNotices(ctx context.Context, today calendar.Date) (NoticeResult, error) {
	var result NoticeResult

	_, app, err := s.settings.Load(ctx)
	if err != nil {
		return result, err
	}
	rows, err := s.loadScheduled(ctx, today, app.DueSoonDays)
	if err != nil {
		return result, err
	}

	groups := []struct {
		typ  notification.Type
		rows []*payment.OccurrenceView
		n    *int
	}{
		{notification.TypeDueSoon, rows.dueSoon, &result.DueSoon},
		{notification.TypeOverdue, rows.overdue, &result.Overdue},
	}
	for _, g := range groups {
		if len(g.rows) == 0 {
			continue
		}
		for _, t := range s.targets(app) {
			ch := t.sender.Channel()
			var (
				entries []*notification.LogEntry
				items   []notification.Item
			)
			for _, v := range g.rows {
				entry, err := s.dedup.TryClaim(ctx, g.typ, ch, today, notification.OccurrenceDedupKey(v.ID), v.ID)
				if err != nil {
					s.abandon(ctx, entries, err)
					return result, err
				}
				if entry == nil {
					continue
				}
				entries = append(entries, entry)
				items = append(items, itemFor(v))
			}
			if len(entries) == 0 {
				s.log.WithFields(logrus.Fields{"type": g.typ, "channel": ch}).Debug("Nothing new to notify")
				continue
			}
			if ch == notification.ChannelInApp {
				*g.n = len(items)
			}

			payload := buildDuePayload(g.typ, items, rows.soonEnd)
			payload.Recipient = t.recipient
			if s.deliver(ctx, t.sender, payload, entries) {
				result.Sent++
			} else {
				result.Failed++
			}
		}
	}
	return result, nil
}

func (s *NotificationServiceImpl) SendDailySummary(ctx context.Context, today calendar.Date, now time.Time, force bool) (SummaryResult, error) {
	var result SummaryResult

	schedule, app, err := s.settings.Load(ctx)
	if err != nil {
		return result, err
	}
	if !force && !app.SummaryReady(now.In(schedule.Location())) {
		s.log.WithFields(logrus.Fields{"ready_at": app.DailySummaryTime, "timezone": schedule.Timezone}).Debug("Daily summary deferred")
		result.Deferred = true
		return result, nil
	}

	rows, err := s.loadScheduled(ctx, today, app.DueSoonDays)
	if err != nil {
		return result, err
	}
	unread, err := s.notifRepo.CountUnread(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	payload := buildSummaryPayload(today, schedule.Timezone, rows, unread)

	for _, t := range s.targets(app) {
		entry, err := s.dedup.TryClaim(ctx, notification.TypeDailySummary, t.sender.Channel(), today, notification.DailySummaryDedupKey, 0)
		if err != nil {
			return result, err
		}
		if entry == nil {
			continue
		}
		p := payload
		p.Recipient = t.recipient
		if s.deliver(ctx, t.sender, p, []*notification.LogEntry{entry}) {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// deliver sends once, retrying only retryable transport errors a bounded number of times.
// The claims stay held either way; a failure is recorded and never retried on a later trigger.
func (s *NotificationServiceImpl) deliver(ctx context.Context, sender notification.Sender, p notification.Payload, entries []*notification.LogEntry) bool {
	entry := s.log.WithFields(logrus.Fields{"type": p.Type, "channel": sender.Channel(), "items": len(p.Items)})

	var (
		receipt notification.Receipt
		err     error
		attempt int
	)
	for attempt = 1; attempt <= sendMaxAttempts; attempt++ {
		receipt, err = sender.Send(ctx, p)
		if err == nil || !isRetryable(err) || attempt == sendMaxAttempts {
			break
		}
		entry.WithError(err).WithField("attempt", attempt).Debug("Retrying send")
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(s.retryInterval):
			continue
		}
		break
	}

	if err != nil {
		entry.WithError(err).WithField("attempts", attempt).Warn("Notification delivery failed")
		for _, e := range entries {
			if markErr := s.notifRepo.MarkError(ctx, e.ID, err.Error(), attempt); markErr != nil {
				entry.WithError(markErr).Error("Failed to record delivery error")
			}
		}
		return false
	}

	at := time.Now()
	for _, e := range entries {
		if markErr := s.notifRepo.MarkSent(ctx, e.ID, receipt.MessageID, attempt, at); markErr != nil {
			entry.WithError(markErr).Error("Failed to record delivery")
		}
	}
	entry.WithField("message_id", receipt.MessageID).Info("Notification delivered")
	return true
}

// abandon finalises claims taken before a later claim failed, so none stays pending.
func (s *NotificationServiceImpl) abandon(ctx context.Context, entries []*notification.LogEntry, cause error) {
	if len(entries) == 0 {
		return
	}
	s.log.WithError(cause).WithField("claims", len(entries)).Warn("Claiming interrupted, recording held claims as not delivered")
	for _, e := range entries {
		if err := s.notifRepo.MarkError(ctx, e.ID, "not delivered: "+cause.Error(), 0); err != nil {
			s.log.WithError(err).WithField("log_id", e.ID).Error("Failed to record abandoned claim")
		}
	}
}

func isRetryable(err error) bool {
	var te *notification.TransportError
	return errors.As(err, &te) && te.Retryable
}

func (s *NotificationServiceImpl) ListInbox(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.notifRepo.ListNotifications(ctx, unreadOnly, limit)
}

func (s *NotificationServiceImpl) MarkInboxRead(ctx context.Context) (int, error) {
	return s.notifRepo.MarkAllNotificationsRead(ctx, time.Now())
}

func itemFor(v *payment.OccurrenceView) notification.Item {
	return notification.Item{OccurrenceID: v.ID, PaymentName: v.PaymentName, DueDate: v.DueDate, Amount: v.ExpectedAmount}
}

func itemsFor(views []*payment.OccurrenceView) []notification.Item {
	items := make([]notification.Item, 0, len(views))
	for _, v := range views {
		items = append(items, itemFor(v))
	}
	return items
}

func sumItems(items []notification.Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func sumViews(views []*payment.OccurrenceView) decimal.Decimal {
	return sumItems(itemsFor(views))
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func buildDuePayload(typ notification.Type, items []notification.Item, soonEnd calendar.Date) notification.Payload {
	p := notification.Payload{Type: typ, Items: items}
	total := formatMoney(sumItems(items))
	switch typ {
	case notification.TypeOverdue:
		p.Title = fmt.Sprintf("Overdue (%d items)", len(items))
		p.Lines = []string{fmt.Sprintf("%d scheduled payments are overdue totaling %s.", len(items), total)}
	default:
		p.Title = fmt.Sprintf("Due Soon (%d items)", len(items))
		p.Lines = []string{fmt.Sprintf("%d scheduled payments due by %s totaling %s.", len(items), soonEnd, total)}
	}
	return p
}

func buildSummaryPayload(today calendar.Date, timezone string, rows *scheduledRows, unread int) notification.Payload {
	return notification.Payload{
		Type:  notification.TypeDailySummary,
		Title: fmt.Sprintf("Daily Summary | %s", today),
		Lines: []string{
			fmt.Sprintf("Timezone: %s", timezone),
			fmt.Sprintf("Due today: %d (%s)", len(rows.dueToday), formatMoney(sumViews(rows.dueToday))),
			fmt.Sprintf("Due soon: %d (%s)", len(rows.dueSoon), formatMoney(sumViews(rows.dueSoon))),
			fmt.Sprintf("Overdue: %d (%s)", len(rows.overdue), formatMoney(sumViews(rows.overdue))),
			fmt.Sprintf("Unread notifications: %d", unread),
		},
		Items: itemsFor(rows.dueToday),
	}
}
