package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
	"paytrack/internal/domain/payment"
	"paytrack/internal/domain/recurrence"
	idb "paytrack/internal/infra/database"
)

const testHorizon = 90

type fakeSender struct {
	mu      sync.Mutex
	channel notification.Channel
	sent    []notification.Payload
	calls   int
	errs    []error // returned in order before any success
}

func (f *fakeSender) Channel() notification.Channel { return f.channel }

func (f *fakeSender) Send(_ context.Context, p notification.Payload) (notification.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return notification.Receipt{}, err
	}
	f.sent = append(f.sent, p)
	return notification.Receipt{MessageID: "tg-1"}, nil
}

func (f *fakeSender) payloads() []notification.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Payload(nil), f.sent...)
}

type testEnv struct {
	db        *idb.DB
	payments  *idb.PaymentRepository
	notifs    *idb.NotificationRepository
	jobs      *idb.JobRunRepository
	settings  *SettingsService
	generator *OccurrenceGenerator
	actions   *ActionProcessor
	paySvc    *PaymentService
	cycles    *CycleService
	notifier  *NotificationServiceImpl
	daily     *DailyJobs
	telegram  *fakeSender
	hook      *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := idb.Open(string(idb.DialectSQLite), filepath.Join(t.TempDir(), "paytrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, idb.Migrate(ctx, db))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	e := &testEnv{
		db:       db,
		payments: idb.NewPaymentRepository(db),
		notifs:   idb.NewNotificationRepository(db),
		jobs:     idb.NewJobRunRepository(db),
		telegram: &fakeSender{channel: notification.ChannelTelegram},
		hook:     hook,
	}
	e.settings = NewSettingsService(idb.NewSettingsRepository(db), SettingsDefaults{
		AnchorPayday:          calendar.MustParse("2026-01-15"),
		Timezone:              "UTC",
		DueSoonDays:           5,
		DailySummaryTime:      "07:00",
		GenerationHorizonDays: testHorizon,
		TelegramEnabled:       true,
		TelegramChatID:        "42",
	}, log)
	require.NoError(t, e.settings.EnsureSeeded(ctx))

	e.generator = NewOccurrenceGenerator(e.payments, log)
	e.actions = NewActionProcessor(e.payments, e.generator, log)
	e.paySvc = NewPaymentService(e.payments, e.generator, log)
	e.cycles = NewCycleService(e.payments, e.settings)
	e.notifier = NewNotificationServiceImpl(e.payments, e.notifs, e.settings, e.telegram, log)
	e.notifier.retryInterval = 0
	e.daily = NewDailyJobs(NewJobRunGuard(e.jobs, log), e.generator, e.notifier, e.settings, log)
	return e
}

// addPayment stores a payment without generating occurrences.
func (e *testEnv) addPayment(t *testing.T, name, amount, due string, typ recurrence.Type) *payment.Payment {
	t.Helper()
	p := &payment.Payment{
		Name:           name,
		ExpectedAmount: decimal.RequireFromString(amount),
		InitialDueDate: calendar.MustParse(due),
		RecurrenceType: typ,
		IsActive:       true,
	}
	require.NoError(t, e.payments.CreatePayment(context.Background(), p))
	return p
}

func (e *testEnv) occurrences(t *testing.T, paymentID int64) []*payment.OccurrenceView {
	t.Helper()
	views, err := e.payments.ListOccurrences(context.Background(), payment.OccurrenceFilter{PaymentID: paymentID, Sort: payment.SortDueAsc})
	require.NoError(t, err)
	return views
}

func (e *testEnv) occurrenceOn(t *testing.T, paymentID int64, due string, status payment.Status) *payment.OccurrenceView {
	t.Helper()
	for _, v := range e.occurrences(t, paymentID) {
		if v.DueDate.String() == due && v.Status == status {
			return v
		}
	}
	t.Fatalf("no %s occurrence on %s for payment %d", status, due, paymentID)
	return nil
}

func dueDates(views []*payment.OccurrenceView, status payment.Status) []string {
	var out []string
	for _, v := range views {
		if v.Status == status {
			out = append(out, v.DueDate.String())
		}
	}
	return out
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func isInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}
