package database

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/jobrun"
	"paytrack/internal/domain/notification"
	"paytrack/internal/domain/settings"
)

func TestNotificationRepository_ClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(newTestDB(t))
	bucket := calendar.MustParse("2026-02-10")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryClaim(ctx, &notification.LogEntry{
				Type:       notification.TypeDailySummary,
				Channel:    notification.ChannelInApp,
				BucketDate: bucket,
				DedupKey:   notification.DailySummaryDedupKey,
			})
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	// A different channel or day is a different bucket.
	ok, err := repo.TryClaim(ctx, &notification.LogEntry{Type: notification.TypeDailySummary, Channel: notification.ChannelTelegram, BucketDate: bucket, DedupKey: notification.DailySummaryDedupKey})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.TryClaim(ctx, &notification.LogEntry{Type: notification.TypeDailySummary, Channel: notification.ChannelInApp, BucketDate: bucket.AddDays(1), DedupKey: notification.DailySummaryDedupKey})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotificationRepository_DeliveryBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(newTestDB(t))
	bucket := calendar.MustParse("2026-02-10")

	sent := &notification.LogEntry{Type: notification.TypeOverdue, Channel: notification.ChannelTelegram, BucketDate: bucket, DedupKey: notification.OccurrenceDedupKey(7)}
	ok, err := repo.TryClaim(ctx, sent)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.MarkSent(ctx, sent.ID, "4242", 2, time.Now()))

	failed := &notification.LogEntry{Type: notification.TypeOverdue, Channel: notification.ChannelTelegram, BucketDate: bucket, DedupKey: notification.OccurrenceDedupKey(8)}
	ok, err = repo.TryClaim(ctx, failed)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.MarkError(ctx, failed.ID, "chat not found", 1))

	got, err := repo.GetLogEntry(ctx, notification.TypeOverdue, notification.ChannelTelegram, bucket, "occ:7")
	require.NoError(t, err)
	assert.Equal(t, notification.DeliverySent, got.Status)
	assert.Equal(t, "4242", got.TelegramMessageID.String)
	assert.Equal(t, 2, got.AttemptCount)
	assert.True(t, got.DeliveredAt.Valid)

	entries, err := repo.ListLogByBucket(ctx, bucket)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, notification.DeliveryError, entries[1].Status)
	assert.Equal(t, "chat not found", entries[1].ErrorMessage.String)
	assert.False(t, entries[1].DeliveredAt.Valid)

	_, err = repo.GetLogEntry(ctx, notification.TypeDueSoon, notification.ChannelTelegram, bucket, "occ:7")
	assert.ErrorIs(t, err, ErrLogEntryNotFound)
}

func TestNotificationRepository_Inbox(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(newTestDB(t))

	for _, title := range []string{"Due soon", "Overdue"} {
		require.NoError(t, repo.CreateNotification(ctx, &notification.Notification{Type: notification.TypeDueSoon, Title: title, Body: "..."}))
	}
	unread, err := repo.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	items, err := repo.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	n, err := repo.MarkAllNotificationsRead(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err = repo.ListNotifications(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsRead)
	assert.True(t, items[0].ReadAt.Valid)
	assert.False(t, items[0].OccurrenceID.Valid)
}

func TestJobRunRepository_TryInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRunRepository(newTestDB(t))
	day := calendar.MustParse("2026-02-10")

	ok, err := repo.TryInsert(ctx, &jobrun.JobRun{JobName: jobrun.JobGenerateAhead, RunDate: day, RunID: "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryInsert(ctx, &jobrun.JobRun{JobName: jobrun.JobGenerateAhead, RunDate: day, RunID: "b"})
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := repo.Exists(ctx, jobrun.JobGenerateAhead, day)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, jobrun.JobDailySummary, day)
	require.NoError(t, err)
	assert.False(t, exists)

	runs, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].RunID)
	assert.Equal(t, day, runs[0].RunDate)
}

func TestSettingsRepository_SeedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestDB(t))

	_, err := repo.GetPaySchedule(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	seedSchedule := &settings.PaySchedule{AnchorPayday: calendar.MustParse("2026-01-15"), Timezone: "America/Los_Angeles"}
	seedApp := &settings.AppSettings{DueSoonDays: 5, DailySummaryTime: "07:00", GenerationHorizonDays: 90}
	require.NoError(t, repo.EnsureDefaults(ctx, seedSchedule, seedApp))

	app, err := repo.GetAppSettings(ctx)
	require.NoError(t, err)
	app.DueSoonDays = 3
	app.TelegramEnabled = true
	app.TelegramChatID = "12345"
	require.NoError(t, repo.UpdateAppSettings(ctx, app))

	// Re-seeding never overwrites edits.
	require.NoError(t, repo.EnsureDefaults(ctx, seedSchedule, seedApp))
	app, err = repo.GetAppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, app.DueSoonDays)
	assert.True(t, app.TelegramEnabled)
	assert.Equal(t, "12345", app.TelegramChatID)

	schedule, err := repo.GetPaySchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15", schedule.AnchorPayday.String())

	schedule.AnchorPayday = calendar.MustParse("2026-01-22")
	require.NoError(t, repo.UpdatePaySchedule(ctx, schedule))
	schedule, err = repo.GetPaySchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-22", schedule.AnchorPayday.String())
}
