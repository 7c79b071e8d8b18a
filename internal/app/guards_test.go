package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
)

func TestJobRunGuard_RunOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	guard := NewJobRunGuard(e.jobs, e.notifier.log)
	day := calendar.MustParse("2026-02-10")

	calls := 0
	job := func(context.Context) (bool, error) {
		calls++
		return true, nil
	}

	ran, err := guard.RunOnce(ctx, "test_job", day, job)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = guard.RunOnce(ctx, "test_job", day, job)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, calls)

	ran, err = guard.RunOnce(ctx, "test_job", day.AddDays(1), job)
	require.NoError(t, err)
	assert.True(t, ran, "a new day is a new claim")
	assert.Equal(t, 2, calls)
}

func TestJobRunGuard_DeferredAndFailedJobsStayUnclaimed(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	guard := NewJobRunGuard(e.jobs, e.notifier.log)
	day := calendar.MustParse("2026-02-10")

	ran, err := guard.RunOnce(ctx, "deferred", day, func(context.Context) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, ran)
	exists, err := e.jobs.Exists(ctx, "deferred", day)
	require.NoError(t, err)
	assert.False(t, exists)

	boom := errors.New("boom")
	_, err = guard.RunOnce(ctx, "failing", day, func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
	exists, err = e.jobs.Exists(ctx, "failing", day)
	require.NoError(t, err)
	assert.False(t, exists)

	ran, err = guard.RunOnce(ctx, "failing", day, func(context.Context) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, ran, "a failed job is retried by the next trigger")
}

func TestJobRunGuard_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	guard := NewJobRunGuard(e.jobs, e.notifier.log)
	day := calendar.MustParse("2026-02-10")

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := guard.TryClaim(ctx, "race", day)
			assert.NoError(t, err)
			if claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNotificationDedupGuard_TryClaim(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	guard := NewNotificationDedupGuard(e.notifs)
	day := calendar.MustParse("2026-02-10")
	p := e.addPayment(t, "Rent", "100", "2026-02-10", "one_time")
	_, err := e.generator.GenerateForPayment(ctx, p.ID, day, testHorizon)
	require.NoError(t, err)
	occ := e.occurrenceOn(t, p.ID, "2026-02-10", "scheduled")

	entry, err := guard.TryClaim(ctx, notification.TypeDueSoon, notification.ChannelTelegram, day, notification.OccurrenceDedupKey(occ.ID), occ.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, occ.ID, entry.OccurrenceID.Int64)

	again, err := guard.TryClaim(ctx, notification.TypeDueSoon, notification.ChannelTelegram, day, notification.OccurrenceDedupKey(occ.ID), occ.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	other, err := guard.TryClaim(ctx, notification.TypeDueSoon, notification.ChannelInApp, day, notification.OccurrenceDedupKey(occ.ID), occ.ID)
	require.NoError(t, err)
	assert.NotNil(t, other, "channels are claimed independently")

	nextDay, err := guard.TryClaim(ctx, notification.TypeDueSoon, notification.ChannelTelegram, day.AddDays(1), notification.OccurrenceDedupKey(occ.ID), occ.ID)
	require.NoError(t, err)
	assert.NotNil(t, nextDay)
}
