package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 450, m)

	_, err = ParseClock("7pm")
	assert.Error(t, err)
}

func TestSummaryReady(t *testing.T) {
	s := &AppSettings{DailySummaryTime: "07:00"}
	loc := time.UTC
	assert.False(t, s.SummaryReady(time.Date(2026, 2, 1, 6, 59, 0, 0, loc)))
	assert.True(t, s.SummaryReady(time.Date(2026, 2, 1, 7, 0, 0, 0, loc)))
	assert.True(t, s.SummaryReady(time.Date(2026, 2, 1, 23, 15, 0, 0, loc)))
}

func TestPaySchedule_LocationFallsBackToUTC(t *testing.T) {
	s := &PaySchedule{AnchorPayday: calendar.MustParse("2026-01-15"), Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, s.Location())

	s.Timezone = "America/Los_Angeles"
	assert.Equal(t, "America/Los_Angeles", s.Location().String())
	assert.Equal(t, "2026-01-15", s.Calculator().CycleFor(calendar.MustParse("2026-01-10")).End.String())
}
