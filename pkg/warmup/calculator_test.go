package warmup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/models"
)

func testPhases() []models.Phase {
	return []models.Phase{
		{Name: "observe", Days: [2]int{1, 3}},
		{Name: "ramp", Days: [2]int{4, 10}},
		{Name: "steady", Days: [2]int{11, 14}},
	}
}

func TestCurrentPhase(t *testing.T) {
	testCases := []struct {
		name      string
		day       int
		wantPhase string
		wantIndex int
		wantOK    bool
	}{
		{"first day", 1, "observe", 1, true},
		{"phase boundary start", 4, "ramp", 2, true},
		{"middle of ramp", 8, "ramp", 2, true},
		{"phase boundary end", 10, "ramp", 2, true},
		{"last day", 14, "steady", 3, true},
		{"past the template", 15, "", 0, false},
		{"day zero", 0, "", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, ok := CurrentPhase(testPhases(), tc.day)

			require.Equal(t, tc.wantOK, ok)

			if ok {
				assert.Equal(t, tc.wantPhase, ref.Phase.Name)
				assert.Equal(t, tc.wantIndex, ref.Index)
			}
		})
	}
}

func TestNextRun_RunAtPicksNextTimeToday(t *testing.T) {
	schedule := models.Schedule{Timezone: "UTC", RunAt: []string{"18:00", "09:00"}}
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(schedule, now)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC), next)
}

func TestNextRun_RunAtRollsToTomorrow(t *testing.T) {
	schedule := models.Schedule{Timezone: "UTC", RunAt: []string{"09:00", "18:00"}}
	now := time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC)

	next, err := NextRun(schedule, now)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRun_RunAtHonorsTimezone(t *testing.T) {
	schedule := models.Schedule{Timezone: "America/New_York", RunAt: []string{"09:00"}}
	// 08:00 in New York (13:00 UTC during DST).
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	next, err := NextRun(schedule, now)

	require.NoError(t, err)

	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 9, 0, 0, 0, location), next.In(location))
}

func TestNextRun_InvalidTimezone(t *testing.T) {
	_, err := NextRun(models.Schedule{Timezone: "Mars/Olympus"}, time.Now())

	require.Error(t, err)
}

func TestNextRun_CronTakesPrecedence(t *testing.T) {
	schedule := models.Schedule{Timezone: "UTC", Cron: "0 9 * * *", RunAt: []string{"18:00"}}
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(schedule, now)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRun_InvalidCron(t *testing.T) {
	_, err := NextRun(models.Schedule{Cron: "not a cron"}, time.Now())

	require.Error(t, err)
}

func TestNextRun_NoScheduleDefaultsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	next, err := NextRun(models.Schedule{}, now)

	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), next)
}

func TestNextRun_JitterStaysWithinBound(t *testing.T) {
	schedule := models.Schedule{Timezone: "UTC", RunAt: []string{"09:00"}, RandomDelay: 10}
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for range 50 {
		next, err := NextRun(schedule, now)
		require.NoError(t, err)

		offset := next.Sub(anchor)
		assert.LessOrEqual(t, offset.Abs(), 10*time.Minute)
	}
}

func TestRandomActionCount(t *testing.T) {
	assert.Equal(t, 5, RandomActionCount(models.RangeBudget(5, 5)))
	assert.Equal(t, 7, RandomActionCount(models.RangeBudget(7, 2)), "degenerate range returns min")

	for range 50 {
		n := RandomActionCount(models.RangeBudget(2, 6))
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 6)
	}
}
