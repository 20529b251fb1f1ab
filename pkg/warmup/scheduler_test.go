package warmup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/browser/sim"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/testutil"
	"github.com/emberflow/emberflow/pkg/totp"
)

func newSchedulerFixture(t *testing.T, profiles ProfileSource) (*Scheduler, *testutil.MemoryPersistence) {
	t.Helper()

	store := testutil.NewMemoryPersistence()
	logger := log.WithModule("test")
	login := NewLoginHandler(store.Cookies(), totp.New(), logger)
	executor := NewExecutor(login, logger)

	scheduler := NewScheduler(store, profiles, sim.NewManager(), executor, nil, time.Minute, logger)

	return scheduler, store
}

func schedulerTemplate(t *testing.T, store *testutil.MemoryPersistence, totalDays int) *models.WarmupTemplate {
	t.Helper()

	phases := []models.Phase{{
		Name: "observe",
		Days: [2]int{1, totalDays},
		DailyActions: map[string]models.ActionBudget{
			"browse_feed": models.RangeBudget(1, 1),
		},
	}}

	template := &models.WarmupTemplate{
		Name:      "twitter-short",
		Platform:  "twitter",
		TotalDays: totalDays,
		Phases:    phases,
	}

	require.NoError(t, store.WarmupTemplates().Save(context.Background(), template))

	return template
}

func schedulerProfiles() testutil.StaticProfiles {
	return testutil.StaticProfiles{Profiles: map[string]browser.Profile{
		"p1": {ID: "p1", Platform: "twitter"},
	}}
}

func waitForStatus(t *testing.T, store *testutil.MemoryPersistence, id string, want models.WarmupStatus) *models.WarmupProgress {
	t.Helper()

	var record *models.WarmupProgress

	require.Eventually(t, func() bool {
		loaded, err := store.WarmupProgress().ByID(context.Background(), id)
		if err != nil {
			return false
		}

		record = loaded

		return loaded.Status == want
	}, 2*time.Second, 10*time.Millisecond)

	return record
}

func TestScheduler_TickRunsDueRecordToCompletion(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.Tick(context.Background())

	final := waitForStatus(t, store, record.ID, models.WarmupCompleted)

	assert.Equal(t, 2, final.CurrentDay)
	require.Len(t, final.DailyLogs, 1)
	assert.Equal(t, models.DayCompleted, final.DailyLogs[0].Status)
	assert.NotNil(t, final.CompletedAt)
	assert.Nil(t, final.NextRunAt)
}

func TestScheduler_TickSkipsFutureRecords(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	future := time.Now().UTC().Add(time.Hour)
	record.NextRunAt = &future
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.Tick(context.Background())

	assert.Empty(t, scheduler.InFlight())
	assert.Equal(t, models.WarmupPending, record.Status)
	assert.Empty(t, record.DailyLogs)
}

// A record already in flight must never be dispatched twice.
func TestScheduler_DispatchSkipsInflightRecord(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.mu.Lock()
	scheduler.inflight[record.ID] = func() {}
	scheduler.mu.Unlock()

	err := scheduler.dispatch(context.Background(), record)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	scheduler.Tick(context.Background())

	assert.Contains(t, scheduler.InFlight(), record.ID)
	assert.Equal(t, models.WarmupPending, record.Status, "a second execution must not start")
	assert.Empty(t, record.DailyLogs)
}

// A record persisted as running when a previous process died must be
// picked up again on the next poll.
func TestScheduler_RedispatchesOrphanedRunningRecord(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, record.Transition(models.WarmupRunning))
	past := time.Now().UTC().Add(-time.Hour)
	record.NextRunAt = &past
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.Tick(context.Background())

	final := waitForStatus(t, store, record.ID, models.WarmupCompleted)

	require.Len(t, final.DailyLogs, 1)
	assert.Equal(t, 2, final.CurrentDay)
}

func TestScheduler_AdvancesToNextDay(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 2)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.Tick(context.Background())

	require.Eventually(t, func() bool {
		loaded, err := store.WarmupProgress().ByID(context.Background(), record.ID)

		return err == nil && loaded.Status == models.WarmupPending && loaded.CurrentDay == 2
	}, 2*time.Second, 10*time.Millisecond)

	loaded, err := store.WarmupProgress().ByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.NextRunAt, "an unfinished warmup must stay scheduled")
	assert.True(t, loaded.NextRunAt.After(time.Now().UTC()))
	require.Len(t, loaded.DailyLogs, 1)
}

func TestScheduler_MissingProfileFailsRecord(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, testutil.StaticProfiles{})
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "ghost")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	scheduler.Tick(context.Background())

	final := waitForStatus(t, store, record.ID, models.WarmupFailed)

	assert.Contains(t, final.LastError, "load profile")
}

func TestScheduler_PauseAndResume(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	require.NoError(t, scheduler.Pause(context.Background(), record.ID))
	assert.Equal(t, models.WarmupPaused, record.Status)

	before := time.Now().UTC()
	require.NoError(t, scheduler.Resume(context.Background(), record.ID))
	assert.Equal(t, models.WarmupPending, record.Status)
	require.NotNil(t, record.NextRunAt)
	assert.False(t, record.NextRunAt.Before(before), "resume must make the record due immediately")
}

func TestScheduler_ResumeRunningRecordRejected(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, record.Transition(models.WarmupRunning))
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	err := scheduler.Resume(context.Background(), record.ID)

	var invalid *models.InvalidTransitionError

	require.ErrorAs(t, err, &invalid)
}

func TestScheduler_StopMarksRecordFailed(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	require.NoError(t, scheduler.Stop(context.Background(), record.ID))

	assert.Equal(t, models.WarmupFailed, record.Status)
	assert.Equal(t, "stopped by user", record.LastError)
	assert.Nil(t, record.NextRunAt)
}

func TestScheduler_StopCompletedRecordRejected(t *testing.T) {
	scheduler, store := newSchedulerFixture(t, schedulerProfiles())
	template := schedulerTemplate(t, store, 1)

	record := NewProgress(template.ID, "p1")
	require.NoError(t, record.Transition(models.WarmupRunning))
	require.NoError(t, record.Transition(models.WarmupCompleted))
	require.NoError(t, store.WarmupProgress().Save(context.Background(), record))

	err := scheduler.Stop(context.Background(), record.ID)

	var invalid *models.InvalidTransitionError

	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.WarmupCompleted, record.Status, "completed stays terminal")
	assert.Empty(t, record.LastError)
}

func TestScheduler_StopUnknownRecord(t *testing.T) {
	scheduler, _ := newSchedulerFixture(t, schedulerProfiles())

	err := scheduler.Stop(context.Background(), "missing")

	require.Error(t, err)
}

func TestNewProgress(t *testing.T) {
	record := NewProgress("tpl-1", "p1")

	assert.Equal(t, models.WarmupPending, record.Status)
	assert.Equal(t, 1, record.CurrentDay)
	assert.Equal(t, 1, record.CurrentPhase)
	require.NotNil(t, record.NextRunAt)
	assert.False(t, record.NextRunAt.After(time.Now().UTC()))
}
