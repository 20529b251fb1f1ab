package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	store, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return store
}

func TestNewPersistence_FileURLPrefix(t *testing.T) {
	root := t.TempDir()

	store, err := NewPersistence("file://" + root)
	require.NoError(t, err)

	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		Name:      "warm the feed",
		Variables: []models.Variable{{Name: "target", DefaultValue: "https://x.com"}},
		Steps: []*models.Step{
			{ID: "visit", Type: "navigate", Config: map[string]any{"url": "{{target}}"}},
		},
	}

	require.NoError(t, store.Workflows().Save(ctx, workflow))
	assert.NotEmpty(t, workflow.ID, "save assigns an ID")
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := store.Workflows().ByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "visit", loaded.Steps[0].ID)
	assert.Equal(t, "{{target}}", loaded.Steps[0].Config["url"])
}

func TestWorkflowRepository_SaveKeepsID(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{Name: "v1"}
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	id := workflow.ID
	workflow.Name = "v2"
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	assert.Equal(t, id, workflow.ID)

	all, err := store.Workflows().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Name)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	store := newTestPersistence(t)

	_, err := store.Workflows().ByID(context.Background(), "missing")

	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	assert.True(t, persistence.IsNotFound(err))
}

func TestWorkflowRepository_DeleteMissing(t *testing.T) {
	store := newTestPersistence(t)

	err := store.Workflows().Delete(context.Background(), "missing")

	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWarmupTemplateRepository_RoundTrip(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	template := &models.WarmupTemplate{
		Name:      "instagram-21d",
		Platform:  "instagram",
		TotalDays: 21,
		Phases: []models.Phase{{
			Name: "observe",
			Days: [2]int{1, 21},
			DailyActions: map[string]models.ActionBudget{
				"login":       models.BoolBudget(true),
				"browse_feed": models.RangeBudget(2, 5),
			},
		}},
		Schedule: models.Schedule{Timezone: "UTC", RunAt: []string{"09:00"}, RandomDelay: 15},
	}

	require.NoError(t, store.WarmupTemplates().Save(ctx, template))

	loaded, err := store.WarmupTemplates().ByID(ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Phases, 1)
	assert.True(t, loaded.Phases[0].RequiresLogin())
	assert.Equal(t, models.RangeBudget(2, 5), loaded.Phases[0].DailyActions["browse_feed"])
	assert.Equal(t, 15, loaded.Schedule.RandomDelay)
}

func TestWarmupProgressRepository_ActiveFilter(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	statuses := []models.WarmupStatus{
		models.WarmupPending,
		models.WarmupRunning,
		models.WarmupPaused,
		models.WarmupCompleted,
		models.WarmupFailed,
	}

	for _, status := range statuses {
		record := &models.WarmupProgress{WarmupID: "tpl", ProfileID: "p-" + string(status), Status: status}
		require.NoError(t, store.WarmupProgress().Save(ctx, record))
	}

	active, err := store.WarmupProgress().Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	for _, record := range active {
		assert.Contains(t, []models.WarmupStatus{models.WarmupPending, models.WarmupRunning}, record.Status)
	}
}

func TestWarmupProgressRepository_ByProfile(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	for _, profileID := range []string{"p1", "p1", "p2"} {
		record := &models.WarmupProgress{WarmupID: "tpl", ProfileID: profileID, Status: models.WarmupPending}
		require.NoError(t, store.WarmupProgress().Save(ctx, record))
	}

	matched, err := store.WarmupProgress().ByProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestWarmupProgressRepository_DailyLogsSurviveReload(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	record := &models.WarmupProgress{WarmupID: "tpl", ProfileID: "p1", Status: models.WarmupRunning}
	record.AppendDailyLog(models.DailyLog{
		Day:     1,
		Status:  models.DayCompleted,
		Actions: map[string]int{"browse_feed": 3},
	})

	require.NoError(t, store.WarmupProgress().Save(ctx, record))

	loaded, err := store.WarmupProgress().ByID(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, loaded.DailyLogs, 1)
	assert.Equal(t, 3, loaded.DailyLogs[0].Actions["browse_feed"])
}

func TestCookieRepository_RoundTrip(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	jar := []browser.Cookie{
		{Name: "auth_token", Value: "tok", Domain: ".x.com", Path: "/", Secure: true, HTTPOnly: true},
	}

	require.NoError(t, store.Cookies().Save(ctx, "p1", "twitter", jar))

	loaded, err := store.Cookies().Get(ctx, "p1", "twitter")
	require.NoError(t, err)
	assert.Equal(t, jar, loaded)

	// Same profile on another platform is a separate jar.
	_, err = store.Cookies().Get(ctx, "p1", "instagram")
	require.ErrorIs(t, err, persistence.ErrCookiesNotFound)

	require.NoError(t, store.Cookies().Delete(ctx, "p1", "twitter"))

	_, err = store.Cookies().Get(ctx, "p1", "twitter")
	require.ErrorIs(t, err, persistence.ErrCookiesNotFound)
}

func TestExecutionRepository_ByWorkflow(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	reports := []*models.ExecutionReport{
		{ExecutionID: "exec-1", WorkflowID: "wf-a", Status: models.ExecutionCompleted, StartedAt: time.Now().UTC()},
		{ExecutionID: "exec-2", WorkflowID: "wf-a", Status: models.ExecutionFailed, StartedAt: time.Now().UTC()},
		{ExecutionID: "exec-3", WorkflowID: "wf-b", Status: models.ExecutionCompleted, StartedAt: time.Now().UTC()},
	}

	for _, report := range reports {
		require.NoError(t, store.Executions().Save(ctx, report))
	}

	matched, err := store.Executions().ByWorkflow(ctx, "wf-a")
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	loaded, err := store.Executions().ByID(ctx, "exec-3")
	require.NoError(t, err)
	assert.Equal(t, "wf-b", loaded.WorkflowID)

	_, err = store.Executions().ByID(ctx, "exec-9")
	require.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}
