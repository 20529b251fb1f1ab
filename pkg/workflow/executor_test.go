package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/browser/sim"
	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/variables"
)

func newTestExecutor() *Executor {
	logger := log.WithModule("test")

	return NewExecutor(actions.NewRegistry(logger), variables.NewStore(logger), nil, logger)
}

func newTestSession(t *testing.T) *sim.Session {
	t.Helper()

	session, err := sim.NewManager().CreateContext(context.Background(), browser.Profile{ID: "p1"})
	require.NoError(t, err)

	return session.(*sim.Session)
}

func step(id, kind string, config map[string]any) *models.Step {
	return &models.Step{ID: id, Type: kind, Config: config}
}

func TestExecute_StepsRunInDeclarationOrder(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-order",
		Name: "order",
		Steps: []*models.Step{
			step("s1", "navigate", map[string]any{"url": "https://one"}),
			step("s2", "navigate", map[string]any{"url": "https://two"}),
			step("s3", "refresh", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{ID: "p1"})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{
		report.Results[0].StepID, report.Results[1].StepID, report.Results[2].StepID,
	})
	assert.Equal(t, []string{"navigate:https://one", "navigate:https://two", "refresh"}, session.ActivePage().Actions)
}

func TestExecute_InvalidWorkflowFailsBeforeAnyStep(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-bad",
		Name: "bad",
		Steps: []*models.Step{
			step("s1", "navigate", map[string]any{"url": "https://one"}),
			step("s2", "teleport", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	assert.Equal(t, models.ExecutionFailed, report.Status)
	assert.Empty(t, report.Results, "validation failure must precede execution")
	assert.Empty(t, session.ActivePage().Actions)
}

func TestExecute_LoopCount_IndicesAndScope(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-loop",
		Name: "loop",
		Steps: []*models.Step{
			{
				ID:     "loop",
				Type:   "loop-count",
				Config: map[string]any{"count": 3},
				Then: []*models.Step{
					step("visit", "navigate", map[string]any{"url": "https://site/{{loop.index}}"}),
				},
			},
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Equal(t, []string{
		"navigate:https://site/0",
		"navigate:https://site/1",
		"navigate:https://site/2",
	}, session.ActivePage().Actions)

	last := report.Results[len(report.Results)-1]
	assert.Equal(t, "loop", last.StepID)
	assert.Equal(t, map[string]any{"iterations": 3}, last.Output)
}

func TestExecute_LoopArray_BindsItems(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-items",
		Name: "items",
		Steps: []*models.Step{
			{
				ID:     "loop",
				Type:   "loop-array",
				Config: map[string]any{"items": []any{"alpha", "beta"}},
				Then: []*models.Step{
					step("visit", "navigate", map[string]any{"url": "https://site/{{loop.item}}"}),
				},
			},
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Equal(t, []string{
		"navigate:https://site/alpha",
		"navigate:https://site/beta",
	}, session.ActivePage().Actions)
}

func TestExecute_Condition_ExactlyOneBranch(t *testing.T) {
	testCases := []struct {
		name       string
		expression string
		wantAction string
	}{
		{"true takes then", "1 < 2", "navigate:https://then"},
		{"false takes else", "1 > 2", "navigate:https://else"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			executor := newTestExecutor()
			session := newTestSession(t)

			workflow := &models.Workflow{
				ID:   "wf-cond",
				Name: "cond",
				Steps: []*models.Step{
					{
						ID:     "branch",
						Type:   "condition",
						Config: map[string]any{"expression": tc.expression},
						Then:   []*models.Step{step("t", "navigate", map[string]any{"url": "https://then"})},
						Else:   []*models.Step{step("e", "navigate", map[string]any{"url": "https://else"})},
					},
				},
			}

			report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

			require.Equal(t, models.ExecutionCompleted, report.Status)
			assert.Equal(t, []string{tc.wantAction}, session.ActivePage().Actions, "exactly one branch must run")
		})
	}
}

func TestExecute_TryCatch_RecoversAndContinues(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)
	session.ActivePage().Fail["#broken"] = browser.ErrElementNotFound

	workflow := &models.Workflow{
		ID:   "wf-try",
		Name: "try",
		Steps: []*models.Step{
			{
				ID:   "guard",
				Type: "try-catch",
				Then: []*models.Step{step("risky", "click", map[string]any{"selector": "#broken"})},
				Else: []*models.Step{step("recover", "navigate", map[string]any{"url": "https://fallback"})},
			},
			step("after", "refresh", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Contains(t, session.ActivePage().Actions, "navigate:https://fallback")
	assert.Contains(t, session.ActivePage().Actions, "refresh")

	var guard *models.StepResult

	for i := range report.Results {
		if report.Results[i].StepID == "guard" {
			guard = &report.Results[i]
		}
	}

	require.NotNil(t, guard)
	assert.Equal(t, true, guard.Output.(map[string]any)["caught"])
}

func TestExecute_UncaughtFailureKeepsPartialResults(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)
	session.ActivePage().Fail["#broken"] = browser.ErrElementNotFound

	workflow := &models.Workflow{
		ID:   "wf-fail",
		Name: "fail",
		Steps: []*models.Step{
			step("ok", "navigate", map[string]any{"url": "https://one"}),
			step("bad", "click", map[string]any{"selector": "#broken"}),
			step("never", "refresh", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	assert.Equal(t, models.ExecutionFailed, report.Status)
	require.Len(t, report.Results, 2, "results before the failure are retained, later steps never run")
	assert.True(t, report.Results[0].Success)
	assert.False(t, report.Results[1].Success)
	assert.NotContains(t, session.ActivePage().Actions, "refresh")
}

func TestExecute_StopHaltsWithStoppedStatus(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-stop",
		Name: "stop",
		Steps: []*models.Step{
			step("first", "navigate", map[string]any{"url": "https://one"}),
			step("halt", "stop", nil),
			step("never", "refresh", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	assert.Equal(t, models.ExecutionStopped, report.Status)
	assert.NotContains(t, session.ActivePage().Actions, "refresh")
}

func TestExecute_BreakLeavesLoopOnly(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-break",
		Name: "break",
		Steps: []*models.Step{
			{
				ID:     "loop",
				Type:   "loop-count",
				Config: map[string]any{"count": 5},
				Then: []*models.Step{
					step("visit", "navigate", map[string]any{"url": "https://site/{{loop.index}}"}),
					{
						ID:     "maybe-break",
						Type:   "condition",
						Config: map[string]any{"expression": "loop.index >= 1"},
						Then:   []*models.Step{step("out", "break", nil)},
					},
				},
			},
			step("after", "refresh", nil),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Contains(t, session.ActivePage().Actions, "navigate:https://site/1")
	assert.NotContains(t, session.ActivePage().Actions, "navigate:https://site/2")
	assert.Contains(t, session.ActivePage().Actions, "refresh", "break must not halt the workflow")
}

func TestExecute_LoopWhile_CeilingGuardsInfiniteLoops(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:   "wf-while",
		Name: "while",
		Steps: []*models.Step{
			{
				ID:     "forever",
				Type:   "loop-while",
				Config: map[string]any{"expression": "true"},
				Then:   []*models.Step{step("noop", "scroll", map[string]any{"y": 1})},
			},
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	assert.Equal(t, models.ExecutionFailed, report.Status)
	assert.Contains(t, report.Error, ErrLoopCeiling.Error())
}

func TestExecute_CancelledContext(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	workflow := &models.Workflow{
		ID:    "wf-cancel",
		Name:  "cancel",
		Steps: []*models.Step{step("s1", "navigate", map[string]any{"url": "https://one"})},
	}

	report := executor.Execute(ctx, workflow, session, browser.Profile{})

	assert.Equal(t, models.ExecutionCancelled, report.Status)
	assert.Empty(t, session.ActivePage().Actions)
}

func TestExecute_ProfileVariablesSeeded(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	profile := browser.Profile{ID: "p9", Name: "warm-account", Platform: "twitter", Username: "kate"}

	workflow := &models.Workflow{
		ID:   "wf-profile",
		Name: "profile",
		Steps: []*models.Step{
			step("visit", "navigate", map[string]any{"url": "https://site/{{profile.username}}"}),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, profile)

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Contains(t, session.ActivePage().Actions, "navigate:https://site/kate")
}

func TestExecute_WorkflowVariableDefaults(t *testing.T) {
	executor := newTestExecutor()
	session := newTestSession(t)

	workflow := &models.Workflow{
		ID:        "wf-vars",
		Name:      "vars",
		Variables: []models.Variable{{Name: "target", DefaultValue: "https://defaulted"}},
		Steps: []*models.Step{
			step("visit", "navigate", map[string]any{"url": "{{target}}"}),
		},
	}

	report := executor.Execute(context.Background(), workflow, session, browser.Profile{})

	require.Equal(t, models.ExecutionCompleted, report.Status)
	assert.Equal(t, []string{"navigate:https://defaulted"}, session.ActivePage().Actions)
}
