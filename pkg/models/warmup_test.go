package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmupStatus_CanTransition(t *testing.T) {
	testCases := []struct {
		name    string
		from    WarmupStatus
		to      WarmupStatus
		allowed bool
	}{
		{"pending to running", WarmupPending, WarmupRunning, true},
		{"pending to paused", WarmupPending, WarmupPaused, true},
		{"pending to completed", WarmupPending, WarmupCompleted, false},
		{"running to paused", WarmupRunning, WarmupPaused, true},
		{"running to completed", WarmupRunning, WarmupCompleted, true},
		{"running to failed", WarmupRunning, WarmupFailed, true},
		{"running to pending", WarmupRunning, WarmupPending, false},
		{"paused to running", WarmupPaused, WarmupRunning, true},
		{"paused to pending", WarmupPaused, WarmupPending, true},
		{"paused to completed", WarmupPaused, WarmupCompleted, false},
		{"completed is terminal", WarmupCompleted, WarmupRunning, false},
		{"failed to pending", WarmupFailed, WarmupPending, true},
		{"failed to running", WarmupFailed, WarmupRunning, true},
		{"failed to completed", WarmupFailed, WarmupCompleted, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to))
		})
	}
}

func TestWarmupProgress_Transition_Invalid(t *testing.T) {
	progress := &WarmupProgress{Status: WarmupCompleted}

	err := progress.Transition(WarmupRunning)

	var invalid *InvalidTransitionError

	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, WarmupCompleted, invalid.From)
	assert.Equal(t, WarmupRunning, invalid.To)
	assert.Equal(t, WarmupCompleted, progress.Status, "status must not change on invalid transition")
}

func TestWarmupProgress_Transition_Valid(t *testing.T) {
	progress := &WarmupProgress{Status: WarmupPending}

	require.NoError(t, progress.Transition(WarmupRunning))
	assert.Equal(t, WarmupRunning, progress.Status)
	assert.False(t, progress.UpdatedAt.IsZero())
}

func TestActionBudget_BooleanForm(t *testing.T) {
	var budget ActionBudget

	require.NoError(t, json.Unmarshal([]byte(`true`), &budget))
	assert.True(t, budget.IsBool())
	assert.True(t, budget.Enabled)

	encoded, err := json.Marshal(budget)
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(encoded))
}

func TestActionBudget_RangeForm(t *testing.T) {
	var budget ActionBudget

	require.NoError(t, json.Unmarshal([]byte(`{"min":3,"max":8}`), &budget))
	assert.False(t, budget.IsBool())
	assert.Equal(t, 3, budget.Min)
	assert.Equal(t, 8, budget.Max)

	encoded, err := json.Marshal(budget)
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":3,"max":8}`, string(encoded))
}

func TestActionBudget_RejectsOtherShapes(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"number", `5`},
		{"string", `"on"`},
		{"missing max", `{"min":1}`},
		{"array", `[1,2]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var budget ActionBudget

			err := json.Unmarshal([]byte(tc.raw), &budget)
			require.ErrorIs(t, err, ErrInvalidActionBudget)
		})
	}
}

func TestPhase_Contains(t *testing.T) {
	phase := Phase{Name: "ramp", Days: [2]int{4, 7}}

	assert.False(t, phase.Contains(3))
	assert.True(t, phase.Contains(4))
	assert.True(t, phase.Contains(7))
	assert.False(t, phase.Contains(8))
}

func TestPhase_RequiresLogin(t *testing.T) {
	withLogin := Phase{DailyActions: map[string]ActionBudget{"login": BoolBudget(true)}}
	loginOff := Phase{DailyActions: map[string]ActionBudget{"login": BoolBudget(false)}}
	noLogin := Phase{DailyActions: map[string]ActionBudget{"browse_feed": RangeBudget(1, 2)}}

	assert.True(t, withLogin.RequiresLogin())
	assert.False(t, loginOff.RequiresLogin())
	assert.False(t, noLogin.RequiresLogin())
}

func TestWarmupTemplate_RoundTrip(t *testing.T) {
	raw := `{
		"name": "twitter-14d",
		"platform": "twitter",
		"total_days": 14,
		"phases": [
			{
				"name": "observe",
				"days": [1, 3],
				"daily_actions": {"login": true, "browse_feed": {"min": 2, "max": 5}}
			}
		],
		"schedule": {"timezone": "America/New_York", "run_at": ["09:30", "18:00"], "random_delay": 45}
	}`

	var template WarmupTemplate

	require.NoError(t, json.Unmarshal([]byte(raw), &template))
	require.Len(t, template.Phases, 1)
	assert.True(t, template.Phases[0].DailyActions["login"].IsBool())
	assert.Equal(t, 5, template.Phases[0].DailyActions["browse_feed"].Max)

	encoded, err := json.Marshal(template)
	require.NoError(t, err)

	var again WarmupTemplate

	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.Equal(t, template.Phases, again.Phases)
	assert.Equal(t, template.Schedule, again.Schedule)
}
