package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
)

func newTestRegistry() *Registry {
	return NewRegistry(log.WithModule("test"))
}

func TestRegistry_Handler_UnknownKind(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Handler("teleport")

	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_Known_CoversWholeCatalog(t *testing.T) {
	registry := newTestRegistry()

	kinds := []string{
		KindNavigate, KindGoBack, KindForward, KindRefresh, KindNewTab, KindCloseTab,
		KindClick, KindType, KindFill, KindSelect, KindHover, KindScroll, KindPressKey, KindUpload,
		KindWaitElement, KindWaitTime, KindWaitNavigation, KindWaitNetworkIdle,
		KindWaitText, KindWaitURL, KindWaitFunction,
		KindGetText, KindGetAttribute, KindCountElements, KindSetVariable, KindCalculate,
		KindScreenshot, KindGetCookies, KindSetCookies, KindClearCookies, KindLog,
		KindJavascript, KindHTTPRequest, KindAssert,
		KindCondition, KindLoopCount, KindLoopArray, KindLoopElements, KindLoopWhile,
		KindTryCatch, KindBreak, KindContinue, KindStop,
	}

	for _, kind := range kinds {
		assert.True(t, registry.Known(kind), "kind %q must be in the catalog", kind)
	}

	assert.False(t, registry.Known("teleport"))
}

func TestRegistry_ValidateWorkflow_UnknownKindFails(t *testing.T) {
	registry := newTestRegistry()

	workflow := &models.Workflow{
		Name: "bad",
		Steps: []*models.Step{
			{ID: "a", Type: "navigate", Config: map[string]any{"url": "https://x"}},
			{ID: "b", Type: "teleport"},
		},
	}

	err := registry.ValidateWorkflow(workflow)

	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), "step b")
}

func TestRegistry_ValidateWorkflow_ChecksNestedBranches(t *testing.T) {
	registry := newTestRegistry()

	workflow := &models.Workflow{
		Name: "nested-bad",
		Steps: []*models.Step{
			{
				ID:     "root",
				Type:   KindCondition,
				Config: map[string]any{"expression": "true"},
				Else: []*models.Step{
					{ID: "broken", Type: KindClick, Config: map[string]any{}},
				},
			},
		},
	}

	err := registry.ValidateWorkflow(workflow)

	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegistry_ValidateWorkflow_DuplicateIDs(t *testing.T) {
	registry := newTestRegistry()

	workflow := &models.Workflow{
		Name: "dup",
		Steps: []*models.Step{
			{ID: "x", Type: KindRefresh},
			{ID: "x", Type: KindRefresh},
		},
	}

	var dup *models.DuplicateStepIDError

	require.ErrorAs(t, registry.ValidateWorkflow(workflow), &dup)
}

func TestValidateControl(t *testing.T) {
	testCases := []struct {
		name    string
		step    *models.Step
		wantErr bool
	}{
		{
			name:    "condition without predicate",
			step:    &models.Step{ID: "c", Type: KindCondition, Config: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "condition with selector",
			step:    &models.Step{ID: "c", Type: KindCondition, Config: map[string]any{"selector": "#x"}},
			wantErr: false,
		},
		{
			name:    "loop-count negative",
			step:    &models.Step{ID: "l", Type: KindLoopCount, Config: map[string]any{"count": -1}},
			wantErr: true,
		},
		{
			name:    "loop-count ok",
			step:    &models.Step{ID: "l", Type: KindLoopCount, Config: map[string]any{"count": 3}},
			wantErr: false,
		},
		{
			name:    "loop-array missing items",
			step:    &models.Step{ID: "l", Type: KindLoopArray, Config: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "loop-while without predicate",
			step:    &models.Step{ID: "l", Type: KindLoopWhile, Config: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "break needs nothing",
			step:    &models.Step{ID: "b", Type: KindBreak},
			wantErr: false,
		},
	}

	registry := newTestRegistry()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := registry.ValidateStep(tc.step)

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
