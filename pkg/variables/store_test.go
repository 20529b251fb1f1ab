package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberflow/emberflow/pkg/log"
	"github.com/emberflow/emberflow/pkg/models"
)

func newTestStore() *Store {
	return NewStore(log.WithModule("test"))
}

func newTestContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ID:         "exec-test",
		WorkflowID: "wf-test",
		Variables:  map[string]any{},
	}
}

func TestResolve_SimpleVariable(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.Variables["username"] = "kate"

	assert.Equal(t, "hello kate", store.Resolve("hello {{username}}", ectx))
}

func TestResolve_UnresolvablePathBecomesEmpty(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()

	result := store.Resolve("value=[{{nope.deep.path}}]", ectx)

	assert.Equal(t, "value=[]", result)
	require.NotEmpty(t, ectx.Logs, "unresolvable path must be logged to the run trail")
	assert.Equal(t, "warn", ectx.Logs[0].Level)
}

func TestResolve_DottedPathIntoStructuredVariable(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.Variables["response"] = map[string]any{
		"body": map[string]any{"token": "abc123"},
	}

	assert.Equal(t, "abc123", store.Resolve("{{response.body.token}}", ectx))
}

func TestResolve_Transforms(t *testing.T) {
	store := newTestStore()

	testCases := []struct {
		name     string
		template string
		vars     map[string]any
		want     string
	}{
		{"uppercase", "{{name|uppercase}}", map[string]any{"name": "kate"}, "KATE"},
		{"lowercase", "{{name|lowercase}}", map[string]any{"name": "KATE"}, "kate"},
		{"trim", "{{name|trim}}", map[string]any{"name": "  x  "}, "x"},
		{"truncate", "{{name|truncate(3)}}", map[string]any{"name": "abcdef"}, "abc"},
		{"replace", "{{name|replace(a,o)}}", map[string]any{"name": "banana"}, "bonono"},
		{"chained", "{{name|trim|uppercase}}", map[string]any{"name": " hi "}, "HI"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ectx := newTestContext()
			ectx.Variables = tc.vars

			assert.Equal(t, tc.want, store.Resolve(tc.template, ectx))
		})
	}
}

func TestResolve_UnknownTransformPassesThrough(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.Variables["name"] = "kate"

	assert.Equal(t, "kate", store.Resolve("{{name|sparkle}}", ectx))
	require.NotEmpty(t, ectx.Logs)
}

func TestResolve_LoopScopeWinsOverVariables(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.PushLoop(models.LoopFrame{Index: 2, Count: 5, Item: "carrot"})

	assert.Equal(t, "2", store.Resolve("{{loop.index}}", ectx))
	assert.Equal(t, "5", store.Resolve("{{loop.count}}", ectx))
	assert.Equal(t, "false", store.Resolve("{{loop.first}}", ectx))
	assert.Equal(t, "false", store.Resolve("{{loop.last}}", ectx))
	assert.Equal(t, "carrot", store.Resolve("{{loop.item}}", ectx))

	ectx.SetLoopIndex(4, "end")
	assert.Equal(t, "true", store.Resolve("{{loop.last}}", ectx))
}

func TestResolve_LoopItemPath(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.PushLoop(models.LoopFrame{Index: 0, Count: 1, Item: map[string]any{"url": "https://a"}})

	assert.Equal(t, "https://a", store.Resolve("{{loop.item.url}}", ectx))
}

func TestResolve_NoLoopScopeOutsideLoop(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()

	assert.Equal(t, "", store.Resolve("{{loop.index}}", ectx))
}

func TestResolve_Builtins(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()

	assert.Equal(t, "exec-test", store.Resolve("{{execution.id}}", ectx))
	assert.Equal(t, "wf-test", store.Resolve("{{workflow.id}}", ectx))
	assert.NotEmpty(t, store.Resolve("{{uuid}}", ectx))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, store.Resolve("{{date}}", ectx))
}

func TestResolveValue_PreservesTypes(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.Variables["count"] = 7
	ectx.Variables["items"] = []any{"a", "b"}

	assert.Equal(t, 7, store.ResolveValue("{{count}}", ectx))
	assert.Equal(t, []any{"a", "b"}, store.ResolveValue("{{items}}", ectx))
	assert.Equal(t, "7!", store.ResolveValue("{{count}}!", ectx), "mixed template renders as string")
}

func TestResolveConfig_DeepResolution(t *testing.T) {
	store := newTestStore()
	ectx := newTestContext()
	ectx.Variables["base"] = "https://example.com"
	ectx.Variables["page"] = 3

	config := map[string]any{
		"url":  "{{base}}/feed",
		"meta": map[string]any{"page": "{{page}}"},
		"list": []any{"{{base}}", 42},
	}

	resolved := store.ResolveConfig(config, ectx)

	assert.Equal(t, "https://example.com/feed", resolved["url"])
	assert.Equal(t, 3, resolved["meta"].(map[string]any)["page"])
	assert.Equal(t, "https://example.com", resolved["list"].([]any)[0])
	assert.Equal(t, 42, resolved["list"].([]any)[1])
}
