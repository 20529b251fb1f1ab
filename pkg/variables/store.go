// Package variables resolves {{token}} placeholders against loop-scoped,
// step-local and workflow variables plus built-ins, applying named
// transforms. Resolution never fails: unresolvable paths become the empty
// string and are logged as warnings.
package variables

import (
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/emberflow/emberflow/pkg/models"
	"github.com/google/uuid"
	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

type Store struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		logger: logger.With("module", "variables"),
		now:    time.Now,
	}
}

// Resolve replaces every {{path|transform...}} token in template with its
// string rendering. Unresolvable paths render as "" and the rest of the
// template is preserved.
func (s *Store) Resolve(template string, ectx *models.ExecutionContext) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		expr := strings.TrimSpace(token[2 : len(token)-2])

		return toString(s.evaluate(expr, ectx))
	})
}

// ResolveValue resolves a template that consists of exactly one token to
// its typed value, so numbers, arrays and objects survive config
// resolution. Anything else falls back to string resolution.
func (s *Store) ResolveValue(template string, ectx *models.ExecutionContext) any {
	trimmed := strings.TrimSpace(template)
	if match := tokenPattern.FindString(trimmed); match == trimmed && match != "" {
		expr := strings.TrimSpace(trimmed[2 : len(trimmed)-2])

		return s.evaluate(expr, ectx)
	}

	return s.Resolve(template, ectx)
}

// ResolveConfig deep-resolves every string value in a step configuration.
func (s *Store) ResolveConfig(config map[string]any, ectx *models.ExecutionContext) map[string]any {
	if config == nil {
		return nil
	}

	resolved := make(map[string]any, len(config))
	for key, value := range config {
		resolved[key] = s.resolveAny(value, ectx)
	}

	return resolved
}

func (s *Store) resolveAny(value any, ectx *models.ExecutionContext) any {
	switch typed := value.(type) {
	case string:
		return s.ResolveValue(typed, ectx)
	case map[string]any:
		return s.ResolveConfig(typed, ectx)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = s.resolveAny(item, ectx)
		}

		return items
	default:
		return value
	}
}

// evaluate resolves one path[|transform...] expression.
func (s *Store) evaluate(expr string, ectx *models.ExecutionContext) any {
	parts := strings.Split(expr, "|")
	path := strings.TrimSpace(parts[0])

	value, found := s.lookup(path, ectx)
	if !found {
		s.logger.Warn("Unresolvable variable path", "path", path)
		ectx.Log("warn", fmt.Sprintf("unresolvable variable path %q", path))

		value = ""
	}

	for _, raw := range parts[1:] {
		name, args := parseTransform(strings.TrimSpace(raw))

		transform, ok := transforms[name]
		if !ok {
			s.logger.Warn("Unknown transform, passing value through", "transform", name)
			ectx.Log("warn", fmt.Sprintf("unknown transform %q", name))

			continue
		}

		value = transform(value, args)
	}

	return value
}

// lookup resolves a path with the scoping order: loop scope (innermost
// wins) > variables > built-ins.
func (s *Store) lookup(path string, ectx *models.ExecutionContext) (any, bool) {
	if value, ok := s.lookupLoop(path, ectx); ok {
		return value, true
	}

	if value, ok := lookupDotted(ectx.Variables, path); ok {
		return value, true
	}

	return s.lookupBuiltin(path, ectx)
}

func (s *Store) lookupLoop(path string, ectx *models.ExecutionContext) (any, bool) {
	if path != "loop" && !strings.HasPrefix(path, "loop.") {
		return nil, false
	}

	frame, ok := ectx.CurrentLoop()
	if !ok {
		return nil, false
	}

	switch path {
	case "loop.index":
		return frame.Index, true
	case "loop.count":
		return frame.Count, true
	case "loop.first":
		return frame.Index == 0, true
	case "loop.last":
		return frame.Count >= 0 && frame.Index == frame.Count-1, true
	case "loop.item", "loop":
		return frame.Item, true
	}

	if rest, ok := strings.CutPrefix(path, "loop.item."); ok {
		return jsonPathInto(frame.Item, rest)
	}

	return nil, false
}

func (s *Store) lookupBuiltin(path string, ectx *models.ExecutionContext) (any, bool) {
	now := s.now().UTC()

	switch path {
	case "timestamp":
		return now.Unix(), true
	case "date":
		return now.Format("2006-01-02"), true
	case "time":
		return now.Format("15:04:05"), true
	case "random":
		return rand.Intn(1000000), true
	case "uuid":
		return uuid.New().String(), true
	case "execution.id":
		return ectx.ID, true
	case "workflow.id":
		return ectx.WorkflowID, true
	}

	return nil, false
}

// lookupDotted resolves "name" or "name.rest.of.path" against a variable
// map, descending into structured values with jsonpath.
func lookupDotted(vars map[string]any, path string) (any, bool) {
	if vars == nil {
		return nil, false
	}

	if value, ok := vars[path]; ok {
		return value, true
	}

	root, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}

	value, ok := vars[root]
	if !ok {
		return nil, false
	}

	return jsonPathInto(value, rest)
}

func jsonPathInto(value any, rest string) (any, bool) {
	result, err := jsonpath.JsonPathLookup(value, "$."+rest)
	if err != nil {
		return nil, false
	}

	return result, true
}

func parseTransform(raw string) (string, []string) {
	open := strings.IndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return raw, nil
	}

	name := raw[:open]
	argList := raw[open+1 : len(raw)-1]

	if argList == "" {
		return name, nil
	}

	args := strings.Split(argList, ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}

	return name, args
}
