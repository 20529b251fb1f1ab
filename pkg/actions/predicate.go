package actions

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

// EvaluatePredicate decides a condition against session and variable
// state. A selector predicate is true when at least one matching element
// exists; an expression predicate runs on the script engine with the
// run's variables bound and is true when the result is truthy. Exactly
// one of expression/selector must be set; selector wins when both are.
func EvaluatePredicate(ctx context.Context, session browser.Session, expression, selector string, ectx *models.ExecutionContext) (bool, error) {
	if selector != "" {
		if session == nil {
			return false, fmt.Errorf("%w: selector predicate needs a session", ErrInvalidConfig)
		}

		count, err := session.Page().Count(ctx, selector)
		if err != nil {
			return false, fmt.Errorf("predicate selector %q: %w", selector, err)
		}

		return count > 0, nil
	}

	if expression == "" {
		return false, fmt.Errorf("%w: empty predicate", ErrInvalidConfig)
	}

	vm := goja.New()
	for name, value := range ectx.Variables {
		if err := vm.Set(name, value); err != nil {
			return false, fmt.Errorf("bind variable %s: %w", name, err)
		}
	}

	if frame, ok := ectx.CurrentLoop(); ok {
		_ = vm.Set("loop", map[string]any{
			"index": frame.Index,
			"count": frame.Count,
			"first": frame.Index == 0,
			"last":  frame.Count >= 0 && frame.Index == frame.Count-1,
			"item":  frame.Item,
		})
	}

	value, err := vm.RunString(expression)
	if err != nil {
		return false, fmt.Errorf("%w: predicate %q: %v", browser.ErrScript, expression, err)
	}

	return value.ToBoolean(), nil
}
