// Package workflow interprets step trees against live browser sessions.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/eventbus"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/variables"
	"github.com/google/uuid"
)

var (
	ErrCancelled    = errors.New("execution cancelled")
	ErrLoopCeiling  = errors.New("loop iteration ceiling exceeded")
	ErrStepNotFound = errors.New("step not found")
)

// DefaultMaxLoopIterations bounds every loop kind, loop-while included.
const DefaultMaxLoopIterations = 1000

// signal unwinds control-flow decisions to the nearest enclosing loop or
// the whole run.
type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
	sigStop
)

type Executor struct {
	registry          *actions.Registry
	store             *variables.Store
	bus               eventbus.EventBus
	logger            *slog.Logger
	maxLoopIterations int
}

// NewExecutor builds a workflow executor. The event bus is optional; a
// nil bus disables progress events.
func NewExecutor(registry *actions.Registry, store *variables.Store, bus eventbus.EventBus, logger *slog.Logger) *Executor {
	return &Executor{
		registry:          registry,
		store:             store,
		bus:               bus,
		logger:            logger.With("module", "workflow_executor"),
		maxLoopIterations: DefaultMaxLoopIterations,
	}
}

// run is the per-execution state bundle; one run owns its context and
// session exclusively.
type run struct {
	session browser.Session
	ectx    *models.ExecutionContext
	results []models.StepResult
	logger  *slog.Logger
}

// Execute interprets the workflow's step tree against one session and
// returns a structured report. Step results gathered before a failure are
// always retained. Cancellation of ctx (or ectx.Cancel from another
// goroutine) is acknowledged at the next step boundary.
func (e *Executor) Execute(ctx context.Context, workflow *models.Workflow, session browser.Session, profile browser.Profile) *models.ExecutionReport {
	executionID := "exec-" + uuid.New().String()[:8]

	logger := e.logger.With(
		"execution_id", executionID,
		"workflow_id", workflow.ID,
		"profile_id", profile.ID,
	)

	report := &models.ExecutionReport{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		ProfileID:   profile.ID,
		StartedAt:   time.Now().UTC(),
	}

	if err := e.registry.ValidateWorkflow(workflow); err != nil {
		logger.Error("Workflow validation failed", "error", err)

		report.Status = models.ExecutionFailed
		report.Error = err.Error()
		report.FinishedAt = time.Now().UTC()

		return report
	}

	ectx := e.newExecutionContext(executionID, workflow, profile)
	r := &run{session: session, ectx: ectx, logger: logger}

	e.publish(ctx, eventbus.ExecutionStarted{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		ProfileID:   profile.ID,
		StartedAt:   report.StartedAt,
	})

	logger.Info("Starting execution of workflow", "steps", len(workflow.Steps))

	sig, err := e.executeSteps(ctx, r, workflow.Steps)

	report.Results = r.results
	report.Logs = ectx.Logs
	report.FinishedAt = time.Now().UTC()

	switch {
	case errors.Is(err, ErrCancelled):
		report.Status = models.ExecutionCancelled
		report.Error = err.Error()
	case err != nil:
		report.Status = models.ExecutionFailed
		report.Error = err.Error()
	case sig == sigStop || ectx.Stopped():
		report.Status = models.ExecutionStopped
	default:
		report.Status = models.ExecutionCompleted
	}

	logger.Info("Finished execution of workflow", "status", report.Status, "results", len(report.Results))

	e.publish(ctx, eventbus.ExecutionFinished{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		ProfileID:   profile.ID,
		Status:      report.Status,
		Error:       report.Error,
		FinishedAt:  report.FinishedAt,
	})

	return report
}

// newExecutionContext seeds per-run state from workflow defaults,
// profile facts and session facts.
func (e *Executor) newExecutionContext(executionID string, workflow *models.Workflow, profile browser.Profile) *models.ExecutionContext {
	ectx := &models.ExecutionContext{
		ID:         executionID,
		WorkflowID: workflow.ID,
		ProfileID:  profile.ID,
		Variables:  make(map[string]any),
	}

	for _, variable := range workflow.Variables {
		ectx.Variables[variable.Name] = variable.DefaultValue
	}

	ectx.Variables["profile"] = map[string]any{
		"id":       profile.ID,
		"name":     profile.Name,
		"platform": profile.Platform,
		"username": profile.Username,
		"metadata": profile.Metadata,
	}
	ectx.Variables["session"] = map[string]any{
		"profile_id": profile.ID,
		"started_at": time.Now().UTC().Format(time.RFC3339),
	}

	return ectx
}

// executeSteps runs a step list in declaration order. The cancellation
// checkpoint sits between steps, never mid-action.
func (e *Executor) executeSteps(ctx context.Context, r *run, steps []*models.Step) (signal, error) {
	for _, step := range steps {
		if ctx.Err() != nil || r.ectx.Cancelled() {
			return sigNone, ErrCancelled
		}

		sig, err := e.executeStep(ctx, r, step)
		if err != nil {
			return sigNone, err
		}

		if sig != sigNone {
			return sig, nil
		}
	}

	return sigNone, nil
}

func (e *Executor) executeStep(ctx context.Context, r *run, step *models.Step) (signal, error) {
	started := time.Now()

	logger := r.logger.With("step_id", step.ID, "step_type", step.Type)
	logger.Debug("Executing step")

	if actions.IsControl(step.Type) {
		return e.executeControl(ctx, r, step, started)
	}

	resolved := e.store.ResolveConfig(step.Config, r.ectx)

	handler, err := e.registry.Handler(step.Type)
	if err != nil {
		e.record(ctx, r, step, started, nil, err)

		return sigNone, err
	}

	if err := handler.Validate(resolved); err != nil {
		e.record(ctx, r, step, started, nil, err)

		return sigNone, err
	}

	output, err := handler.Execute(ctx, r.session, resolved, r.ectx, logger)
	e.record(ctx, r, step, started, output, err)

	if err != nil {
		logger.Error("Step failed", "error", err)

		return sigNone, fmt.Errorf("step %s (%s): %w", step.ID, step.Type, err)
	}

	return sigNone, nil
}

func (e *Executor) executeControl(ctx context.Context, r *run, step *models.Step, started time.Time) (signal, error) {
	switch step.Type {
	case actions.KindCondition:
		return e.executeCondition(ctx, r, step, started)
	case actions.KindLoopCount, actions.KindLoopArray, actions.KindLoopElements:
		return e.executeBoundedLoop(ctx, r, step, started)
	case actions.KindLoopWhile:
		return e.executeLoopWhile(ctx, r, step, started)
	case actions.KindTryCatch:
		return e.executeTryCatch(ctx, r, step, started)
	case actions.KindBreak:
		e.record(ctx, r, step, started, nil, nil)

		return sigBreak, nil
	case actions.KindContinue:
		e.record(ctx, r, step, started, nil, nil)

		return sigContinue, nil
	case actions.KindStop:
		r.ectx.Stop()
		r.ectx.Log("info", "stop requested by step "+step.ID)
		e.record(ctx, r, step, started, nil, nil)

		return sigStop, nil
	default:
		return sigNone, fmt.Errorf("%w: %q", actions.ErrUnknownKind, step.Type)
	}
}

// executeCondition runs exactly one of then/else, never both, never
// neither.
func (e *Executor) executeCondition(ctx context.Context, r *run, step *models.Step, started time.Time) (signal, error) {
	resolved := e.store.ResolveConfig(step.Config, r.ectx)

	ok, err := actions.EvaluatePredicate(ctx, r.session, stringConfig(resolved, "expression"), stringConfig(resolved, "selector"), r.ectx)
	if err != nil {
		e.record(ctx, r, step, started, nil, err)

		return sigNone, fmt.Errorf("step %s (condition): %w", step.ID, err)
	}

	branch := step.Else
	branchName := "else"

	if ok {
		branch = step.Then
		branchName = "then"
	}

	sig, err := e.executeSteps(ctx, r, branch)
	e.record(ctx, r, step, started, map[string]any{"branch": branchName}, err)

	return sig, err
}

// executeBoundedLoop covers loop-count, loop-array and loop-elements:
// loops whose iteration count is known up front.
func (e *Executor) executeBoundedLoop(ctx context.Context, r *run, step *models.Step, started time.Time) (signal, error) {
	resolved := e.store.ResolveConfig(step.Config, r.ectx)

	count, items, err := e.loopBounds(ctx, r, step.Type, resolved)
	if err != nil {
		e.record(ctx, r, step, started, nil, err)

		return sigNone, fmt.Errorf("step %s (%s): %w", step.ID, step.Type, err)
	}

	if count > e.maxLoopIterations {
		err := fmt.Errorf("%w: %d > %d", ErrLoopCeiling, count, e.maxLoopIterations)
		e.record(ctx, r, step, started, nil, err)

		return sigNone, fmt.Errorf("step %s (%s): %w", step.ID, step.Type, err)
	}

	r.ectx.PushLoop(models.LoopFrame{Index: 0, Count: count})
	defer r.ectx.PopLoop()

	iterations := 0

	for i := range count {
		var item any
		if items != nil {
			item = items[i]
		}

		r.ectx.SetLoopIndex(i, item)

		sig, err := e.executeSteps(ctx, r, step.Then)
		if err != nil {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, err)

			return sigNone, err
		}

		iterations++

		if sig == sigBreak {
			break
		}

		if sig == sigStop {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, nil)

			return sigStop, nil
		}
		// sigContinue already unwound to this level; proceed.
	}

	e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, nil)

	return sigNone, nil
}

func (e *Executor) loopBounds(ctx context.Context, r *run, kind string, resolved map[string]any) (int, []any, error) {
	switch kind {
	case actions.KindLoopCount:
		count := intConfig(resolved, "count", -1)
		if count < 0 {
			return 0, nil, fmt.Errorf("%w: loop-count needs a non-negative %q", actions.ErrInvalidConfig, "count")
		}

		return count, nil, nil

	case actions.KindLoopArray:
		items, err := loopItems(resolved["items"])
		if err != nil {
			return 0, nil, err
		}

		return len(items), items, nil

	case actions.KindLoopElements:
		selector, ok := resolved["selector"].(string)
		if !ok || selector == "" {
			return 0, nil, fmt.Errorf("%w: loop-elements needs %q", actions.ErrInvalidConfig, "selector")
		}

		count, err := r.session.Page().Count(ctx, selector)
		if err != nil {
			return 0, nil, fmt.Errorf("count %s: %w", selector, err)
		}

		items := make([]any, count)
		for i := range count {
			items[i] = map[string]any{"selector": selector, "index": i}
		}

		return count, items, nil
	}

	return 0, nil, fmt.Errorf("%w: %q is not a bounded loop", actions.ErrUnknownKind, kind)
}

func loopItems(raw any) ([]any, error) {
	switch typed := raw.(type) {
	case []any:
		return typed, nil
	case string:
		var items []any
		if err := json.Unmarshal([]byte(typed), &items); err != nil {
			return nil, fmt.Errorf("%w: %q is not an array", actions.ErrInvalidConfig, "items")
		}

		return items, nil
	default:
		return nil, fmt.Errorf("%w: %q is not an array", actions.ErrInvalidConfig, "items")
	}
}

// executeLoopWhile re-evaluates its predicate before every iteration;
// the iteration ceiling is the infinite-loop protection.
func (e *Executor) executeLoopWhile(ctx context.Context, r *run, step *models.Step, started time.Time) (signal, error) {
	r.ectx.PushLoop(models.LoopFrame{Index: 0, Count: -1})
	defer r.ectx.PopLoop()

	iterations := 0

	for {
		if ctx.Err() != nil || r.ectx.Cancelled() {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, nil)

			return sigNone, ErrCancelled
		}

		if iterations >= e.maxLoopIterations {
			err := fmt.Errorf("%w: %d", ErrLoopCeiling, e.maxLoopIterations)
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, err)

			return sigNone, fmt.Errorf("step %s (loop-while): %w", step.ID, err)
		}

		resolved := e.store.ResolveConfig(step.Config, r.ectx)

		ok, err := actions.EvaluatePredicate(ctx, r.session, stringConfig(resolved, "expression"), stringConfig(resolved, "selector"), r.ectx)
		if err != nil {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, err)

			return sigNone, fmt.Errorf("step %s (loop-while): %w", step.ID, err)
		}

		if !ok {
			break
		}

		r.ectx.SetLoopIndex(iterations, nil)

		sig, err := e.executeSteps(ctx, r, step.Then)
		if err != nil {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, err)

			return sigNone, err
		}

		iterations++

		if sig == sigBreak {
			break
		}

		if sig == sigStop {
			e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, nil)

			return sigStop, nil
		}
	}

	e.record(ctx, r, step, started, map[string]any{"iterations": iterations}, nil)

	return sigNone, nil
}

// executeTryCatch routes any failure inside the guarded subtree to the
// catch subtree instead of propagating. Cancellation is not catchable.
func (e *Executor) executeTryCatch(ctx context.Context, r *run, step *models.Step, started time.Time) (signal, error) {
	sig, err := e.executeSteps(ctx, r, step.Then)
	if err == nil {
		e.record(ctx, r, step, started, map[string]any{"caught": false}, nil)

		return sig, nil
	}

	if errors.Is(err, ErrCancelled) {
		return sigNone, err
	}

	r.logger.Warn("Caught step failure, running catch branch", "step_id", step.ID, "error", err)
	r.ectx.Log("warn", fmt.Sprintf("caught failure in step %s: %v", step.ID, err))

	sig, catchErr := e.executeSteps(ctx, r, step.Else)
	e.record(ctx, r, step, started, map[string]any{"caught": true, "error": err.Error()}, catchErr)

	return sig, catchErr
}

// record appends one step result to the audit trail and publishes it.
func (e *Executor) record(ctx context.Context, r *run, step *models.Step, started time.Time, output any, err error) {
	result := models.StepResult{
		StepID:     step.ID,
		Type:       step.Type,
		Success:    err == nil,
		Output:     output,
		DurationMs: time.Since(started).Milliseconds(),
	}

	if err != nil {
		result.Error = err.Error()
	}

	r.results = append(r.results, result)

	e.publish(ctx, eventbus.StepFinished{
		ExecutionID: r.ectx.ID,
		WorkflowID:  r.ectx.WorkflowID,
		Result:      result,
	})
}

func (e *Executor) publish(ctx context.Context, event any) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish event", "error", err)
	}
}

func stringConfig(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

func intConfig(config map[string]any, key string, fallback int) int {
	switch value := config[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}
