package models

import (
	"sync/atomic"
	"time"
)

// ExecutionStatus is the terminal state of one workflow run.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionStopped   ExecutionStatus = "stopped"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// LoopFrame tracks the state of one enclosing loop during execution.
// Index is 0-based; Count is the total number of iterations when known
// (loop-while runs report -1).
type LoopFrame struct {
	Index int `json:"index"`
	Count int `json:"count"`
	Item  any `json:"item,omitempty"`
}

// LogEntry is one line of the run's append-only log trail.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ExecutionContext is the mutable state of one workflow run. It is owned
// exclusively by the executor driving the run and must never be shared
// across concurrent runs. The cancel flag is the only field touched from
// outside the run goroutine, hence atomic.
type ExecutionContext struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	ProfileID  string         `json:"profile_id,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
	LoopStack  []LoopFrame    `json:"loop_stack,omitempty"`
	Logs       []LogEntry     `json:"logs,omitempty"`

	stopped   bool
	cancelled atomic.Bool
}

// PushLoop enters a loop frame; the innermost frame wins variable
// resolution for loop.* built-ins.
func (c *ExecutionContext) PushLoop(frame LoopFrame) {
	c.LoopStack = append(c.LoopStack, frame)
}

// PopLoop leaves the innermost loop frame.
func (c *ExecutionContext) PopLoop() {
	if len(c.LoopStack) > 0 {
		c.LoopStack = c.LoopStack[:len(c.LoopStack)-1]
	}
}

// CurrentLoop returns the innermost loop frame, if any.
func (c *ExecutionContext) CurrentLoop() (LoopFrame, bool) {
	if len(c.LoopStack) == 0 {
		return LoopFrame{}, false
	}

	return c.LoopStack[len(c.LoopStack)-1], true
}

// SetLoopIndex updates the innermost frame for the next iteration.
func (c *ExecutionContext) SetLoopIndex(index int, item any) {
	if len(c.LoopStack) == 0 {
		return
	}

	c.LoopStack[len(c.LoopStack)-1].Index = index
	c.LoopStack[len(c.LoopStack)-1].Item = item
}

// Log appends one entry to the run's log trail.
func (c *ExecutionContext) Log(level, message string) {
	c.Logs = append(c.Logs, LogEntry{Level: level, Message: message, Time: time.Now().UTC()})
}

// SetVariable stores a value under name for later resolution.
func (c *ExecutionContext) SetVariable(name string, value any) {
	if c.Variables == nil {
		c.Variables = make(map[string]any)
	}

	c.Variables[name] = value
}

// Stop marks the run as halted by a stop action.
func (c *ExecutionContext) Stop() { c.stopped = true }

// Stopped reports whether a stop action halted the run.
func (c *ExecutionContext) Stopped() bool { return c.stopped }

// Cancel requests cooperative cancellation; the executor acknowledges at
// the next step boundary.
func (c *ExecutionContext) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether cancellation was requested.
func (c *ExecutionContext) Cancelled() bool { return c.cancelled.Load() }

// StepResult is one entry of the run's ordered audit trail.
type StepResult struct {
	StepID     string `json:"step_id"`
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ExecutionReport is the structured result of one workflow run. Results
// gathered before a failure are always retained.
type ExecutionReport struct {
	ExecutionID string          `json:"execution_id"`
	WorkflowID  string          `json:"workflow_id"`
	ProfileID   string          `json:"profile_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Results     []StepResult    `json:"results"`
	Logs        []LogEntry      `json:"logs,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}
