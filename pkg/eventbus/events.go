// Package eventbus carries execution progress events over an in-process
// message channel, keeping the executors decoupled from UI and
// notification concerns.
package eventbus

import (
	"time"

	"github.com/emberflow/emberflow/pkg/models"
)

type EventType string

const (
	ExecutionStartedEvent  EventType = "execution.started"
	StepFinishedEvent      EventType = "execution.step.finished"
	ExecutionFinishedEvent EventType = "execution.finished"
	WarmupDayFinishedEvent EventType = "warmup.day.finished"
)

type ExecutionStarted struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	ProfileID   string    `json:"profile_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

type StepFinished struct {
	ExecutionID string            `json:"execution_id"`
	WorkflowID  string            `json:"workflow_id"`
	Result      models.StepResult `json:"result"`
}

type ExecutionFinished struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	ProfileID   string                 `json:"profile_id,omitempty"`
	Status      models.ExecutionStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	FinishedAt  time.Time              `json:"finished_at"`
}

type WarmupDayFinished struct {
	ProgressID string          `json:"progress_id"`
	ProfileID  string          `json:"profile_id"`
	Day        int             `json:"day"`
	DayLog     models.DailyLog `json:"day_log"`
}
