package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidActionBudget = errors.New("daily action entry must be a boolean or a {min,max} object")

// ActionBudget configures one daily action inside a phase. Template JSON
// allows either a boolean (feature toggle, used for login) or a
// {min,max} repetition range; both forms round-trip unchanged.
type ActionBudget struct {
	Enabled bool `json:"-"`
	Min     int  `json:"min"`
	Max     int  `json:"max"`

	boolean bool
}

// BoolBudget returns a boolean-form budget.
func BoolBudget(enabled bool) ActionBudget {
	return ActionBudget{Enabled: enabled, boolean: true}
}

// RangeBudget returns a {min,max} budget.
func RangeBudget(minCount, maxCount int) ActionBudget {
	return ActionBudget{Enabled: true, Min: minCount, Max: maxCount}
}

// IsBool reports whether the budget was declared as a boolean toggle.
func (b ActionBudget) IsBool() bool { return b.boolean }

func (b ActionBudget) MarshalJSON() ([]byte, error) {
	if b.boolean {
		return json.Marshal(b.Enabled)
	}

	return json.Marshal(map[string]int{"min": b.Min, "max": b.Max})
}

func (b *ActionBudget) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*b = ActionBudget{Enabled: enabled, boolean: true}

		return nil
	}

	var rng struct {
		Min *int `json:"min"`
		Max *int `json:"max"`
	}

	if err := json.Unmarshal(data, &rng); err != nil || rng.Min == nil || rng.Max == nil {
		return ErrInvalidActionBudget
	}

	*b = ActionBudget{Enabled: true, Min: *rng.Min, Max: *rng.Max}

	return nil
}

// Phase is a contiguous day-range within a warm-up template with its own
// action-intensity configuration. Days holds [startDay, endDay], 1-based
// and inclusive on both ends.
type Phase struct {
	Name         string                  `json:"name"          validate:"required"`
	Days         [2]int                  `json:"days"          validate:"required"`
	DailyActions map[string]ActionBudget `json:"daily_actions" validate:"required"`
}

// Contains reports whether day falls inside the phase's range.
func (p Phase) Contains(day int) bool {
	return day >= p.Days[0] && day <= p.Days[1]
}

// RequiresLogin reports whether the phase's login toggle is on.
func (p Phase) RequiresLogin() bool {
	budget, ok := p.DailyActions["login"]

	return ok && budget.Enabled
}

// Schedule decides when each warm-up day is due. RunAt entries are local
// wall-clock times ("15:04") in Timezone; Cron is an optional standard
// cron expression used instead of RunAt when set. RandomDelay is a
// symmetric jitter bound in minutes applied to the chosen instant.
type Schedule struct {
	Timezone    string   `json:"timezone"`
	RunAt       []string `json:"run_at,omitempty"`
	Cron        string   `json:"cron,omitempty"`
	RandomDelay int      `json:"random_delay"`
}

// WarmupTemplate describes day-indexed phases of increasing activity for
// one platform. Phase ranges are expected to cover 1..TotalDays without
// gaps; a gap surfaces as a phase-not-found failure at run time.
type WarmupTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"       validate:"required"`
	Platform  string    `json:"platform"   validate:"required"`
	TotalDays int       `json:"total_days" validate:"required,min=1"`
	Phases    []Phase   `json:"phases"     validate:"required,min=1,dive"`
	Schedule  Schedule  `json:"schedule"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// WarmupStatus is the lifecycle state of one profile's warm-up run.
type WarmupStatus string

const (
	WarmupPending   WarmupStatus = "pending"
	WarmupRunning   WarmupStatus = "running"
	WarmupPaused    WarmupStatus = "paused"
	WarmupCompleted WarmupStatus = "completed"
	WarmupFailed    WarmupStatus = "failed"
)

var warmupTransitions = map[WarmupStatus][]WarmupStatus{
	WarmupPending:   {WarmupRunning, WarmupPaused},
	WarmupRunning:   {WarmupPaused, WarmupCompleted, WarmupFailed},
	WarmupPaused:    {WarmupRunning, WarmupPending},
	WarmupCompleted: {},
	WarmupFailed:    {WarmupPending, WarmupRunning},
}

// CanTransition reports whether moving from s to next is allowed.
func (s WarmupStatus) CanTransition(next WarmupStatus) bool {
	for _, allowed := range warmupTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// InvalidTransitionError reports a disallowed warm-up status change.
type InvalidTransitionError struct {
	From WarmupStatus
	To   WarmupStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid warmup status transition %s -> %s", e.From, e.To)
}

// DailyLog is one immutable record appended per executed warm-up day.
type DailyLog struct {
	Day        int            `json:"day"`
	Date       string         `json:"date"`
	Actions    map[string]int `json:"actions"`
	Status     string         `json:"status"`
	Errors     []string       `json:"errors,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

const (
	DayCompleted = "completed"
	DayFailed    = "failed"
)

// WarmupProgress tracks one profile's advance through a warm-up template.
// CurrentDay and CurrentPhase are 1-based. DailyLogs is append-only,
// ordered by day. Records are never deleted automatically; an explicit
// stop marks the record failed with a user-stop reason.
type WarmupProgress struct {
	ID           string       `json:"id"`
	WarmupID     string       `json:"warmup_id"  validate:"required"`
	ProfileID    string       `json:"profile_id" validate:"required"`
	Status       WarmupStatus `json:"status"`
	CurrentDay   int          `json:"current_day"`
	CurrentPhase int          `json:"current_phase"`
	DailyLogs    []DailyLog   `json:"daily_logs,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	NextRunAt    *time.Time   `json:"next_run_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitzero"`
	UpdatedAt    time.Time    `json:"updated_at,omitzero"`
}

// Transition moves the record to next, enforcing the transition table.
func (p *WarmupProgress) Transition(next WarmupStatus) error {
	if !p.Status.CanTransition(next) {
		return &InvalidTransitionError{From: p.Status, To: next}
	}

	p.Status = next
	p.UpdatedAt = time.Now().UTC()

	return nil
}

// AppendDailyLog records one executed day.
func (p *WarmupProgress) AppendDailyLog(entry DailyLog) {
	p.DailyLogs = append(p.DailyLogs, entry)
}
