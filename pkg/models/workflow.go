// Package models defines the core domain models for browser workflow
// automation and account warm-up.
package models

import "time"

// Variable declares a workflow-level variable with its default value.
// Defaults seed the execution context and can be overridden per run.
type Variable struct {
	Name         string `json:"name"          validate:"required"`
	DefaultValue any    `json:"default_value,omitempty"`
}

// Workflow is a user-authored tree of automation steps executed against
// one browser session.
type Workflow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"      validate:"required,min=3"`
	Variables []Variable `json:"variables,omitempty"`
	Steps     []*Step    `json:"steps"     validate:"required,min=1"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	UpdatedAt time.Time  `json:"updated_at,omitzero"`
}

// StepByID walks the step tree depth-first and returns the step with the
// given id, or nil.
func (w *Workflow) StepByID(id string) *Step {
	return findStep(w.Steps, id)
}

func findStep(steps []*Step, id string) *Step {
	for _, step := range steps {
		if step.ID == id {
			return step
		}

		if found := findStep(step.Then, id); found != nil {
			return found
		}

		if found := findStep(step.Else, id); found != nil {
			return found
		}
	}

	return nil
}

// ValidateStepIDs checks that step ids are unique across the whole tree.
func (w *Workflow) ValidateStepIDs() error {
	seen := make(map[string]struct{})

	return walkSteps(w.Steps, func(step *Step) error {
		if _, dup := seen[step.ID]; dup {
			return &DuplicateStepIDError{StepID: step.ID}
		}

		seen[step.ID] = struct{}{}

		return nil
	})
}

func walkSteps(steps []*Step, fn func(*Step) error) error {
	for _, step := range steps {
		if err := fn(step); err != nil {
			return err
		}

		if err := walkSteps(step.Then, fn); err != nil {
			return err
		}

		if err := walkSteps(step.Else, fn); err != nil {
			return err
		}
	}

	return nil
}
