package models

// Step is one node in a workflow tree: a typed action plus optional nested
// branches. Then and Else are only meaningful for control-flow kinds; for
// try-catch, Then holds the guarded subtree and Else the catch subtree.
type Step struct {
	ID     string         `json:"id"   validate:"required"`
	Type   string         `json:"type" validate:"required"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config,omitempty"`
	Then   []*Step        `json:"then,omitempty"`
	Else   []*Step        `json:"else,omitempty"`
}

// DuplicateStepIDError reports a step id used more than once in a tree.
type DuplicateStepIDError struct {
	StepID string
}

func (e *DuplicateStepIDError) Error() string {
	return "duplicate step id: " + e.StepID
}
