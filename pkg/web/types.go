package web

import (
	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

type CreateWorkflowRequest struct {
	Name      string            `json:"name"      validate:"required,min=1,max=255"`
	Variables []models.Variable `json:"variables" validate:"omitempty,dive"`
	Steps     []*models.Step    `json:"steps"     validate:"required,min=1"`
}

type UpdateWorkflowRequest struct {
	Name      *string           `json:"name"      validate:"omitempty,min=1,max=255"`
	Variables []models.Variable `json:"variables" validate:"omitempty,dive"`
	Steps     []*models.Step    `json:"steps"     validate:"omitempty,min=1"`
}

type CreateWarmupTemplateRequest struct {
	Name      string          `json:"name"       validate:"required,min=1,max=255"`
	Platform  string          `json:"platform"   validate:"required"`
	TotalDays int             `json:"total_days" validate:"required,min=1"`
	Phases    []models.Phase  `json:"phases"     validate:"required,min=1,dive"`
	Schedule  models.Schedule `json:"schedule"`
}

// StartRunRequest launches one workflow across a set of profiles.
type StartRunRequest struct {
	WorkflowID  string            `json:"workflow_id" validate:"required"`
	Profiles    []browser.Profile `json:"profiles"    validate:"required,min=1"`
	Concurrency int               `json:"concurrency" validate:"omitempty,min=1,max=50"`
}

type StartRunResponse struct {
	BatchID  string `json:"batch_id"`
	Profiles int    `json:"profiles"`
}

// StartWarmupRequest enrols one profile into a warm-up template.
type StartWarmupRequest struct {
	WarmupID  string `json:"warmup_id"  validate:"required"`
	ProfileID string `json:"profile_id" validate:"required"`
}
