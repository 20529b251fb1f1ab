// Package persistence defines the storage boundary of the engine.
// Nested structures (steps, phases, logs) are opaque structured values
// round-tripped through this boundary unchanged.
package persistence

import (
	"context"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	WarmupTemplates() WarmupTemplateRepository
	WarmupProgress() WarmupProgressRepository
	Cookies() CookieRepository
	Executions() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type WarmupTemplateRepository interface {
	List(ctx context.Context) ([]*models.WarmupTemplate, error)
	ByID(ctx context.Context, id string) (*models.WarmupTemplate, error)
	Save(ctx context.Context, template *models.WarmupTemplate) error
	Delete(ctx context.Context, id string) error
}

type WarmupProgressRepository interface {
	List(ctx context.Context) ([]*models.WarmupProgress, error)
	ByID(ctx context.Context, id string) (*models.WarmupProgress, error)
	// Active returns records with status pending or running, the set the
	// scheduler polls.
	Active(ctx context.Context) ([]*models.WarmupProgress, error)
	ByProfile(ctx context.Context, profileID string) ([]*models.WarmupProgress, error)
	Save(ctx context.Context, progress *models.WarmupProgress) error
	Delete(ctx context.Context, id string) error
}

// CookieRepository caches session cookies per profile and platform so
// later warm-up runs can skip credential login.
type CookieRepository interface {
	Get(ctx context.Context, profileID, platform string) ([]browser.Cookie, error)
	Save(ctx context.Context, profileID, platform string, cookies []browser.Cookie) error
	Delete(ctx context.Context, profileID, platform string) error
}

type ExecutionRepository interface {
	Save(ctx context.Context, report *models.ExecutionReport) error
	ByID(ctx context.Context, executionID string) (*models.ExecutionReport, error)
	ByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionReport, error)
}
