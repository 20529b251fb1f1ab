package file

import (
	"context"
	"fmt"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/persistence"
	"github.com/google/uuid"
)

type WorkflowRepository struct {
	dir string
}

func (r *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	return listEntities[models.Workflow](r.dir)
}

func (r *WorkflowRepository) ByID(_ context.Context, id string) (*models.Workflow, error) {
	return readEntity[models.Workflow](r.dir, id, persistence.ErrWorkflowNotFound)
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()

	return writeEntity(r.dir, workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	return deleteEntity(r.dir, id, persistence.ErrWorkflowNotFound)
}

type WarmupTemplateRepository struct {
	dir string
}

func (r *WarmupTemplateRepository) List(_ context.Context) ([]*models.WarmupTemplate, error) {
	return listEntities[models.WarmupTemplate](r.dir)
}

func (r *WarmupTemplateRepository) ByID(_ context.Context, id string) (*models.WarmupTemplate, error) {
	return readEntity[models.WarmupTemplate](r.dir, id, persistence.ErrWarmupTemplateNotFound)
}

func (r *WarmupTemplateRepository) Save(_ context.Context, template *models.WarmupTemplate) error {
	if template.ID == "" {
		template.ID = uuid.New().String()
		template.CreatedAt = time.Now().UTC()
	}

	template.UpdatedAt = time.Now().UTC()

	return writeEntity(r.dir, template.ID, template)
}

func (r *WarmupTemplateRepository) Delete(_ context.Context, id string) error {
	return deleteEntity(r.dir, id, persistence.ErrWarmupTemplateNotFound)
}

type WarmupProgressRepository struct {
	dir string
}

func (r *WarmupProgressRepository) List(_ context.Context) ([]*models.WarmupProgress, error) {
	return listEntities[models.WarmupProgress](r.dir)
}

func (r *WarmupProgressRepository) ByID(_ context.Context, id string) (*models.WarmupProgress, error) {
	return readEntity[models.WarmupProgress](r.dir, id, persistence.ErrWarmupProgressNotFound)
}

func (r *WarmupProgressRepository) Active(ctx context.Context) ([]*models.WarmupProgress, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.WarmupProgress, 0, len(all))

	for _, record := range all {
		if record.Status == models.WarmupPending || record.Status == models.WarmupRunning {
			active = append(active, record)
		}
	}

	return active, nil
}

func (r *WarmupProgressRepository) ByProfile(ctx context.Context, profileID string) ([]*models.WarmupProgress, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WarmupProgress, 0)

	for _, record := range all {
		if record.ProfileID == profileID {
			matched = append(matched, record)
		}
	}

	return matched, nil
}

func (r *WarmupProgressRepository) Save(_ context.Context, progress *models.WarmupProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.New().String()
		progress.CreatedAt = time.Now().UTC()
	}

	progress.UpdatedAt = time.Now().UTC()

	return writeEntity(r.dir, progress.ID, progress)
}

func (r *WarmupProgressRepository) Delete(_ context.Context, id string) error {
	return deleteEntity(r.dir, id, persistence.ErrWarmupProgressNotFound)
}

// CookieRepository stores cookie jars keyed by profile and platform.
type CookieRepository struct {
	dir string
}

func cookieKey(profileID, platform string) string {
	return fmt.Sprintf("%s_%s", profileID, platform)
}

func (r *CookieRepository) Get(_ context.Context, profileID, platform string) ([]browser.Cookie, error) {
	jar, err := readEntity[[]browser.Cookie](r.dir, cookieKey(profileID, platform), persistence.ErrCookiesNotFound)
	if err != nil {
		return nil, err
	}

	return *jar, nil
}

func (r *CookieRepository) Save(_ context.Context, profileID, platform string, cookies []browser.Cookie) error {
	return writeEntity(r.dir, cookieKey(profileID, platform), cookies)
}

func (r *CookieRepository) Delete(_ context.Context, profileID, platform string) error {
	return deleteEntity(r.dir, cookieKey(profileID, platform), persistence.ErrCookiesNotFound)
}

type ExecutionRepository struct {
	dir string
}

func (r *ExecutionRepository) Save(_ context.Context, report *models.ExecutionReport) error {
	return writeEntity(r.dir, report.ExecutionID, report)
}

func (r *ExecutionRepository) ByID(_ context.Context, executionID string) (*models.ExecutionReport, error) {
	return readEntity[models.ExecutionReport](r.dir, executionID, persistence.ErrExecutionNotFound)
}

func (r *ExecutionRepository) ByWorkflow(_ context.Context, workflowID string) ([]*models.ExecutionReport, error) {
	all, err := listEntities[models.ExecutionReport](r.dir)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.ExecutionReport, 0)

	for _, report := range all {
		if report.WorkflowID == workflowID {
			matched = append(matched, report)
		}
	}

	return matched, nil
}
