// Package testutil provides in-memory test doubles and data builders for
// engine tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/persistence"
)

// MemoryPersistence is a thread-safe in-memory persistence.Persistence.
type MemoryPersistence struct {
	workflows  *memoryWorkflows
	templates  *memoryTemplates
	progress   *memoryProgress
	cookies    *memoryCookies
	executions *memoryExecutions
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		workflows:  &memoryWorkflows{entries: map[string]*models.Workflow{}},
		templates:  &memoryTemplates{entries: map[string]*models.WarmupTemplate{}},
		progress:   &memoryProgress{entries: map[string]*models.WarmupProgress{}},
		cookies:    &memoryCookies{entries: map[string][]browser.Cookie{}},
		executions: &memoryExecutions{entries: map[string]*models.ExecutionReport{}},
	}
}

func (p *MemoryPersistence) Workflows() persistence.WorkflowRepository             { return p.workflows }
func (p *MemoryPersistence) WarmupTemplates() persistence.WarmupTemplateRepository { return p.templates }
func (p *MemoryPersistence) WarmupProgress() persistence.WarmupProgressRepository  { return p.progress }
func (p *MemoryPersistence) Cookies() persistence.CookieRepository                 { return p.cookies }
func (p *MemoryPersistence) Executions() persistence.ExecutionRepository          { return p.executions }
func (p *MemoryPersistence) HealthCheck(_ context.Context) error                  { return nil }
func (p *MemoryPersistence) Close(_ context.Context) error                        { return nil }

type memoryWorkflows struct {
	mu      sync.Mutex
	entries map[string]*models.Workflow
}

func (r *memoryWorkflows) List(_ context.Context) ([]*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*models.Workflow, 0, len(r.entries))
	for _, wf := range r.entries {
		all = append(all, wf)
	}

	return all, nil
}

func (r *memoryWorkflows) ByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wf, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, persistence.ErrWorkflowNotFound)
	}

	return wf, nil
}

func (r *memoryWorkflows) Save(_ context.Context, wf *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wf.ID == "" {
		wf.ID = uuid.New().String()
		wf.CreatedAt = time.Now().UTC()
	}

	wf.UpdatedAt = time.Now().UTC()
	r.entries[wf.ID] = wf

	return nil
}

func (r *memoryWorkflows) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, persistence.ErrWorkflowNotFound)
	}

	delete(r.entries, id)

	return nil
}

type memoryTemplates struct {
	mu      sync.Mutex
	entries map[string]*models.WarmupTemplate
}

func (r *memoryTemplates) List(_ context.Context) ([]*models.WarmupTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*models.WarmupTemplate, 0, len(r.entries))
	for _, t := range r.entries {
		all = append(all, t)
	}

	return all, nil
}

func (r *memoryTemplates) ByID(_ context.Context, id string) (*models.WarmupTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, persistence.ErrWarmupTemplateNotFound)
	}

	return t, nil
}

func (r *memoryTemplates) Save(_ context.Context, t *models.WarmupTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
		t.CreatedAt = time.Now().UTC()
	}

	t.UpdatedAt = time.Now().UTC()
	r.entries[t.ID] = t

	return nil
}

func (r *memoryTemplates) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, persistence.ErrWarmupTemplateNotFound)
	}

	delete(r.entries, id)

	return nil
}

type memoryProgress struct {
	mu      sync.Mutex
	entries map[string]*models.WarmupProgress
}

func (r *memoryProgress) List(_ context.Context) ([]*models.WarmupProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*models.WarmupProgress, 0, len(r.entries))
	for _, p := range r.entries {
		all = append(all, p)
	}

	return all, nil
}

func (r *memoryProgress) ByID(_ context.Context, id string) (*models.WarmupProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, persistence.ErrWarmupProgressNotFound)
	}

	return p, nil
}

func (r *memoryProgress) Active(ctx context.Context) ([]*models.WarmupProgress, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.WarmupProgress, 0, len(all))

	for _, p := range all {
		if p.Status == models.WarmupPending || p.Status == models.WarmupRunning {
			active = append(active, p)
		}
	}

	return active, nil
}

func (r *memoryProgress) ByProfile(ctx context.Context, profileID string) ([]*models.WarmupProgress, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WarmupProgress, 0)

	for _, p := range all {
		if p.ProfileID == profileID {
			matched = append(matched, p)
		}
	}

	return matched, nil
}

func (r *memoryProgress) Save(_ context.Context, p *models.WarmupProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = time.Now().UTC()
	}

	p.UpdatedAt = time.Now().UTC()
	r.entries[p.ID] = p

	return nil
}

func (r *memoryProgress) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, persistence.ErrWarmupProgressNotFound)
	}

	delete(r.entries, id)

	return nil
}

type memoryCookies struct {
	mu      sync.Mutex
	entries map[string][]browser.Cookie
}

func cookieKey(profileID, platform string) string {
	return profileID + "_" + platform
}

func (r *memoryCookies) Get(_ context.Context, profileID, platform string) ([]browser.Cookie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	jar, ok := r.entries[cookieKey(profileID, platform)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", profileID, platform, persistence.ErrCookiesNotFound)
	}

	return jar, nil
}

func (r *memoryCookies) Save(_ context.Context, profileID, platform string, cookies []browser.Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[cookieKey(profileID, platform)] = cookies

	return nil
}

func (r *memoryCookies) Delete(_ context.Context, profileID, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[cookieKey(profileID, platform)]; !ok {
		return fmt.Errorf("%s/%s: %w", profileID, platform, persistence.ErrCookiesNotFound)
	}

	delete(r.entries, cookieKey(profileID, platform))

	return nil
}

type memoryExecutions struct {
	mu      sync.Mutex
	entries map[string]*models.ExecutionReport
}

func (r *memoryExecutions) Save(_ context.Context, report *models.ExecutionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[report.ExecutionID] = report

	return nil
}

func (r *memoryExecutions) ByID(_ context.Context, executionID string) (*models.ExecutionReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.entries[executionID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", executionID, persistence.ErrExecutionNotFound)
	}

	return report, nil
}

func (r *memoryExecutions) ByWorkflow(_ context.Context, workflowID string) ([]*models.ExecutionReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*models.ExecutionReport, 0)

	for _, report := range r.entries {
		if report.WorkflowID == workflowID {
			matched = append(matched, report)
		}
	}

	return matched, nil
}
