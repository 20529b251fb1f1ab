package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/google/uuid"
)

// DefaultConcurrency bounds the worker pool when no ceiling is given.
const DefaultConcurrency = 3

// ActiveExecution describes one in-flight batch item.
type ActiveExecution struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
}

// BatchReport aggregates per-profile outcomes of one fan-out.
type BatchReport struct {
	Completed int                       `json:"completed"`
	Failed    int                       `json:"failed"`
	Results   []*models.ExecutionReport `json:"results"`
}

// Batch fans a single workflow out across many profile sessions with a
// bounded worker pool. Every profile gets an isolated execution context;
// one profile's failure never aborts its siblings.
type Batch struct {
	executor    *Executor
	manager     browser.Manager
	logger      *slog.Logger
	concurrency int

	mu     sync.Mutex
	active map[string]*batchItem
}

type batchItem struct {
	profileID string
	cancel    context.CancelFunc
}

func NewBatch(executor *Executor, manager browser.Manager, concurrency int, logger *slog.Logger) *Batch {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Batch{
		executor:    executor,
		manager:     manager,
		logger:      logger.With("module", "batch_executor"),
		concurrency: concurrency,
		active:      make(map[string]*batchItem),
	}
}

// Run executes the workflow once per profile and blocks until every
// execution settles. Results keep the profiles' submission order.
func (b *Batch) Run(ctx context.Context, workflow *models.Workflow, profiles []browser.Profile) *BatchReport {
	report := &BatchReport{Results: make([]*models.ExecutionReport, len(profiles))}

	semaphore := make(chan struct{}, b.concurrency)

	var wg sync.WaitGroup

	for i, profile := range profiles {
		wg.Add(1)

		go func(slot int, profile browser.Profile) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			report.Results[slot] = b.runOne(ctx, workflow, profile)
		}(i, profile)
	}

	wg.Wait()

	for _, result := range report.Results {
		if result.Status == models.ExecutionCompleted || result.Status == models.ExecutionStopped {
			report.Completed++
		} else {
			report.Failed++
		}
	}

	b.logger.Info("Batch finished",
		"workflow_id", workflow.ID,
		"profiles", len(profiles),
		"completed", report.Completed,
		"failed", report.Failed,
	)

	return report
}

func (b *Batch) runOne(ctx context.Context, workflow *models.Workflow, profile browser.Profile) *models.ExecutionReport {
	itemID := "run-" + uuid.New().String()[:8]

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.track(itemID, profile.ID, cancel)
	defer b.untrack(itemID)

	logger := b.logger.With("item_id", itemID, "profile_id", profile.ID)

	session, err := b.manager.CreateContext(runCtx, profile)
	if err != nil {
		logger.Error("Failed to acquire browser session", "error", err)

		return &models.ExecutionReport{
			ExecutionID: itemID,
			WorkflowID:  workflow.ID,
			ProfileID:   profile.ID,
			Status:      models.ExecutionFailed,
			Error:       "acquire browser session: " + err.Error(),
			StartedAt:   time.Now().UTC(),
			FinishedAt:  time.Now().UTC(),
		}
	}

	defer func() {
		if err := session.Close(context.WithoutCancel(runCtx)); err != nil {
			logger.Warn("Failed to close browser session", "error", err)
		}
	}()

	return b.executor.Execute(runCtx, workflow, session, profile)
}

// Active lists in-flight executions.
func (b *Batch) Active() []ActiveExecution {
	b.mu.Lock()
	defer b.mu.Unlock()

	executions := make([]ActiveExecution, 0, len(b.active))
	for id, item := range b.active {
		executions = append(executions, ActiveExecution{ID: id, ProfileID: item.profileID})
	}

	return executions
}

// Cancel requests cancellation of one in-flight execution without
// affecting its siblings. It reports whether the id was in flight.
func (b *Batch) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.active[id]
	if !ok {
		return false
	}

	item.cancel()

	return true
}

func (b *Batch) track(id, profileID string, cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active[id] = &batchItem{profileID: profileID, cancel: cancel}
}

func (b *Batch) untrack(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.active, id)
}
