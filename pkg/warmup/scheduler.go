package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/eventbus"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/persistence"
)

const DefaultPollInterval = 60 * time.Second

// ProfileSource resolves profile IDs stored on progress records into the
// full profile the browser and login layers need.
type ProfileSource interface {
	ProfileByID(ctx context.Context, id string) (browser.Profile, error)
}

// Scheduler polls warm-up progress records and runs each due day. A
// record is due when it is pending and its NextRunAt has passed. At most
// one execution per record is ever in flight; overlapping polls see the
// record in the inflight set and skip it.
type Scheduler struct {
	persistence persistence.Persistence
	profiles    ProfileSource
	manager     browser.Manager
	executor    *Executor
	bus         eventbus.EventBus
	logger      *slog.Logger
	interval    time.Duration

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(
	store persistence.Persistence,
	profiles ProfileSource,
	manager browser.Manager,
	executor *Executor,
	bus eventbus.EventBus,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Scheduler{
		persistence: store,
		profiles:    profiles,
		manager:     manager,
		executor:    executor,
		bus:         bus,
		logger:      logger,
		interval:    interval,
		inflight:    map[string]context.CancelFunc{},
	}
}

// NewProgress builds a fresh progress record for a profile/template pair,
// due immediately.
func NewProgress(warmupID, profileID string) *models.WarmupProgress {
	now := time.Now().UTC()

	return &models.WarmupProgress{
		WarmupID:     warmupID,
		ProfileID:    profileID,
		Status:       models.WarmupPending,
		CurrentDay:   1,
		CurrentPhase: 1,
		NextRunAt:    &now,
	}
}

// Start runs the polling loop until ctx is cancelled, then waits for
// in-flight executions to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("warmup scheduler started", "poll_interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("warmup scheduler stopped")

			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick scans for due records and dispatches them. Exported so callers can
// force a scan without waiting for the ticker. Active records are pending
// or running; a running record with no in-flight execution is an orphan
// from a previous process and is picked up again.
func (s *Scheduler) Tick(ctx context.Context) {
	records, err := s.persistence.WarmupProgress().Active(ctx)
	if err != nil {
		s.logger.Error("could not list active warmup records", "error", err)

		return
	}

	now := time.Now().UTC()

	for _, record := range records {
		if record.NextRunAt != nil && record.NextRunAt.After(now) {
			continue
		}

		if err := s.dispatch(ctx, record); err != nil {
			s.logger.Debug("record not dispatched", "progress_id", record.ID, "error", err)
		}
	}
}

// dispatch starts one execution for record, or returns ErrAlreadyRunning
// when one is already in flight for it.
func (s *Scheduler) dispatch(ctx context.Context, record *models.WarmupProgress) error {
	s.mu.Lock()

	if _, running := s.inflight[record.ID]; running {
		s.mu.Unlock()

		return fmt.Errorf("%s: %w", record.ID, ErrAlreadyRunning)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.inflight[record.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.inflight, record.ID)
			s.mu.Unlock()
			s.wg.Done()
		}()

		s.runRecord(runCtx, record)
	}()

	return nil
}

func (s *Scheduler) runRecord(ctx context.Context, record *models.WarmupProgress) {
	logger := s.logger.With("progress_id", record.ID, "profile_id", record.ProfileID, "day", record.CurrentDay)

	template, err := s.persistence.WarmupTemplates().ByID(ctx, record.WarmupID)
	if err != nil {
		s.failRecord(ctx, record, fmt.Errorf("load template: %w", err), logger)

		return
	}

	profile, err := s.profiles.ProfileByID(ctx, record.ProfileID)
	if err != nil {
		s.failRecord(ctx, record, fmt.Errorf("load profile: %w", err), logger)

		return
	}

	// An orphaned record is already persisted as running.
	if record.Status != models.WarmupRunning {
		if err := record.Transition(models.WarmupRunning); err != nil {
			logger.Error("could not mark record running", "error", err)

			return
		}
	}

	if err := s.persistence.WarmupProgress().Save(ctx, record); err != nil {
		logger.Error("could not save warmup record", "error", err)

		return
	}

	session, err := s.manager.CreateContext(ctx, profile)
	if err != nil {
		s.failRecord(ctx, record, fmt.Errorf("create browser session: %w", err), logger)

		return
	}

	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("could not close browser session", "error", err)
		}
	}()

	entry, runErr := s.executor.RunDay(ctx, session, profile, template, record.CurrentDay)
	record.AppendDailyLog(entry)

	if s.bus != nil {
		event := eventbus.WarmupDayFinished{
			ProgressID: record.ID,
			ProfileID:  record.ProfileID,
			Day:        record.CurrentDay,
			DayLog:     entry,
		}

		if err := s.bus.Publish(ctx, event); err != nil {
			logger.Warn("could not publish day-finished event", "error", err)
		}
	}

	if runErr != nil {
		s.failRecord(ctx, record, runErr, logger)

		return
	}

	s.advance(ctx, record, template, logger)
}

// advance moves the record to the next day, completing the warm-up once
// every day has run.
func (s *Scheduler) advance(ctx context.Context, record *models.WarmupProgress, template *models.WarmupTemplate, logger *slog.Logger) {
	record.CurrentDay++
	record.LastError = ""

	if record.CurrentDay > template.TotalDays {
		if err := record.Transition(models.WarmupCompleted); err != nil {
			logger.Error("could not mark record completed", "error", err)

			return
		}

		now := time.Now().UTC()
		record.CompletedAt = &now
		record.NextRunAt = nil

		if err := s.persistence.WarmupProgress().Save(ctx, record); err != nil {
			logger.Error("could not save completed record", "error", err)
		}

		logger.Info("warmup completed", "total_days", template.TotalDays)

		return
	}

	if ref, ok := CurrentPhase(template.Phases, record.CurrentDay); ok {
		record.CurrentPhase = ref.Index
	}

	next, err := NextRun(template.Schedule, time.Now().UTC())
	if err != nil {
		s.failRecord(ctx, record, fmt.Errorf("compute next run: %w", err), logger)

		return
	}

	record.NextRunAt = &next

	if err := record.Transition(models.WarmupPending); err != nil {
		logger.Error("could not return record to pending", "error", err)

		return
	}

	if err := s.persistence.WarmupProgress().Save(ctx, record); err != nil {
		logger.Error("could not save advanced record", "error", err)

		return
	}

	logger.Info("warmup day advanced", "next_day", record.CurrentDay, "next_run_at", next)
}

func (s *Scheduler) failRecord(ctx context.Context, record *models.WarmupProgress, cause error, logger *slog.Logger) {
	record.LastError = cause.Error()

	if record.Status != models.WarmupFailed {
		if err := record.Transition(models.WarmupFailed); err != nil {
			// Stop() may have forced the status concurrently; keep what it set.
			logger.Warn("could not mark record failed", "error", err)
		}
	}

	if err := s.persistence.WarmupProgress().Save(context.WithoutCancel(ctx), record); err != nil {
		logger.Error("could not save failed record", "error", err)
	}

	logger.Error("warmup day failed", "error", cause)
}

// Pause suspends a record; an in-flight execution for it finishes its
// current day first.
func (s *Scheduler) Pause(ctx context.Context, progressID string) error {
	return s.transitionRecord(ctx, progressID, models.WarmupPaused, nil)
}

// Resume returns a paused record to the pending pool, due immediately.
func (s *Scheduler) Resume(ctx context.Context, progressID string) error {
	now := time.Now().UTC()

	return s.transitionRecord(ctx, progressID, models.WarmupPending, &now)
}

// Stop cancels any in-flight execution for the record and marks it
// failed with a user-stop reason. Stop is terminal-by-intent, so it
// bypasses the transition table for every state except completed, which
// stays terminal.
func (s *Scheduler) Stop(ctx context.Context, progressID string) error {
	s.mu.Lock()
	if cancel, running := s.inflight[progressID]; running {
		cancel()
	}
	s.mu.Unlock()

	record, err := s.persistence.WarmupProgress().ByID(ctx, progressID)
	if err != nil {
		return err
	}

	if record.Status == models.WarmupCompleted {
		return &models.InvalidTransitionError{From: record.Status, To: models.WarmupFailed}
	}

	record.Status = models.WarmupFailed
	record.LastError = "stopped by user"
	record.NextRunAt = nil

	return s.persistence.WarmupProgress().Save(ctx, record)
}

func (s *Scheduler) transitionRecord(ctx context.Context, progressID string, next models.WarmupStatus, nextRunAt *time.Time) error {
	record, err := s.persistence.WarmupProgress().ByID(ctx, progressID)
	if err != nil {
		return err
	}

	if err := record.Transition(next); err != nil {
		return err
	}

	if nextRunAt != nil {
		record.NextRunAt = nextRunAt
	}

	return s.persistence.WarmupProgress().Save(ctx, record)
}

// InFlight reports the progress IDs currently executing.
func (s *Scheduler) InFlight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}

	return ids
}
