package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/models"
)

// Executor runs one warm-up day for one profile against a live session.
type Executor struct {
	login  *LoginHandler
	logger *slog.Logger
}

func NewExecutor(login *LoginHandler, logger *slog.Logger) *Executor {
	return &Executor{login: login, logger: logger}
}

// RunDay resolves the phase for day, logs in when the phase requires it
// and performs every budgeted daily action. The returned DailyLog records
// executed repetitions per action and any per-action errors; the error
// return is non-nil only for failures that invalidate the whole day (no
// phase for the day, login failure, cancellation).
func (e *Executor) RunDay(ctx context.Context, session browser.Session, profile browser.Profile, template *models.WarmupTemplate, day int) (models.DailyLog, error) {
	entry := models.DailyLog{
		Day:        day,
		Date:       time.Now().UTC().Format("2006-01-02"),
		Actions:    map[string]int{},
		ExecutedAt: time.Now().UTC(),
	}

	ref, ok := CurrentPhase(template.Phases, day)
	if !ok {
		entry.Status = models.DayFailed

		return entry, fmt.Errorf("%w: day %d of template %q", ErrPhaseNotFound, day, template.Name)
	}

	logger := e.logger.With(
		"profile_id", profile.ID,
		"template", template.Name,
		"phase", ref.Phase.Name,
		"day", day,
	)

	if ref.Phase.RequiresLogin() {
		result, err := e.login.Login(ctx, session, profile)
		if err != nil {
			entry.Status = models.DayFailed
			entry.Errors = append(entry.Errors, fmt.Sprintf("login: %v", err))

			return entry, err
		}

		logger.Info("session authenticated", "method", result.Method)
	}

	flow, err := flowFor(profile.Platform)
	if err != nil {
		entry.Status = models.DayFailed

		return entry, err
	}

	handlers := actionHandlers(flow)
	succeeded := 0

	for _, name := range sortedActionNames(ref.Phase.DailyActions) {
		budget := ref.Phase.DailyActions[name]

		if name == "login" || (budget.IsBool() && !budget.Enabled) {
			continue
		}

		handler, ok := handlers[name]
		if !ok {
			logger.Warn("no handler for daily action, skipping", "action", name)

			continue
		}

		count := 1
		if !budget.IsBool() {
			count = RandomActionCount(budget)
		}

		done, actionErr := e.runAction(ctx, session, handler, count)
		entry.Actions[name] = done
		succeeded += done

		if actionErr != nil {
			if ctx.Err() != nil {
				entry.Status = models.DayFailed
				entry.Errors = append(entry.Errors, fmt.Sprintf("%s: %v", name, actionErr))

				return entry, ctx.Err()
			}

			logger.Warn("daily action failed", "action", name, "completed", done, "error", actionErr)
			entry.Errors = append(entry.Errors, fmt.Sprintf("%s: %v", name, actionErr))
		}
	}

	if len(entry.Errors) > 0 && succeeded == 0 {
		entry.Status = models.DayFailed
	} else {
		entry.Status = models.DayCompleted
	}

	logger.Info("warmup day finished", "status", entry.Status, "actions", entry.Actions)

	return entry, nil
}

// runAction performs count repetitions, stopping at the first failure and
// reporting how many completed before it.
func (e *Executor) runAction(ctx context.Context, session browser.Session, handler ActionFunc, count int) (int, error) {
	for i := range count {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if err := handler(ctx, session); err != nil {
			return i, err
		}
	}

	return count, nil
}

func sortedActionNames(actions map[string]models.ActionBudget) []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
