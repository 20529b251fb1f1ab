package warmup

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/emberflow/emberflow/pkg/models"
	"github.com/robfig/cron/v3"
)

// PhaseRef is a phase tagged with its 1-based position in the template.
type PhaseRef struct {
	Phase models.Phase
	Index int
}

// CurrentPhase returns the first phase whose day range contains day.
// Phase ranges are caller-validated; a day falling in a gap returns
// ok=false and the caller must treat that as fatal for the run.
func CurrentPhase(phases []models.Phase, day int) (PhaseRef, bool) {
	for i, phase := range phases {
		if phase.Contains(day) {
			return PhaseRef{Phase: phase, Index: i + 1}, true
		}
	}

	return PhaseRef{}, false
}

// NextRun computes the next eligible run instant after now. With RunAt
// times, the first wall-clock time strictly after now wins; when all have
// passed today, the first time tomorrow is used. A cron expression takes
// over when set. The bounded symmetric jitter (±RandomDelay minutes)
// breaks detectable regularity on purpose.
func NextRun(schedule models.Schedule, now time.Time) (time.Time, error) {
	location := time.UTC

	if schedule.Timezone != "" {
		loc, err := time.LoadLocation(schedule.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("load timezone %q: %w", schedule.Timezone, err)
		}

		location = loc
	}

	localNow := now.In(location)

	var next time.Time

	switch {
	case schedule.Cron != "":
		cronSchedule, err := cron.ParseStandard(schedule.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron %q: %w", schedule.Cron, err)
		}

		next = cronSchedule.Next(localNow)

	case len(schedule.RunAt) > 0:
		candidate, err := nextRunAt(schedule.RunAt, localNow, location)
		if err != nil {
			return time.Time{}, err
		}

		next = candidate

	default:
		// No schedule configured: due in 24 hours.
		next = localNow.Add(24 * time.Hour)
	}

	return applyJitter(next, schedule.RandomDelay), nil
}

func nextRunAt(runAt []string, localNow time.Time, location *time.Location) (time.Time, error) {
	instants := make([]time.Time, 0, len(runAt))

	for _, raw := range runAt {
		clock, err := time.Parse("15:04", raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse run time %q: %w", raw, err)
		}

		instants = append(instants, time.Date(
			localNow.Year(), localNow.Month(), localNow.Day(),
			clock.Hour(), clock.Minute(), 0, 0, location,
		))
	}

	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	for _, instant := range instants {
		if instant.After(localNow) {
			return instant, nil
		}
	}

	return instants[0].AddDate(0, 0, 1), nil
}

func applyJitter(instant time.Time, randomDelayMinutes int) time.Time {
	if randomDelayMinutes <= 0 {
		return instant
	}

	boundSeconds := int64(randomDelayMinutes) * 60
	offset := rand.Int63n(2*boundSeconds+1) - boundSeconds

	return instant.Add(time.Duration(offset) * time.Second)
}

// RandomActionCount draws a uniform integer in [min,max]; a degenerate
// range returns min.
func RandomActionCount(budget models.ActionBudget) int {
	if budget.Min >= budget.Max {
		return budget.Min
	}

	return budget.Min + rand.Intn(budget.Max-budget.Min+1)
}
