// Package scheduler implements the Scheduler: a single-writer tick loop that
// fires due schedules, creates and enqueues their child jobs, and advances
// each schedule's next_run_at.
package scheduler

import (
	"fmt"
	"time"

	"github.com/jonesrussell/crawljobs/internal/domain"
	"github.com/robfig/cron/v3"
)

const dailyHour = 9

// ComputeNext is a pure function of (now, frequency, timezone, customExpr):
// same inputs always produce the same next_run_at, so a crashed-and-restarted
// scheduler never double-fires a schedule.
func ComputeNext(now time.Time, freq domain.Frequency, tz string, customExpr string) (*time.Time, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load location %q: %w", tz, err)
		}
		loc = l
	}
	local := now.In(loc)

	switch freq {
	case domain.FrequencyOnce:
		return nil, nil
	case domain.FrequencyHourly:
		t := local.Add(time.Hour)
		return &t, nil
	case domain.FrequencyDaily:
		t := nextDailyAt(local, dailyHour)
		return &t, nil
	case domain.FrequencyWeekly:
		t := nextWeekdayAt(local, time.Monday, dailyHour)
		return &t, nil
	case domain.FrequencyMonthly:
		t := nextFirstOfMonthAt(local, dailyHour)
		return &t, nil
	case domain.FrequencyCustom:
		return computeNextCustom(now, customExpr)
	default:
		return nil, fmt.Errorf("unknown frequency: %s", freq)
	}
}

// computeNextCustom evaluates a standard 5-field cron expression via
// robfig/cron, treated as an opaque schedule per the frequency mapping.
func computeNextCustom(now time.Time, expr string) (*time.Time, error) {
	if expr == "" {
		return nil, fmt.Errorf("custom frequency requires a cron expression")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse custom cron expression %q: %w", expr, err)
	}
	t := sched.Next(now)
	return &t, nil
}

func nextDailyAt(local time.Time, hour int) time.Time {
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func nextWeekdayAt(local time.Time, weekday time.Weekday, hour int) time.Time {
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	daysUntil := (int(weekday) - int(local.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysUntil)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func nextFirstOfMonthAt(local time.Time, hour int) time.Time {
	firstOfThisMonth := time.Date(local.Year(), local.Month(), 1, hour, 0, 0, 0, local.Location())
	return firstOfThisMonth.AddDate(0, 1, 0)
}
