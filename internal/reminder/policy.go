package reminder

import (
	"fmt"
	"time"

	"adabot/internal/config"
	"adabot/internal/db/models"
)

// Decision is what a policy wants done with a task on this tick.
type Decision struct {
	Fire bool
	// Overdue selects the escalation message.
	Overdue bool
	// Anchor is the new anchor time, meaningful when Fire is set.
	Anchor time.Time
	// Status, when set, is written together with Anchor.
	Status models.Status
}

// Policy decides whether a reminder is due for a task at now.
type Policy interface {
	Name() string
	Evaluate(task *models.Task, now time.Time) Decision
}

// NewPolicy returns the policy registered under name.
func NewPolicy(name string, overdueInterval time.Duration) (Policy, error) {
	switch name {
	case "", config.PolicyReset:
		return ResetPolicy{}, nil
	case config.PolicyFixedWindow:
		return FixedWindowPolicy{OverdueInterval: overdueInterval}, nil
	default:
		return nil, fmt.Errorf("unknown reminder policy %q", name)
	}
}

// ResetPolicy reminds in-progress tasks once per interval and moves the
// anchor to the firing time, so later windows drift by the tick delay.
type ResetPolicy struct{}

func (ResetPolicy) Name() string { return config.PolicyReset }

func (ResetPolicy) Evaluate(task *models.Task, now time.Time) Decision {
	if task.Status != models.StatusInProgress || task.ReminderInterval <= 0 {
		return Decision{}
	}
	if now.Sub(task.AnchorTime) < task.Interval() {
		return Decision{}
	}
	return Decision{
		Fire:    true,
		Overdue: now.After(task.DueTime),
		Anchor:  now,
	}
}

// FixedWindowPolicy keeps reminders aligned to anchor + k*window. The first
// time an in-progress task is seen past its due time it is flagged Overdue
// and escalated immediately; from then on it is reminded every
// OverdueInterval.
type FixedWindowPolicy struct {
	OverdueInterval time.Duration
}

func (FixedWindowPolicy) Name() string { return config.PolicyFixedWindow }

func (p FixedWindowPolicy) Evaluate(task *models.Task, now time.Time) Decision {
	var window time.Duration
	switch task.Status {
	case models.StatusInProgress:
		if now.After(task.DueTime) {
			return Decision{Fire: true, Overdue: true, Anchor: now, Status: models.StatusOverdue}
		}
		window = task.Interval()
	case models.StatusOverdue:
		window = p.OverdueInterval
	default:
		return Decision{}
	}
	if window <= 0 {
		return Decision{}
	}

	windows := now.Sub(task.AnchorTime) / window
	if windows < 1 {
		return Decision{}
	}
	return Decision{
		Fire:    true,
		Overdue: task.Status == models.StatusOverdue,
		Anchor:  task.AnchorTime.Add(windows * window),
	}
}
