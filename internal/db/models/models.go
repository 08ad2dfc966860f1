package models

import (
	"math"
	"strings"
	"time"
)

// Status is the lifecycle state of a task. The values are the labels
// persisted in the tasks table and shown to users.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusOverdue    Status = "Overdue"
)

var statusAliases = map[string]Status{
	"a fazer":      StatusToDo,
	"todo":         StatusToDo,
	"to do":        StatusToDo,
	"em andamento": StatusInProgress,
	"in progress":  StatusInProgress,
	"inprogress":   StatusInProgress,
	"concluída":    StatusDone,
	"concluida":    StatusDone,
	"done":         StatusDone,
	"atrasada":     StatusOverdue,
	"overdue":      StatusOverdue,
}

// ParseStatus maps a user supplied label to a Status. The Portuguese labels
// used by the first version of the bot are still accepted.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusDone }

type Task struct {
	ID               int64
	TenantID         string
	Title            string
	AssignedTo       string
	ReminderInterval int64 // seconds
	// AnchorTime starts as the task start and is rewritten every time a
	// reminder fires.
	AnchorTime time.Time
	DueTime    time.Time
	Status     Status
}

// Interval returns the reminder window as a duration. Values too large for
// a time.Duration saturate instead of wrapping negative.
func (t *Task) Interval() time.Duration {
	if t.ReminderInterval > math.MaxInt64/int64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(t.ReminderInterval) * time.Second
}

// ClockEntry is a time-clock record. CheckOut is nil while the entry is active.
type ClockEntry struct {
	ID       int64
	TenantID string
	UserID   string
	CheckIn  time.Time
	CheckOut *time.Time
}

func (c *ClockEntry) Active() bool { return c.CheckOut == nil }

// Duration is the worked time, measured up to now for active entries.
func (c *ClockEntry) Duration(now time.Time) time.Duration {
	if c.CheckOut != nil {
		return c.CheckOut.Sub(c.CheckIn)
	}
	return now.Sub(c.CheckIn)
}

type Meeting struct {
	ID           int64
	TenantID     string
	Participants []string
	Topics       string
	CheckIn      time.Time
	CheckOut     *time.Time
}

func (m *Meeting) Active() bool { return m.CheckOut == nil }

func (m *Meeting) HasParticipant(userID string) bool {
	for _, p := range m.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func (m *Meeting) Duration(now time.Time) time.Duration {
	if m.CheckOut != nil {
		return m.CheckOut.Sub(m.CheckIn)
	}
	return now.Sub(m.CheckIn)
}
