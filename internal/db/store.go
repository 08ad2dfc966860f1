package db

import (
	"context"
	"time"

	"adabot/internal/db/models"
)

// Store is the tenant-scoped persistence used by the scheduler, the command
// services and the report generator. Lookups return (nil, nil) and updates
// return false when no row matches.
type Store interface {
	TaskStore
	ClockStore
	MeetingStore

	Tenants(ctx context.Context) ([]string, error)
	Migrate(ctx context.Context) error
	Close() error
}

type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) (int64, error)
	GetTask(ctx context.Context, tenant string, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, tenant string) ([]*models.Task, error)
	ListTasksByAssignee(ctx context.Context, tenant, assignee string) ([]*models.Task, error)
	SetAnchorTime(ctx context.Context, tenant string, id int64, anchor time.Time) error
	SetStatus(ctx context.Context, tenant string, id int64, status models.Status) error
	SetStatusForAssignee(ctx context.Context, tenant string, id int64, assignee string, status models.Status) (bool, error)
	SetOverdue(ctx context.Context, tenant string, id int64, status models.Status, anchor time.Time) error
	DeleteTask(ctx context.Context, tenant string, id int64) (bool, error)
}

type ClockStore interface {
	CreateClockEntry(ctx context.Context, tenant, userID string, checkIn time.Time) (int64, error)
	ActiveClockEntry(ctx context.Context, tenant, userID string) (*models.ClockEntry, error)
	GetClockEntry(ctx context.Context, tenant string, id int64) (*models.ClockEntry, error)
	ListClockEntries(ctx context.Context, tenant string) ([]*models.ClockEntry, error)
	ListClockEntriesByUser(ctx context.Context, tenant, userID string) ([]*models.ClockEntry, error)
	CloseClockEntry(ctx context.Context, tenant, userID string, checkOut time.Time) (bool, error)
	SetClockCheckIn(ctx context.Context, tenant string, id int64, t time.Time) error
	SetClockCheckOut(ctx context.Context, tenant string, id int64, t time.Time) error
	DeleteClockEntry(ctx context.Context, tenant string, id int64) (bool, error)
}

type MeetingStore interface {
	CreateMeeting(ctx context.Context, tenant string, participants []string, checkIn time.Time) (int64, error)
	ActiveMeetingForUser(ctx context.Context, tenant, userID string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, tenant string) ([]*models.Meeting, error)
	ListMeetingsByUser(ctx context.Context, tenant, userID string) ([]*models.Meeting, error)
	AppendMeetingTopics(ctx context.Context, tenant string, id int64, topics string) error
	CloseMeeting(ctx context.Context, tenant string, id int64, checkOut time.Time) (bool, error)
	DeleteMeeting(ctx context.Context, tenant string, id int64) (bool, error)
}

var _ Store = (*DB)(nil)
