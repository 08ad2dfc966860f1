package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adabot/internal/db/models"
)

const taskColumns = `id, guild_id, title, assigned_to, reminder_interval, anchor_time, due_time, status`

// CreateTask inserts a task and returns its id.
func (db *DB) CreateTask(ctx context.Context, task *models.Task) (int64, error) {
	query := `
		INSERT INTO tasks (guild_id, title, assigned_to, reminder_interval, anchor_time, due_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := db.queryRow(ctx, query,
		task.TenantID,
		task.Title,
		task.AssignedTo,
		task.ReminderInterval,
		db.formatTime(task.AnchorTime),
		db.formatTime(task.DueTime),
		string(task.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating task: %w", err)
	}
	task.ID = id
	return id, nil
}

// GetTask returns nil when the task does not exist in the tenant.
func (db *DB) GetTask(ctx context.Context, tenant string, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE guild_id = ? AND id = ?`

	task, err := db.scanTask(db.queryRow(ctx, query, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (db *DB) ListTasks(ctx context.Context, tenant string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE guild_id = ? ORDER BY id`
	return db.listTasks(ctx, query, tenant)
}

// ListTasksByAssignee matches the assignee string exactly.
func (db *DB) ListTasksByAssignee(ctx context.Context, tenant, assignee string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE guild_id = ? AND assigned_to = ? ORDER BY id`
	return db.listTasks(ctx, query, tenant, assignee)
}

func (db *DB) SetAnchorTime(ctx context.Context, tenant string, id int64, anchor time.Time) error {
	_, err := db.exec(ctx, `UPDATE tasks SET anchor_time = ? WHERE guild_id = ? AND id = ?`,
		db.formatTime(anchor), tenant, id)
	return err
}

func (db *DB) SetStatus(ctx context.Context, tenant string, id int64, status models.Status) error {
	_, err := db.exec(ctx, `UPDATE tasks SET status = ? WHERE guild_id = ? AND id = ?`,
		string(status), tenant, id)
	return err
}

// SetStatusForAssignee only updates the task when it is assigned to assignee.
func (db *DB) SetStatusForAssignee(ctx context.Context, tenant string, id int64, assignee string, status models.Status) (bool, error) {
	n, err := db.exec(ctx, `UPDATE tasks SET status = ? WHERE guild_id = ? AND id = ? AND assigned_to = ?`,
		string(status), tenant, id, assignee)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetOverdue writes status and anchor in a single statement.
func (db *DB) SetOverdue(ctx context.Context, tenant string, id int64, status models.Status, anchor time.Time) error {
	_, err := db.exec(ctx, `UPDATE tasks SET status = ?, anchor_time = ? WHERE guild_id = ? AND id = ?`,
		string(status), db.formatTime(anchor), tenant, id)
	return err
}

func (db *DB) DeleteTask(ctx context.Context, tenant string, id int64) (bool, error) {
	n, err := db.exec(ctx, `DELETE FROM tasks WHERE guild_id = ? AND id = ?`, tenant, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) listTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := db.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanTask(row scanner) (*models.Task, error) {
	var (
		task          models.Task
		status        sql.NullString
		anchor, due   string
		title, assign sql.NullString
	)
	if err := row.Scan(
		&task.ID,
		&task.TenantID,
		&title,
		&assign,
		&task.ReminderInterval,
		&anchor,
		&due,
		&status,
	); err != nil {
		return nil, err
	}
	task.Title = title.String
	task.AssignedTo = assign.String
	task.Status = models.StatusToDo
	if status.Valid && status.String != "" {
		task.Status = models.Status(status.String)
	}

	var err error
	if task.AnchorTime, err = db.parseTime(anchor); err != nil {
		return nil, err
	}
	if task.DueTime, err = db.parseTime(due); err != nil {
		return nil, err
	}
	return &task, nil
}
