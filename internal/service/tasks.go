package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adabot/internal/db/models"
	"adabot/internal/reminder"
)

const AddTaskUsage = "title | type | target | [start] | due | interval"

// AddTask creates a task from the pipe separated arguments
// "title | type | target | [start] | due | interval", where type is
// usuario/user or cargo/role and dates are DD/MM/YYYY HH:MM. Without a start
// date the task starts now.
func (s *Service) AddTask(ctx context.Context, tenant, args string) (*models.Task, error) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var title, kind, target, startRaw, dueRaw, intervalRaw string
	switch len(parts) {
	case 6:
		title, kind, target, startRaw, dueRaw, intervalRaw = parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	case 5:
		title, kind, target, dueRaw, intervalRaw = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return nil, invalid("invalid format, use: `%s`", AddTaskUsage)
	}
	if title == "" {
		return nil, invalid("task title is required")
	}

	now := s.currentTime()
	start := now
	if startRaw != "" {
		t, err := s.ParseDate(startRaw)
		if err != nil {
			return nil, invalid("invalid start date, use DD/MM/YYYY HH:MM")
		}
		if t.Before(now.Truncate(time.Minute)) {
			return nil, invalid("start date cannot be in the past")
		}
		start = t
	}

	due, err := s.ParseDate(dueRaw)
	if err != nil {
		return nil, invalid("invalid due date, use DD/MM/YYYY HH:MM")
	}
	if !due.After(start) {
		return nil, invalid("due date must be after the start date")
	}

	interval, err := reminder.ParseInterval(intervalRaw)
	if err != nil {
		return nil, invalid("invalid reminder interval, e.g. `2 semanas`, `3 dias`, `1 mes`, `12 horas` or `30 minutos`")
	}

	assignee, err := s.resolveTarget(ctx, tenant, kind, target)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		TenantID:         tenant,
		Title:            title,
		AssignedTo:       assignee,
		ReminderInterval: interval,
		AnchorTime:       start,
		DueTime:          due,
		Status:           models.StatusToDo,
	}
	if _, err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Info().Str("guild_id", tenant).Int64("task_id", task.ID).Str("assignee", assignee).Msg("task created")
	return task, nil
}

func (s *Service) resolveTarget(ctx context.Context, tenant, kind, target string) (string, error) {
	switch strings.ToLower(kind) {
	case "usuario", "usuário", "user", "member":
		m, err := s.ids.ResolveMember(ctx, tenant, target)
		if errors.Is(err, ErrMemberNotFound) {
			return "", invalid("member '%s' not found in this server", target)
		}
		if err != nil {
			return "", err
		}
		return m.DisplayName, nil
	case "cargo", "role":
		r, err := s.ids.ResolveRole(ctx, tenant, target)
		if errors.Is(err, ErrRoleNotFound) {
			return "", invalid("role '%s' not found in this server", target)
		}
		if err != nil {
			return "", err
		}
		return "@" + r.Name, nil
	default:
		return "", invalid("unknown assignment type '%s', use 'usuario' or 'cargo'", kind)
	}
}

// ListTasks returns every task of the tenant, or only those assigned to the
// member or role named by filter. The second value is the resolved assignee.
func (s *Service) ListTasks(ctx context.Context, tenant, filter string) ([]*models.Task, string, error) {
	if strings.TrimSpace(filter) == "" {
		tasks, err := s.store.ListTasks(ctx, tenant)
		return tasks, "", err
	}
	assignee, err := s.resolveAssignee(ctx, tenant, filter)
	if err != nil {
		return nil, "", err
	}
	tasks, err := s.store.ListTasksByAssignee(ctx, tenant, assignee)
	return tasks, assignee, err
}

// UpdateStatus changes the status of task id, which must be assigned to the
// member or role named by target. Done tasks cannot change again, Overdue is
// only set by the reminder scheduler and an Overdue task can only be closed.
func (s *Service) UpdateStatus(ctx context.Context, tenant string, id int64, target, statusText string) (*models.Task, error) {
	status, ok := models.ParseStatus(statusText)
	if !ok || status == models.StatusOverdue {
		return nil, invalid("invalid status, use one of: %s, %s, %s",
			models.StatusToDo, models.StatusInProgress, models.StatusDone)
	}

	assignee, err := s.resolveAssignee(ctx, tenant, target)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.AssignedTo != assignee {
		return nil, fmt.Errorf("%w: task %d assigned to %s", ErrNotFound, id, assignee)
	}
	if task.Status.Terminal() {
		return nil, invalid("task %d is already %s", id, task.Status)
	}
	if task.Status == models.StatusOverdue && status != models.StatusDone {
		return nil, invalid("task %d is %s and can only be set to %s", id, task.Status, models.StatusDone)
	}

	changed, err := s.store.SetStatusForAssignee(ctx, tenant, id, assignee, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("%w: task %d assigned to %s", ErrNotFound, id, assignee)
	}
	task.Status = status
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, tenant string, id int64) error {
	changed, err := s.store.DeleteTask(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	return nil
}
