package service

import (
	"context"
	"fmt"
	"strings"

	"adabot/internal/db/models"
)

// CheckIn opens a time-clock entry. A user has at most one active entry.
func (s *Service) CheckIn(ctx context.Context, tenant, userID string) (*models.ClockEntry, error) {
	active, err := s.store.ActiveClockEntry(ctx, tenant, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, invalid("you already have an active check-in (entry %d)", active.ID)
	}

	now := s.currentTime()
	id, err := s.store.CreateClockEntry(ctx, tenant, userID, now)
	if err != nil {
		return nil, err
	}
	return &models.ClockEntry{ID: id, TenantID: tenant, UserID: userID, CheckIn: now}, nil
}

// CheckOut closes the user's active entry.
func (s *Service) CheckOut(ctx context.Context, tenant, userID string) (*models.ClockEntry, error) {
	active, err := s.store.ActiveClockEntry(ctx, tenant, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, invalid("you don't have an active check-in")
	}

	now := s.currentTime()
	if now.Before(active.CheckIn) {
		now = active.CheckIn
	}
	closed, err := s.store.CloseClockEntry(ctx, tenant, userID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, invalid("you don't have an active check-in")
	}
	active.CheckOut = &now
	return active, nil
}

// ListClock lists all entries of the tenant, or only userID's when set.
func (s *Service) ListClock(ctx context.Context, tenant, userID string) ([]*models.ClockEntry, error) {
	if userID == "" {
		return s.store.ListClockEntries(ctx, tenant)
	}
	return s.store.ListClockEntriesByUser(ctx, tenant, userID)
}

// EditClock rewrites the check-in or check-out of one of the user's own
// entries, keeping check-in <= check-out.
func (s *Service) EditClock(ctx context.Context, tenant, userID string, id int64, field, raw string) (*models.ClockEntry, error) {
	entry, err := s.store.GetClockEntry(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: clock entry %d", ErrNotFound, id)
	}
	if entry.UserID != userID {
		return nil, invalid("you can only edit your own clock entries")
	}

	t, err := s.ParseDate(raw)
	if err != nil {
		return nil, invalid("invalid date, use DD/MM/YYYY HH:MM")
	}

	switch strings.ToLower(strings.ReplaceAll(field, "-", "_")) {
	case "check_in", "checkin", "entrada":
		if entry.CheckOut != nil && t.After(*entry.CheckOut) {
			return nil, invalid("the new check-in cannot be after the existing check-out")
		}
		if err := s.store.SetClockCheckIn(ctx, tenant, id, t); err != nil {
			return nil, err
		}
		entry.CheckIn = t
	case "check_out", "checkout", "saida", "saída":
		if t.Before(entry.CheckIn) {
			return nil, invalid("the new check-out cannot be before the existing check-in")
		}
		if err := s.store.SetClockCheckOut(ctx, tenant, id, t); err != nil {
			return nil, err
		}
		entry.CheckOut = &t
	default:
		return nil, invalid("invalid entry field '%s', use 'check_in' or 'check_out'", field)
	}
	return entry, nil
}

func (s *Service) DeleteClock(ctx context.Context, tenant string, id int64) error {
	changed, err := s.store.DeleteClockEntry(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: clock entry %d", ErrNotFound, id)
	}
	return nil
}
