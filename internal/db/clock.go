package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adabot/internal/db/models"
)

const clockColumns = `id, guild_id, user_id, check_in, check_out`

// CreateClockEntry opens a new time-clock entry for the user.
func (db *DB) CreateClockEntry(ctx context.Context, tenant, userID string, checkIn time.Time) (int64, error) {
	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO clockpoint (guild_id, user_id, check_in) VALUES (?, ?, ?) RETURNING id`,
		tenant, userID, db.formatTime(checkIn),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating clock entry: %w", err)
	}
	return id, nil
}

// ActiveClockEntry gets the open entry for a user if one exists
func (db *DB) ActiveClockEntry(ctx context.Context, tenant, userID string) (*models.ClockEntry, error) {
	query := `
		SELECT ` + clockColumns + `
		FROM clockpoint
		WHERE guild_id = ? AND user_id = ? AND check_out IS NULL
		ORDER BY id DESC
		LIMIT 1`

	entry, err := db.scanClockEntry(db.queryRow(ctx, query, tenant, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

func (db *DB) GetClockEntry(ctx context.Context, tenant string, id int64) (*models.ClockEntry, error) {
	query := `SELECT ` + clockColumns + ` FROM clockpoint WHERE guild_id = ? AND id = ?`

	entry, err := db.scanClockEntry(db.queryRow(ctx, query, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

func (db *DB) ListClockEntries(ctx context.Context, tenant string) ([]*models.ClockEntry, error) {
	return db.listClockEntries(ctx,
		`SELECT `+clockColumns+` FROM clockpoint WHERE guild_id = ? ORDER BY id`, tenant)
}

func (db *DB) ListClockEntriesByUser(ctx context.Context, tenant, userID string) ([]*models.ClockEntry, error) {
	return db.listClockEntries(ctx,
		`SELECT `+clockColumns+` FROM clockpoint WHERE guild_id = ? AND user_id = ? ORDER BY id`, tenant, userID)
}

// CloseClockEntry sets check_out on the user's active entry.
func (db *DB) CloseClockEntry(ctx context.Context, tenant, userID string, checkOut time.Time) (bool, error) {
	n, err := db.exec(ctx,
		`UPDATE clockpoint SET check_out = ? WHERE guild_id = ? AND user_id = ? AND check_out IS NULL`,
		db.formatTime(checkOut), tenant, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) SetClockCheckIn(ctx context.Context, tenant string, id int64, t time.Time) error {
	_, err := db.exec(ctx, `UPDATE clockpoint SET check_in = ? WHERE guild_id = ? AND id = ?`,
		db.formatTime(t), tenant, id)
	return err
}

func (db *DB) SetClockCheckOut(ctx context.Context, tenant string, id int64, t time.Time) error {
	_, err := db.exec(ctx, `UPDATE clockpoint SET check_out = ? WHERE guild_id = ? AND id = ?`,
		db.formatTime(t), tenant, id)
	return err
}

func (db *DB) DeleteClockEntry(ctx context.Context, tenant string, id int64) (bool, error) {
	n, err := db.exec(ctx, `DELETE FROM clockpoint WHERE guild_id = ? AND id = ?`, tenant, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) listClockEntries(ctx context.Context, query string, args ...any) ([]*models.ClockEntry, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ClockEntry
	for rows.Next() {
		entry, err := db.scanClockEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (db *DB) scanClockEntry(row scanner) (*models.ClockEntry, error) {
	var (
		entry    models.ClockEntry
		checkIn  string
		checkOut sql.NullString
	)
	if err := row.Scan(&entry.ID, &entry.TenantID, &entry.UserID, &checkIn, &checkOut); err != nil {
		return nil, err
	}

	var err error
	if entry.CheckIn, err = db.parseTime(checkIn); err != nil {
		return nil, err
	}
	if entry.CheckOut, err = db.parseNullTime(checkOut); err != nil {
		return nil, err
	}
	return &entry, nil
}
