package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"adabot/internal/db/models"
)

const meetingColumns = `id, guild_id, participants, topics, check_in, check_out`

// CreateMeeting stores participants as a comma separated list of user ids.
func (db *DB) CreateMeeting(ctx context.Context, tenant string, participants []string, checkIn time.Time) (int64, error) {
	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO meetings (guild_id, participants, topics, check_in) VALUES (?, ?, '', ?) RETURNING id`,
		tenant, strings.Join(participants, ","), db.formatTime(checkIn),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating meeting: %w", err)
	}
	return id, nil
}

// ActiveMeetingForUser returns the open meeting the user takes part in.
func (db *DB) ActiveMeetingForUser(ctx context.Context, tenant, userID string) (*models.Meeting, error) {
	open, err := db.listMeetings(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE guild_id = ? AND check_out IS NULL ORDER BY id`, tenant)
	if err != nil {
		return nil, err
	}
	for _, m := range open {
		if m.HasParticipant(userID) {
			return m, nil
		}
	}
	return nil, nil
}

func (db *DB) ListMeetings(ctx context.Context, tenant string) ([]*models.Meeting, error) {
	return db.listMeetings(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE guild_id = ? ORDER BY id`, tenant)
}

func (db *DB) ListMeetingsByUser(ctx context.Context, tenant, userID string) ([]*models.Meeting, error) {
	all, err := db.ListMeetings(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var out []*models.Meeting
	for _, m := range all {
		if m.HasParticipant(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// AppendMeetingTopics concatenates topics to the existing ones with ", ".
func (db *DB) AppendMeetingTopics(ctx context.Context, tenant string, id int64, topics string) error {
	_, err := db.exec(ctx, `
		UPDATE meetings
		SET topics = CASE WHEN topics IS NULL OR topics = '' THEN ? ELSE topics || ', ' || ? END
		WHERE guild_id = ? AND id = ?`,
		topics, topics, tenant, id)
	return err
}

func (db *DB) CloseMeeting(ctx context.Context, tenant string, id int64, checkOut time.Time) (bool, error) {
	n, err := db.exec(ctx,
		`UPDATE meetings SET check_out = ? WHERE guild_id = ? AND id = ? AND check_out IS NULL`,
		db.formatTime(checkOut), tenant, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) DeleteMeeting(ctx context.Context, tenant string, id int64) (bool, error) {
	n, err := db.exec(ctx, `DELETE FROM meetings WHERE guild_id = ? AND id = ?`, tenant, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) listMeetings(ctx context.Context, query string, args ...any) ([]*models.Meeting, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		var (
			m                    models.Meeting
			participants, topics sql.NullString
			checkIn              string
			checkOut             sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.TenantID, &participants, &topics, &checkIn, &checkOut); err != nil {
			return nil, err
		}
		if participants.String != "" {
			m.Participants = strings.Split(participants.String, ",")
		}
		m.Topics = topics.String
		if m.CheckIn, err = db.parseTime(checkIn); err != nil {
			return nil, err
		}
		if m.CheckOut, err = db.parseNullTime(checkOut); err != nil {
			return nil, err
		}
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}
