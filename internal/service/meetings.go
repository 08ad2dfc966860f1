package service

import (
	"context"
	"fmt"
	"strings"

	"adabot/internal/db/models"
)

// StartMeeting opens a meeting with the given participants plus the author.
// Nobody may be in two open meetings at once.
func (s *Service) StartMeeting(ctx context.Context, tenant, authorID string, participants []string) (*models.Meeting, error) {
	ids := uniqueParticipants(append(append([]string(nil), participants...), authorID))

	for _, id := range ids {
		active, err := s.store.ActiveMeetingForUser(ctx, tenant, id)
		if err != nil {
			return nil, err
		}
		if active == nil {
			continue
		}
		if id == authorID {
			return nil, invalid("you are already in meeting #%d, end it first", active.ID)
		}
		return nil, invalid("<@%s> is already in meeting #%d", id, active.ID)
	}

	now := s.currentTime()
	meetingID, err := s.store.CreateMeeting(ctx, tenant, ids, now)
	if err != nil {
		return nil, err
	}
	return &models.Meeting{ID: meetingID, TenantID: tenant, Participants: ids, CheckIn: now}, nil
}

// AddTopics appends topics to the user's open meeting.
func (s *Service) AddTopics(ctx context.Context, tenant, userID, topics string) (*models.Meeting, error) {
	topics = strings.TrimSpace(topics)
	if topics == "" {
		return nil, invalid("topics cannot be empty")
	}
	m, err := s.activeMeeting(ctx, tenant, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendMeetingTopics(ctx, tenant, m.ID, topics); err != nil {
		return nil, err
	}
	if m.Topics == "" {
		m.Topics = topics
	} else {
		m.Topics += ", " + topics
	}
	return m, nil
}

// EndMeeting closes the user's open meeting. Any participant may end it.
func (s *Service) EndMeeting(ctx context.Context, tenant, userID string) (*models.Meeting, error) {
	m, err := s.activeMeeting(ctx, tenant, userID)
	if err != nil {
		return nil, err
	}
	now := s.currentTime()
	closed, err := s.store.CloseMeeting(ctx, tenant, m.ID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, invalid("meeting #%d has already ended", m.ID)
	}
	m.CheckOut = &now
	return m, nil
}

func (s *Service) ListMeetings(ctx context.Context, tenant, userID string) ([]*models.Meeting, error) {
	if userID == "" {
		return s.store.ListMeetings(ctx, tenant)
	}
	return s.store.ListMeetingsByUser(ctx, tenant, userID)
}

func (s *Service) DeleteMeeting(ctx context.Context, tenant string, id int64) error {
	changed, err := s.store.DeleteMeeting(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: meeting %d", ErrNotFound, id)
	}
	return nil
}

func (s *Service) activeMeeting(ctx context.Context, tenant, userID string) (*models.Meeting, error) {
	m, err := s.store.ActiveMeetingForUser(ctx, tenant, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, invalid("you are not in an active meeting")
	}
	return m, nil
}

func uniqueParticipants(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
