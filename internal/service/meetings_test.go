package service

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestStartMeetingIncludesAuthorOnce(t *testing.T) {
	svc, _, _ := newTestService(t)

	m, err := svc.StartMeeting(testContext(t), guild, "100", []string{"200", "100", "200"})
	if err != nil {
		t.Fatalf("StartMeeting: %v", err)
	}
	if !slices.Equal(m.Participants, []string{"200", "100"}) {
		t.Fatalf("participants = %v", m.Participants)
	}
}

func TestStartMeetingRejectsBusyParticipants(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.StartMeeting(testContext(t), guild, "100", []string{"200"}); err != nil {
		t.Fatalf("StartMeeting: %v", err)
	}

	if _, err := svc.StartMeeting(testContext(t), guild, "100", nil); !IsValidation(err) {
		t.Fatalf("author already in a meeting: %v", err)
	}
	if _, err := svc.StartMeeting(testContext(t), guild, "300", []string{"200"}); !IsValidation(err) {
		t.Fatalf("participant already in a meeting: %v", err)
	}
	if _, err := svc.StartMeeting(testContext(t), "guild-2", "100", nil); err != nil {
		t.Fatalf("meetings must be per tenant: %v", err)
	}
}

func TestMeetingTopicsAndEnd(t *testing.T) {
	svc, store, c := newTestService(t)
	started, err := svc.StartMeeting(testContext(t), guild, "100", []string{"200"})
	if err != nil {
		t.Fatalf("StartMeeting: %v", err)
	}

	if _, err := svc.AddTopics(testContext(t), guild, "100", "A"); err != nil {
		t.Fatalf("AddTopics: %v", err)
	}
	m, err := svc.AddTopics(testContext(t), guild, "200", "B")
	if err != nil {
		t.Fatalf("AddTopics: %v", err)
	}
	if m.Topics != "A, B" {
		t.Fatalf("topics = %q, want %q", m.Topics, "A, B")
	}
	if _, err := svc.AddTopics(testContext(t), guild, "300", "C"); !IsValidation(err) {
		t.Fatalf("topics from outsider: %v", err)
	}
	if _, err := svc.AddTopics(testContext(t), guild, "100", "  "); !IsValidation(err) {
		t.Fatalf("empty topics: %v", err)
	}

	c.advance(45 * time.Minute)
	ended, err := svc.EndMeeting(testContext(t), guild, "200")
	if err != nil {
		t.Fatalf("EndMeeting: %v", err)
	}
	if ended.ID != started.ID || ended.Duration(c.t) != 45*time.Minute {
		t.Fatalf("unexpected ended meeting %#v", ended)
	}
	if _, err := svc.EndMeeting(testContext(t), guild, "100"); !IsValidation(err) {
		t.Fatalf("second end: %v", err)
	}

	stored, err := store.ListMeetings(testContext(t), guild)
	if err != nil || len(stored) != 1 || stored[0].Topics != "A, B" || stored[0].Active() {
		t.Fatalf("stored meetings = %#v, %v", stored, err)
	}

	// participants are free again
	if _, err := svc.StartMeeting(testContext(t), guild, "200", nil); err != nil {
		t.Fatalf("StartMeeting after end: %v", err)
	}
}

func TestListAndDeleteMeetings(t *testing.T) {
	svc, _, _ := newTestService(t)
	a, _ := svc.StartMeeting(testContext(t), guild, "100", nil)
	if _, err := svc.StartMeeting(testContext(t), guild, "200", nil); err != nil {
		t.Fatalf("StartMeeting: %v", err)
	}

	mine, err := svc.ListMeetings(testContext(t), guild, "100")
	if err != nil || len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("ListMeetings user = %#v, %v", mine, err)
	}
	if err := svc.DeleteMeeting(testContext(t), guild, a.ID); err != nil {
		t.Fatalf("DeleteMeeting: %v", err)
	}
	if err := svc.DeleteMeeting(testContext(t), guild, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	all, _ := svc.ListMeetings(testContext(t), guild, "")
	if len(all) != 1 {
		t.Fatalf("remaining meetings = %d, want 1", len(all))
	}
}
