package service

import (
	"errors"
	"testing"
	"time"
)

func TestCheckInCheckOut(t *testing.T) {
	svc, store, c := newTestService(t)

	entry, err := svc.CheckIn(testContext(t), guild, "100")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := svc.CheckIn(testContext(t), guild, "100"); !IsValidation(err) {
		t.Fatalf("expected second check-in to be rejected, got %v", err)
	}

	c.advance(90 * time.Minute)
	closed, err := svc.CheckOut(testContext(t), guild, "100")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if closed.ID != entry.ID || closed.Duration(c.t) != 90*time.Minute {
		t.Fatalf("unexpected closed entry %#v", closed)
	}
	if _, err := svc.CheckOut(testContext(t), guild, "100"); !IsValidation(err) {
		t.Fatalf("expected check-out without active entry to be rejected, got %v", err)
	}

	got, err := store.GetClockEntry(testContext(t), guild, entry.ID)
	if err != nil || got == nil || got.Active() {
		t.Fatalf("stored entry = %#v, %v", got, err)
	}
}

func TestCheckInIsPerTenant(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CheckIn(testContext(t), guild, "100"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := svc.CheckIn(testContext(t), "guild-2", "100"); err != nil {
		t.Fatalf("check-in on another tenant: %v", err)
	}
}

func TestEditClock(t *testing.T) {
	svc, store, c := newTestService(t)
	entry, _ := svc.CheckIn(testContext(t), guild, "100")
	c.advance(2 * time.Hour)
	if _, err := svc.CheckOut(testContext(t), guild, "100"); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	if _, err := svc.EditClock(testContext(t), guild, "200", entry.ID, "check_in", "10/03/2026 08:00"); !IsValidation(err) {
		t.Fatalf("editing another user's entry: %v", err)
	}
	if _, err := svc.EditClock(testContext(t), guild, "100", entry.ID, "check_in", "10/03/2026 12:00"); !IsValidation(err) {
		t.Fatalf("check-in after check-out: %v", err)
	}
	if _, err := svc.EditClock(testContext(t), guild, "100", entry.ID, "check_out", "10/03/2026 08:00"); !IsValidation(err) {
		t.Fatalf("check-out before check-in: %v", err)
	}
	if _, err := svc.EditClock(testContext(t), guild, "100", entry.ID, "lunch", "10/03/2026 08:00"); !IsValidation(err) {
		t.Fatalf("unknown field: %v", err)
	}
	if _, err := svc.EditClock(testContext(t), guild, "100", 999, "check_in", "10/03/2026 08:00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing entry: %v", err)
	}

	edited, err := svc.EditClock(testContext(t), guild, "100", entry.ID, "check_in", "10/03/2026 08:00")
	if err != nil {
		t.Fatalf("EditClock: %v", err)
	}
	want := time.Date(2026, 3, 10, 8, 0, 0, 0, testLoc)
	got, _ := store.GetClockEntry(testContext(t), guild, entry.ID)
	if !edited.CheckIn.Equal(want) || !got.CheckIn.Equal(want) {
		t.Fatalf("check-in = %s / %s, want %s", edited.CheckIn, got.CheckIn, want)
	}
	if d := got.Duration(c.t); d != 3*time.Hour {
		t.Fatalf("duration = %s, want 3h", d)
	}
}

func TestListAndDeleteClock(t *testing.T) {
	svc, _, _ := newTestService(t)
	a, _ := svc.CheckIn(testContext(t), guild, "100")
	if _, err := svc.CheckIn(testContext(t), guild, "200"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	all, err := svc.ListClock(testContext(t), guild, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListClock all = %d, %v", len(all), err)
	}
	mine, err := svc.ListClock(testContext(t), guild, "100")
	if err != nil || len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("ListClock user = %#v, %v", mine, err)
	}

	if err := svc.DeleteClock(testContext(t), guild, a.ID); err != nil {
		t.Fatalf("DeleteClock: %v", err)
	}
	if err := svc.DeleteClock(testContext(t), guild, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
