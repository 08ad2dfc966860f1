package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"adabot/internal/db"
	"adabot/internal/db/models"

	"github.com/rs/zerolog"
)

type sentMessage struct {
	tenant string
	dest   Destination
	text   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
	block   chan struct{}
	entered chan struct{}
}

func (n *fakeNotifier) Notify(ctx context.Context, tenant string, dest Destination, text string) error {
	if n.entered != nil {
		n.entered <- struct{}{}
	}
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failFor[tenant]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentMessage{tenant: tenant, dest: dest, text: text})
	return nil
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type fakeDirectory struct {
	members map[string][]Member
	roles   map[string][]Role
}

func (d fakeDirectory) Members(ctx context.Context, tenant string) ([]Member, error) {
	return d.members[tenant], nil
}

func (d fakeDirectory) Roles(ctx context.Context, tenant string) ([]Role, error) {
	return d.roles[tenant], nil
}

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "reminder-test.db"), testLoc, zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(testContext(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func createTask(t *testing.T, store *db.DB, task models.Task) *models.Task {
	t.Helper()
	if _, err := store.CreateTask(testContext(t), &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return &task
}

func reloadTask(t *testing.T, store *db.DB, task *models.Task) *models.Task {
	t.Helper()
	got, err := store.GetTask(testContext(t), task.TenantID, task.ID)
	if err != nil || got == nil {
		t.Fatalf("get task %d: %v", task.ID, err)
	}
	return got
}

func newTestScheduler(store *db.DB, n Notifier, policy Policy) *Scheduler {
	dir := fakeDirectory{
		members: map[string][]Member{
			"guild-1": {{ID: "100", DisplayName: "Ana"}},
			"guild-2": {{ID: "200", DisplayName: "Bruno"}},
		},
		roles: map[string][]Role{
			"guild-1": {{ID: "900", Name: "Backend"}},
		},
	}
	return New(Options{
		Store:     store,
		Tenants:   store,
		Directory: dir,
		Notifier:  n,
		Policy:    policy,
		Location:  testLoc,
		Log:       zerolog.Nop(),
	})
}

func TestSweepInsideWindowLeavesAnchorUntouched(t *testing.T) {
	store := newTestStore(t)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	task := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Deploy", AssignedTo: "Ana",
		ReminderInterval: 3600, AnchorTime: anchor, DueTime: anchor.Add(48 * time.Hour),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{}

	stats := newTestScheduler(store, n, ResetPolicy{}).Sweep(testContext(t), anchor.Add(30*time.Minute))

	if stats.Fired != 0 || len(n.messages()) != 0 {
		t.Fatalf("expected no reminder, stats=%#v", stats)
	}
	if got := reloadTask(t, store, task); !got.AnchorTime.Equal(anchor) {
		t.Fatalf("anchor changed to %s", got.AnchorTime)
	}
}

func TestSweepFiresOncePerWindow(t *testing.T) {
	store := newTestStore(t)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	task := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Deploy", AssignedTo: "@Backend",
		ReminderInterval: 3600, AnchorTime: anchor, DueTime: anchor.Add(48 * time.Hour),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, ResetPolicy{})
	now := anchor.Add(time.Hour + 20*time.Second)

	s.Sweep(testContext(t), now)
	s.Sweep(testContext(t), now)

	msgs := n.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one reminder, got %d", len(msgs))
	}
	if msgs[0].dest.Kind != KindRole || !strings.HasPrefix(msgs[0].text, "<@&900>") {
		t.Fatalf("unexpected message %#v", msgs[0])
	}
	if got := reloadTask(t, store, task); !got.AnchorTime.Equal(now) {
		t.Fatalf("anchor = %s, want %s", got.AnchorTime, now)
	}
}

func TestSweepSkipsDoneAndUnresolvedTasks(t *testing.T) {
	store := newTestStore(t)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	done := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Old", AssignedTo: "Ana",
		ReminderInterval: 60, AnchorTime: anchor, DueTime: anchor.Add(time.Hour),
		Status: models.StatusDone,
	})
	ghost := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Ghost", AssignedTo: "Nobody",
		ReminderInterval: 60, AnchorTime: anchor, DueTime: anchor.Add(time.Hour),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{}

	stats := newTestScheduler(store, n, ResetPolicy{}).Sweep(testContext(t), anchor.Add(10*time.Minute))

	if len(n.messages()) != 0 {
		t.Fatalf("expected no reminders, got %#v", n.messages())
	}
	if stats.Unresolved != 1 || stats.Evaluated != 1 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	for _, task := range []*models.Task{done, ghost} {
		if got := reloadTask(t, store, task); !got.AnchorTime.Equal(anchor) {
			t.Fatalf("task %d anchor changed to %s", task.ID, got.AnchorTime)
		}
	}
}

func TestSweepIsolatesTenantFailures(t *testing.T) {
	store := newTestStore(t)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	failing := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "A", AssignedTo: "Ana",
		ReminderInterval: 60, AnchorTime: anchor, DueTime: anchor.Add(time.Hour),
		Status: models.StatusInProgress,
	})
	createTask(t, store, models.Task{
		TenantID: "guild-2", Title: "B", AssignedTo: "Bruno",
		ReminderInterval: 60, AnchorTime: anchor, DueTime: anchor.Add(time.Hour),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{failFor: map[string]error{"guild-1": errors.New("missing access")}}

	stats := newTestScheduler(store, n, ResetPolicy{}).Sweep(testContext(t), anchor.Add(2*time.Minute))

	msgs := n.messages()
	if len(msgs) != 1 || msgs[0].tenant != "guild-2" {
		t.Fatalf("expected guild-2 reminder only, got %#v", msgs)
	}
	if stats.Failed != 1 || stats.Fired != 1 || stats.Tenants != 2 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if got := reloadTask(t, store, failing); !got.AnchorTime.Equal(anchor) {
		t.Fatalf("failed delivery must not advance anchor, got %s", got.AnchorTime)
	}
}

func TestSweepEndToEndEscalation(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	interval, err := ParseInterval("1 minuto")
	if err != nil {
		t.Fatalf("parse interval: %v", err)
	}
	task := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Ship release", AssignedTo: "Ana",
		ReminderInterval: interval, AnchorTime: now, DueTime: now.Add(10 * time.Minute),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, ResetPolicy{})

	first := now.Add(61 * time.Second)
	s.Sweep(testContext(t), first)
	msgs := n.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "Lembrete de Tarefa") {
		t.Fatalf("expected a standard reminder, got %#v", msgs)
	}
	if got := reloadTask(t, store, task); !got.AnchorTime.Equal(first) {
		t.Fatalf("anchor = %s, want %s", got.AnchorTime, first)
	}

	late := now.Add(11 * time.Minute)
	s.Sweep(testContext(t), late)
	msgs = n.messages()
	if len(msgs) != 2 || !strings.Contains(msgs[1].text, "TAREFA ATRASADA") {
		t.Fatalf("expected an overdue reminder, got %#v", msgs)
	}
	if !strings.Contains(msgs[1].text, "10/03/2026 09:10") {
		t.Fatalf("expected due date in message, got %q", msgs[1].text)
	}
}

func TestSweepFixedWindowMarksOverdue(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	task := createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Audit", AssignedTo: "Ana",
		ReminderInterval: 3600, AnchorTime: now, DueTime: now.Add(30 * time.Minute),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, FixedWindowPolicy{OverdueInterval: 24 * time.Hour})

	late := now.Add(31 * time.Minute)
	s.Sweep(testContext(t), late)

	got := reloadTask(t, store, task)
	if got.Status != models.StatusOverdue || !got.AnchorTime.Equal(late) {
		t.Fatalf("expected overdue status and anchor %s, got %#v", late, got)
	}

	s.Sweep(testContext(t), late.Add(time.Hour))
	if len(n.messages()) != 1 {
		t.Fatalf("expected no reminder before the daily window, got %d", len(n.messages()))
	}
}

func TestTickDoesNotOverlap(t *testing.T) {
	store := newTestStore(t)
	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	createTask(t, store, models.Task{
		TenantID: "guild-1", Title: "Slow", AssignedTo: "Ana",
		ReminderInterval: 60, AnchorTime: anchor, DueTime: anchor.Add(time.Hour),
		Status: models.StatusInProgress,
	})
	n := &fakeNotifier{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestScheduler(store, n, ResetPolicy{})
	s.now = func() time.Time { return anchor.Add(5 * time.Minute) }

	done := make(chan bool, 1)
	go func() {
		_, ran := s.Tick(context.Background())
		done <- ran
	}()

	select {
	case <-n.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first tick")
	}
	if _, ran := s.Tick(testContext(t)); ran {
		t.Fatal("expected overlapping tick to be skipped")
	}

	close(n.block)
	if ran := <-done; !ran {
		t.Fatal("expected first tick to run")
	}
}
