package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"adabot/internal/db/models"
)

var testLoc = time.FixedZone("BRT", -3*60*60)

type fakeSource struct {
	tasks    []*models.Task
	entries  []*models.ClockEntry
	meetings []*models.Meeting
	err      error
}

func (f fakeSource) ListTasks(ctx context.Context, tenant string) ([]*models.Task, error) {
	return f.tasks, f.err
}

func (f fakeSource) ListClockEntries(ctx context.Context, tenant string) ([]*models.ClockEntry, error) {
	return f.entries, f.err
}

func (f fakeSource) ListMeetings(ctx context.Context, tenant string) ([]*models.Meeting, error) {
	return f.meetings, f.err
}

func sampleSource() fakeSource {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, testLoc)
	end := start.Add(95 * time.Minute)
	src := fakeSource{
		entries: []*models.ClockEntry{
			{ID: 1, TenantID: "g", UserID: "100", CheckIn: start, CheckOut: &end},
			{ID: 2, TenantID: "g", UserID: "200", CheckIn: start},
		},
		meetings: []*models.Meeting{
			{ID: 1, TenantID: "g", Participants: []string{"100", "200"}, Topics: "Planejamento, Revisão", CheckIn: start, CheckOut: &end},
		},
	}
	// enough rows to spill onto a second page
	for i := 1; i <= 60; i++ {
		src.tasks = append(src.tasks, &models.Task{
			ID: int64(i), TenantID: "g", Title: "Tarefa número " + strings.Repeat("x", i%40),
			AssignedTo: "@Backend", DueTime: start.Add(48 * time.Hour), Status: models.StatusInProgress,
		})
	}
	return src
}

func TestGenerateWritesPDF(t *testing.T) {
	dir := t.TempDir()
	names := map[string]string{"100": "Ana", "200": "Bruno"}

	for _, kind := range []Kind{KindTasks, KindClock, KindMeetings, KindAll} {
		t.Run(string(kind), func(t *testing.T) {
			path, err := Generate(testContext(t), sampleSource(), "g", kind, func(id string) string { return names[id] }, dir, testLoc)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "report-"+string(kind)+"-") {
				t.Fatalf("unexpected path %s", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read report: %v", err)
			}
			if !bytes.HasPrefix(data, []byte("%PDF")) {
				t.Fatalf("output is not a PDF")
			}
		})
	}
}

func TestGenerateEmptyTenant(t *testing.T) {
	path, err := Generate(testContext(t), fakeSource{}, "g", KindAll, nil, t.TempDir(), testLoc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Generate(testContext(t), fakeSource{}, "g", Kind("bogus"), nil, dir, testLoc); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := Generate(testContext(t), fakeSource{err: boom}, "g", KindTasks, nil, dir, testLoc); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 0 {
		t.Fatalf("failed generation left %d files behind", len(files))
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"tasks": KindTasks, "Tarefas": KindTasks, " ponto ": KindClock, "reuniões": KindMeetings, "ALL": KindAll}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("csv"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                             "0h 00m",
		95 * time.Minute:              "1h 35m",
		26*time.Hour + 30*time.Second: "26h 01m",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%s) = %q, want %q", d, got, want)
		}
	}
}
