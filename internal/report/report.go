// Package report renders tenant data into PDF files.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adabot/internal/db/models"
	"adabot/internal/reminder"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

type Kind string

const (
	KindTasks    Kind = "tasks"
	KindClock    Kind = "clock"
	KindMeetings Kind = "meetings"
	KindAll      Kind = "all"
)

var ErrUnknownKind = errors.New("unknown report kind")

var kindAliases = map[string]Kind{
	"tasks":    KindTasks,
	"tarefas":  KindTasks,
	"clock":    KindClock,
	"ponto":    KindClock,
	"meetings": KindMeetings,
	"reunioes": KindMeetings,
	"reuniões": KindMeetings,
	"all":      KindAll,
	"todos":    KindAll,
}

func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

func (k Kind) includes(other Kind) bool {
	return k == KindAll || k == other
}

// Source is the read side of the store used by reports.
type Source interface {
	ListTasks(ctx context.Context, tenant string) ([]*models.Task, error)
	ListClockEntries(ctx context.Context, tenant string) ([]*models.ClockEntry, error)
	ListMeetings(ctx context.Context, tenant string) ([]*models.Meeting, error)
}

// Namer maps a user id to a display name. A nil Namer prints raw ids.
type Namer func(userID string) string

type column struct {
	title string
	width float64
}

const (
	rowHeight    = 7.0
	headerHeight = 8.0
)

// Generate writes a report of the given kind for tenant into dir and returns
// the file path. The caller owns the file and removes it when done.
func Generate(ctx context.Context, src Source, tenant string, kind Kind, name Namer, dir string, loc *time.Location) (string, error) {
	switch kind {
	case KindTasks, KindClock, KindMeetings, KindAll:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if name == nil {
		name = func(id string) string { return id }
	}
	if loc == nil {
		loc = time.Local
	}

	r := newRenderer(loc)
	r.title(fmt.Sprintf("Report: %s", kind), time.Now().In(loc))

	if kind.includes(KindTasks) {
		tasks, err := src.ListTasks(ctx, tenant)
		if err != nil {
			return "", fmt.Errorf("list tasks: %w", err)
		}
		r.tasks(tasks)
	}
	if kind.includes(KindClock) {
		entries, err := src.ListClockEntries(ctx, tenant)
		if err != nil {
			return "", fmt.Errorf("list clock entries: %w", err)
		}
		r.clock(entries, name)
	}
	if kind.includes(KindMeetings) {
		meetings, err := src.ListMeetings(ctx, tenant)
		if err != nil {
			return "", fmt.Errorf("list meetings: %w", err)
		}
		r.meetings(meetings, name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report-%s-%s.pdf", kind, uuid.NewString()))
	if err := r.pdf.OutputFileAndClose(path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	loc *time.Location
}

func newRenderer(loc *time.Location) *renderer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), loc: loc}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return r
}

func (r *renderer) title(text string, generated time.Time) {
	r.pdf.SetFont("Helvetica", "B", 16)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.CellFormat(0, 10, r.tr(text), "", 1, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.CellFormat(0, 6, "Generated "+generated.Format(reminder.DateLayout), "", 1, "L", false, 0, "")
	r.pdf.Ln(4)
}

func (r *renderer) section(text string) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Helvetica", "B", 12)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.CellFormat(0, 8, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *renderer) tasks(tasks []*models.Task) {
	r.section(fmt.Sprintf("Tasks (%d)", len(tasks)))
	cols := []column{{"ID", 14}, {"Title", 66}, {"Assignee", 40}, {"Due", 34}, {"Status", 36}}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.AssignedTo,
			r.date(t.DueTime),
			string(t.Status),
		})
	}
	r.table(cols, rows)
}

func (r *renderer) clock(entries []*models.ClockEntry, name Namer) {
	r.section(fmt.Sprintf("Time clock (%d)", len(entries)))
	cols := []column{{"ID", 14}, {"User", 56}, {"Check-in", 40}, {"Check-out", 40}, {"Duration", 40}}
	now := time.Now()
	var total time.Duration
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		out := "active"
		if e.CheckOut != nil {
			out = r.date(*e.CheckOut)
		}
		d := e.Duration(now)
		total += d
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			name(e.UserID),
			r.date(e.CheckIn),
			out,
			FormatDuration(d),
		})
	}
	r.table(cols, rows)
	r.footnote("Total: " + FormatDuration(total))
}

func (r *renderer) meetings(meetings []*models.Meeting, name Namer) {
	r.section(fmt.Sprintf("Meetings (%d)", len(meetings)))
	cols := []column{{"ID", 14}, {"Participants", 56}, {"Topics", 60}, {"Start", 34}, {"Duration", 26}}
	now := time.Now()
	rows := make([][]string, 0, len(meetings))
	for _, m := range meetings {
		names := make([]string, 0, len(m.Participants))
		for _, p := range m.Participants {
			names = append(names, name(p))
		}
		duration := "active"
		if !m.Active() {
			duration = FormatDuration(m.Duration(now))
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			strings.Join(names, ", "),
			m.Topics,
			r.date(m.CheckIn),
			duration,
		})
	}
	r.table(cols, rows)
}

func (r *renderer) table(cols []column, rows [][]string) {
	r.header(cols)
	if len(rows) == 0 {
		r.pdf.SetFont("Helvetica", "I", 9)
		r.pdf.CellFormat(0, rowHeight, "No records", "1", 1, "C", false, 0, "")
		return
	}

	_, pageH := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()
	r.pdf.SetFont("Helvetica", "", 9)
	for i, row := range rows {
		if r.pdf.GetY()+rowHeight > pageH-bottom {
			r.pdf.AddPage()
			r.header(cols)
			r.pdf.SetFont("Helvetica", "", 9)
		}
		fill := i%2 == 1
		r.pdf.SetFillColor(245, 245, 245)
		for j, c := range cols {
			r.pdf.CellFormat(c.width, rowHeight, r.fit(row[j], c.width-2), "1", 0, "L", fill, 0, "")
		}
		r.pdf.Ln(-1)
	}
}

func (r *renderer) header(cols []column) {
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.SetFillColor(52, 73, 94)
	r.pdf.SetTextColor(255, 255, 255)
	for _, c := range cols {
		r.pdf.CellFormat(c.width, headerHeight, c.title, "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) footnote(text string) {
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.CellFormat(0, rowHeight, text, "", 1, "R", false, 0, "")
}

// fit translates text to the PDF code page and cuts it to width.
func (r *renderer) fit(text string, width float64) string {
	s := r.tr(text)
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && r.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func (r *renderer) date(t time.Time) string {
	return t.In(r.loc).Format(reminder.DateLayout)
}

// FormatDuration renders d as "1h 05m".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d - h*time.Hour) / time.Minute
	return fmt.Sprintf("%dh %02dm", h, m)
}
