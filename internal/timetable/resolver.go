package timetable

import (
	"context"
	"fmt"
	"strings"

	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/sliceutil"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// PDFSearchK is how many timetable PDF chunks a best-effort answer draws on.
const PDFSearchK = 6

// Reply texts. Every timetable reply, including the empty ones, ends with
// the source it was looked up in.
const (
	UnknownUIDMessage   = "❌ UID not found in student DB."
	StructuredSource    = "(Source: Structured Timetable)"
	PDFSource           = "(Source: Timetable PDF)"
	NoPDFIndexedMessage = "⚠️ Timetable not available (no PDF indexed).\n\n" + PDFSource
)

// StudentLookup finds a student by uid, returning nil when absent.
type StudentLookup interface {
	GetStudent(ctx context.Context, uid string) (*storage.Student, error)
}

// IndexSource returns the current timetable PDF index, or nil if none is built.
type IndexSource func() rag.Index

// Resolver formats a student's timetable.
type Resolver struct {
	students StudentLookup
	store    *Store
	index    IndexSource
}

// NewResolver creates a resolver. index may be nil when no PDF fallback exists.
func NewResolver(students StudentLookup, store *Store, index IndexSource) *Resolver {
	return &Resolver{students: students, store: store, index: index}
}

// Resolve returns the timetable of uid for day, or for the whole week when
// day is empty. Errors are returned only for store or index failures.
func (r *Resolver) Resolve(ctx context.Context, uid, day string) (string, error) {
	student, err := r.students.GetStudent(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return UnknownUIDMessage, nil
	}

	if schedule, ok := r.store.Schedule(student.Section); ok {
		if day != "" {
			return formatDay(student, schedule, DayKey(day)), nil
		}
		return formatWeek(student, schedule), nil
	}
	return r.fromPDF(ctx, student, day)
}

func formatPeriod(b *strings.Builder, indent string, p Period) {
	fmt.Fprintf(b, "%s- %s | %s | %s | %s\n", indent, p.Time, p.Subject, p.Faculty, p.Room)
}

func formatDay(s *storage.Student, schedule Schedule, day string) string {
	periods, ok := schedule[day]
	if !ok || len(periods) == 0 {
		return fmt.Sprintf("⚠️ No entries for %s in structured timetable.\n\n%s", day, StructuredSource)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s — Timetable for %s (%s):\n", s.Name, s.Section, day)
	for _, p := range periods {
		formatPeriod(&b, "", p)
	}
	b.WriteString("\n" + StructuredSource)
	return b.String()
}

func formatWeek(s *storage.Student, schedule Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s — Timetable for %s (Mon–Fri):\n\n", s.Name, s.Section)
	for _, day := range Weekdays {
		periods, ok := schedule[day]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "▶️ %s:\n", day)
		for _, p := range periods {
			formatPeriod(&b, "   ", p)
		}
		b.WriteString("\n")
	}
	b.WriteString(StructuredSource)
	return b.String()
}

func (r *Resolver) fromPDF(ctx context.Context, s *storage.Student, day string) (string, error) {
	var index rag.Index
	if r.index != nil {
		index = r.index()
	}
	if index == nil {
		return NoPDFIndexedMessage, nil
	}

	query := s.Section
	if day != "" {
		query = s.Section + " " + day
	}
	results, err := index.Search(ctx, query, PDFSearchK)
	if err != nil {
		return "", fmt.Errorf("search timetable index: %w", err)
	}
	if len(results) == 0 {
		return fmt.Sprintf("⚠️ No timetable chunks found for section %s.\n\n%s", s.Section, PDFSource), nil
	}

	results = sliceutil.UniqueBy(results, func(p rag.Passage) string {
		return strings.TrimSpace(p.Content)
	})
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s — Timetable for %s (best-effort):\n", s.Name, s.Section)
	for _, p := range results {
		fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(p.Content))
	}
	b.WriteString("\n" + PDFSource)
	return b.String(), nil
}
