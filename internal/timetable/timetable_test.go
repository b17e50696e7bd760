package timetable

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/rag"
	"github.com/campussathi/campussathi-go/internal/storage"
)

type fakeStudents map[string]*storage.Student

func (f fakeStudents) GetStudent(_ context.Context, uid string) (*storage.Student, error) {
	return f[uid], nil
}

type fakeIndex struct {
	results []rag.Passage
	err     error
	query   string
	k       int
}

func (f *fakeIndex) Name() string                                 { return "timetable" }
func (f *fakeIndex) Insert(context.Context, []rag.Document) error { return nil }
func (f *fakeIndex) Count() int                                   { return len(f.results) }
func (f *fakeIndex) Search(_ context.Context, q string, k int) ([]rag.Passage, error) {
	f.query, f.k = q, k
	return f.results, f.err
}

var students = fakeStudents{
	"S1":         {UID: "S1", Name: "Asha", Section: "A"},
	"24MCI10030": {UID: "24MCI10030", Name: "Yash Singh", Section: "24MAM-4"},
}

func storeWith(t *testing.T, tt Timetable) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "timetable_structured.json"))
	require.NoError(t, s.Replace(tt))
	return s
}

func TestDetectDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query string
		want  string
	}{
		{"show my timetable for Monday", "Monday"},
		{"WEDNESDAY classes?", "Wednesday"},
		{"friday or tuesday?", "Tuesday"},
		{"timetable please", ""},
		{"saturday schedule", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectDay(tt.query))
		})
	}
}

func TestDayKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Monday", DayKey("monday"))
	assert.Equal(t, "Monday", DayKey(" MONDAY "))
	assert.Equal(t, "Saturday", DayKey("Saturday"))
}

func TestResolve_StructuredScenario(t *testing.T) {
	t.Parallel()
	store := storeWith(t, Timetable{"A": {"Monday": {{Time: "9am", Subject: "Math"}}}})
	r := NewResolver(students, store, nil)

	got, err := r.Resolve(context.Background(), "S1", "Monday")
	require.NoError(t, err)
	assert.Contains(t, got, "Math")
	assert.Contains(t, got, "Structured Timetable")
	assert.Equal(t, "📅 Asha — Timetable for A (Monday):\n- 9am | Math |  | \n\n(Source: Structured Timetable)", got)

	got, err = r.Resolve(context.Background(), "S1", "Tuesday")
	require.NoError(t, err)
	assert.Equal(t, "⚠️ No entries for Tuesday in structured timetable.\n\n(Source: Structured Timetable)", got)
}

func TestResolve_LowercaseDay(t *testing.T) {
	t.Parallel()
	store := storeWith(t, Timetable{"A": {"monday": {{Time: "9am", Subject: "Math", Faculty: "Dr. Rao", Room: "101"}}}})
	r := NewResolver(students, store, nil)

	got, err := r.Resolve(context.Background(), "S1", "monday")
	require.NoError(t, err)
	assert.Equal(t, "📅 Asha — Timetable for A (Monday):\n- 9am | Math | Dr. Rao | 101\n\n(Source: Structured Timetable)", got)
}

func TestResolve_WholeWeek(t *testing.T) {
	t.Parallel()
	store := storeWith(t, Timetable{"A": {
		"Wednesday": {{Time: "11am", Subject: "DBMS", Faculty: "Dr. Iyer", Room: "204"}},
		"Monday": {
			{Time: "9am", Subject: "Math", Faculty: "Dr. Rao", Room: "101"},
			{Time: "10am", Subject: "Go", Faculty: "Ms. Das", Room: "Lab 2"},
		},
		"Saturday": {{Time: "9am", Subject: "Sports"}},
	}})
	r := NewResolver(students, store, nil)

	got, err := r.Resolve(context.Background(), "S1", "")
	require.NoError(t, err)
	want := "📅 Asha — Timetable for A (Mon–Fri):\n\n" +
		"▶️ Monday:\n" +
		"   - 9am | Math | Dr. Rao | 101\n" +
		"   - 10am | Go | Ms. Das | Lab 2\n" +
		"\n" +
		"▶️ Wednesday:\n" +
		"   - 11am | DBMS | Dr. Iyer | 204\n" +
		"\n" +
		"(Source: Structured Timetable)"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Sports")
}

func TestResolve_UnknownUID(t *testing.T) {
	t.Parallel()
	r := NewResolver(students, NewStore(filepath.Join(t.TempDir(), "none.json")), nil)
	got, err := r.Resolve(context.Background(), "NOPE", "Monday")
	require.NoError(t, err)
	assert.Equal(t, UnknownUIDMessage, got)
}

func TestResolve_PDFFallback(t *testing.T) {
	t.Parallel()
	empty := NewStore(filepath.Join(t.TempDir(), "none.json"))
	ctx := context.Background()

	t.Run("no index", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(students, empty, func() rag.Index { return nil })
		got, err := r.Resolve(ctx, "24MCI10030", "")
		require.NoError(t, err)
		assert.Equal(t, NoPDFIndexedMessage, got)
		assert.Contains(t, got, PDFSource)
	})

	t.Run("no chunks", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{}
		r := NewResolver(students, empty, func() rag.Index { return idx })
		got, err := r.Resolve(ctx, "24MCI10030", "")
		require.NoError(t, err)
		assert.Equal(t, "⚠️ No timetable chunks found for section 24MAM-4.\n\n(Source: Timetable PDF)", got)
		assert.Equal(t, "24MAM-4", idx.query)
		assert.Equal(t, PDFSearchK, idx.k)
	})

	t.Run("deduplicated excerpts", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{results: []rag.Passage{
			{Content: "24MAM-4 Monday 9:00 Java Lab"},
			{Content: "  24MAM-4 Monday 9:00 Java Lab\n"},
			{Content: "24MAM-4 Monday 10:00 Cloud"},
		}}
		r := NewResolver(students, empty, func() rag.Index { return idx })
		got, err := r.Resolve(ctx, "24MCI10030", "Monday")
		require.NoError(t, err)
		assert.Equal(t, "24MAM-4 Monday", idx.query)
		assert.Equal(t, "📅 Yash Singh — Timetable for 24MAM-4 (best-effort):\n"+
			"- 24MAM-4 Monday 9:00 Java Lab\n"+
			"- 24MAM-4 Monday 10:00 Cloud\n"+
			"\n(Source: Timetable PDF)", got)
	})

	t.Run("search error", func(t *testing.T) {
		t.Parallel()
		idx := &fakeIndex{err: errors.New("embedding service down")}
		r := NewResolver(students, empty, func() rag.Index { return idx })
		_, err := r.Resolve(ctx, "24MCI10030", "")
		require.Error(t, err)
	})

	t.Run("keyword index", func(t *testing.T) {
		t.Parallel()
		idx := rag.NewKeywordIndex(rag.TimetableCollection)
		require.NoError(t, idx.Insert(ctx, []rag.Document{
			{ID: "tt-0", Content: "Section 24MAM-4 Monday Java Lab"},
			{ID: "tt-1", Content: "Section MBA-1 Friday Statistics"},
			{ID: "tt-2", Content: "Section BCA-2 Tuesday Physics"},
			{ID: "tt-3", Content: "Section BBA-3 Thursday Economics"},
		}))
		r := NewResolver(students, empty, func() rag.Index { return idx })
		got, err := r.Resolve(ctx, "24MCI10030", "")
		require.NoError(t, err)
		assert.Contains(t, got, "Java Lab")
		assert.NotContains(t, got, "Statistics")
		assert.Contains(t, got, "(Source: Timetable PDF)")
	})
}

func TestStore_Reload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		t.Parallel()
		s := NewStore(filepath.Join(dir, "missing.json"))
		require.NoError(t, s.Reload())
		assert.Empty(t, s.Snapshot())
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "tt.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"A":{"MONDAY":[{"time":"9am","subject":"Math"}]}}`), 0o600))
		s := NewStore(path)
		require.NoError(t, s.Reload())
		schedule, ok := s.Schedule("A")
		require.True(t, ok)
		assert.Equal(t, []Period{{Time: "9am", Subject: "Math"}}, schedule["Monday"])
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "tt.yaml")
		body := "B:\n  Friday:\n    - time: 2pm\n      subject: Physics\n      faculty: Dr. Sen\n      room: \"305\"\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		s := NewStore(path)
		require.NoError(t, s.Reload())
		assert.Equal(t, []string{"B"}, s.Snapshot().Sections())
		schedule, _ := s.Schedule("B")
		assert.Equal(t, []Period{{Time: "2pm", Subject: "Physics", Faculty: "Dr. Sen", Room: "305"}}, schedule["Friday"])
	})

	t.Run("invalid keeps previous", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "broken.json")
		s := NewStore(path)
		require.NoError(t, s.Replace(Timetable{"A": {"Monday": {{Subject: "Math"}}}}))
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		err := s.Reload()
		assert.True(t, apperrors.IsInvalidInput(err))
		_, ok := s.Schedule("A")
		assert.True(t, ok)
	})
}

func TestStore_ReplacePersists(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "timetable_structured.json")
	s := NewStore(path)
	require.NoError(t, s.Replace(Timetable{"C": {"tuesday": {{Time: "9am", Subject: "Art"}}}}))

	reopened := NewStore(path)
	require.NoError(t, reopened.Reload())
	schedule, ok := reopened.Schedule("C")
	require.True(t, ok)
	assert.Equal(t, "Art", schedule["Tuesday"][0].Subject)
}

func TestParse(t *testing.T) {
	t.Parallel()
	tt, err := Parse([]byte(`{}`), "upload.json")
	require.NoError(t, err)
	assert.Empty(t, tt)

	_, err = Parse([]byte("A: [unclosed"), "upload.yml")
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = Parse([]byte(`{"A": "not a schedule"}`), "upload.json")
	assert.True(t, apperrors.IsInvalidInput(err))
}
