// Package facts answers personal questions ("what is my fee status?") from
// a student's record using an ordered keyword rule table.
package facts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/campussathi/campussathi-go/internal/storage"
)

// SourceTag marks answers that come from the student database.
const SourceTag = "(Source: Student DB)"

// NotFoundMessage is returned when the uid has no student record.
const NotFoundMessage = "❌ UID not found in student database."

// queryWords must appear in the query (alongside a category keyword) for a
// rule to fire, so "fee structure for MBA" is left to the knowledge base.
var queryWords = []string{"what", "what's", "show", "tell", "my", "is my", "do i have"}

// Rule maps a keyword set to a deterministic answer.
type Rule struct {
	Name     string
	Keywords []string
	Format   func(s *storage.Student) string
}

// Rules is evaluated in order; the first match wins.
var Rules = []Rule{
	{
		Name:     "fees",
		Keywords: []string{"fee", "fees", "payment", "due"},
		Format: func(s *storage.Student) string {
			return fmt.Sprintf("💰 %s, your fee status is: %s. %s", s.Name, s.FeesStatus, SourceTag)
		},
	},
	{
		Name:     "hod",
		Keywords: []string{"hod", "head of department"},
		Format: func(s *storage.Student) string {
			return fmt.Sprintf("👨‍🏫 HOD Contact (%s): %s. %s", s.Department, s.HODContact, SourceTag)
		},
	},
	{
		Name:     "admin",
		Keywords: []string{"admin", "admission"},
		Format: func(s *storage.Student) string {
			return fmt.Sprintf("🏢 Admin Dept Contact: %s. %s", s.AdminContact, SourceTag)
		},
	},
	{
		Name:     "nationality",
		Keywords: []string{"nationality", "international", "domestic"},
		Format: func(s *storage.Student) string {
			return fmt.Sprintf("🌎 %s is registered as: %s. %s", s.Name, s.Nationality, SourceTag)
		},
	},
	{
		Name:     "section",
		Keywords: []string{"section", "class"},
		Format: func(s *storage.Student) string {
			return fmt.Sprintf("📌 %s, your section is: %s. %s", s.Name, s.Section, SourceTag)
		},
	},
}

var folder = cases.Fold()

// normalize case-folds the query so matching is case-insensitive beyond ASCII.
func normalize(query string) string {
	return folder.String(query)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Match returns the first rule the query triggers, or nil.
func Match(query string) *Rule {
	q := normalize(query)
	if !containsAny(q, queryWords) {
		return nil
	}
	for i := range Rules {
		if containsAny(q, Rules[i].Keywords) {
			return &Rules[i]
		}
	}
	return nil
}

// Resolve answers query from the student's record.
// Returns ok=false when no category matches; the caller then treats the
// query as a general question. student must not be nil.
func Resolve(student *storage.Student, query string) (string, bool) {
	rule := Match(query)
	if rule == nil {
		return "", false
	}
	return rule.Format(student), true
}

// StudentLookup is the subset of the record store the resolver needs.
type StudentLookup interface {
	GetStudent(ctx context.Context, uid string) (*storage.Student, error)
}

// Result is the outcome of ResolveForUID.
type Result struct {
	Text    string
	Found   bool // a student record exists
	Matched bool // a category rule matched
}

// ResolveForUID looks the student up and resolves the query.
// An unknown uid yields NotFoundMessage with Found=false; lookup errors are returned.
func ResolveForUID(ctx context.Context, repo StudentLookup, uid, query string) (Result, error) {
	student, err := repo.GetStudent(ctx, uid)
	if err != nil {
		return Result{}, fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return Result{Text: NotFoundMessage}, nil
	}
	text, ok := Resolve(student, query)
	return Result{Text: text, Found: true, Matched: ok}, nil
}
