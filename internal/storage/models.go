package storage

import "time"

// AnonymousUID is stored in uid columns for requests without a student identifier.
const AnonymousUID = "Guest"

// Unanswered query statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Student is one row of the students table.
type Student struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Section      string `json:"section"`
	Nationality  string `json:"nationality"`
	Department   string `json:"department"`
	HODContact   string `json:"hod_contact"`
	AdminContact string `json:"admin_contact"`
	FeesStatus   string `json:"fees_status"`
}

// QueryLog is one handled chat exchange.
type QueryLog struct {
	ID             int64     `json:"id"`
	UID            string    `json:"uid"`
	Query          string    `json:"query"`
	BotResponse    string    `json:"bot_response"`
	FallbackNeeded bool      `json:"fallback_needed"`
	Timestamp      time.Time `json:"timestamp"`
}

// UnansweredQuery is a question escalated for human review.
type UnansweredQuery struct {
	ID         int64      `json:"id"`
	UID        string     `json:"uid"`
	Query      string     `json:"query"`
	Timestamp  time.Time  `json:"timestamp"`
	Status     string     `json:"status"`
	Answer     string     `json:"answer,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// IsResolved reports whether an admin already approved an answer.
func (q *UnansweredQuery) IsResolved() bool {
	return q.Status == StatusResolved
}

// Announcement is a broadcast message prepended to chat replies while active.
type Announcement struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// LineBinding links a LINE user to a student identifier.
type LineBinding struct {
	LineUserID string    `json:"line_user_id"`
	UID        string    `json:"uid"`
	CreatedAt  time.Time `json:"created_at"`
}

// WebPage is the extracted text of an ingested college web page.
type WebPage struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// QueryLogFilter narrows ListQueryLogs.
type QueryLogFilter struct {
	Limit        int  // <= 0 means DefaultLogLimit
	FallbackOnly bool // Only exchanges that needed human fallback
}

// DefaultLogLimit caps query log listings when no limit is given.
const DefaultLogLimit = 200

// SampleStudents are seeded into an empty database so the bot is usable out of the box.
var SampleStudents = []Student{
	{
		UID: "24MCI10030", Name: "Yash Singh", Section: "24MAM-4", Nationality: "Domestic",
		Department: "Computer Applications", HODContact: "hod_ca@college.ac.in",
		AdminContact: "admin@college.ac.in", FeesStatus: "Paid",
	},
	{
		UID: "24MCI10050", Name: "Priya Sharma", Section: "24MAM-2", Nationality: "International",
		Department: "Computer Science", HODContact: "hod_cs@college.ac.in",
		AdminContact: "admin@college.ac.in", FeesStatus: "Pending",
	},
	{
		UID: "24MCI10020", Name: "Riya Sharma", Section: "24MAM-1", Nationality: "Domestic",
		Department: "Hotel management", HODContact: "hod_cs@college.ac.in",
		AdminContact: "admin@college.ac.in", FeesStatus: "Pending",
	},
}
