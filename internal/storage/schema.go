package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes. Safe to run on every start.
func InitSchema(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		name  string
		query string
	}{
		{"students", `
		CREATE TABLE IF NOT EXISTS students (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			nationality TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			hod_contact TEXT NOT NULL DEFAULT '',
			admin_contact TEXT NOT NULL DEFAULT '',
			fees_status TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_students_section ON students(section);
		`},
		{"query_logs", `
		CREATE TABLE IF NOT EXISTS query_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL,
			query TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			fallback_needed INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_query_logs_timestamp ON query_logs(timestamp);
		CREATE INDEX IF NOT EXISTS idx_query_logs_fallback ON query_logs(fallback_needed);
		`},
		{"unanswered_queries", `
		CREATE TABLE IF NOT EXISTS unanswered_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL,
			query TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'resolved')),
			answer TEXT NOT NULL DEFAULT '',
			resolved_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_unanswered_status ON unanswered_queries(status);
		`},
		{"announcements", `
		CREATE TABLE IF NOT EXISTS announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_announcements_active ON announcements(is_active);
		`},
		{"line_bindings", `
		CREATE TABLE IF NOT EXISTS line_bindings (
			line_user_id TEXT PRIMARY KEY,
			uid TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		`},
		{"web_pages", `
		CREATE TABLE IF NOT EXISTS web_pages (
			url TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
		`},
	}

	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", step.name, err)
		}
	}
	return nil
}
