package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const studentColumns = `uid, name, section, nationality, department, hod_contact, admin_contact, fees_status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*Student, error) {
	var s Student
	if err := row.Scan(&s.UID, &s.Name, &s.Section, &s.Nationality, &s.Department,
		&s.HODContact, &s.AdminContact, &s.FeesStatus); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudent retrieves a student by identifier. Returns nil, nil when absent.
// The identifier is matched after trimming surrounding whitespace.
func (db *DB) GetStudent(ctx context.Context, uid string) (*Student, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}

	start := time.Now()
	row := db.reader.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE uid = ?`, uid)
	student, err := scanStudent(row)
	warnIfSlow(ctx, "GetStudent", start, "uid", uid)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query student",
			"uid", uid,
			"error", err)
		return nil, fmt.Errorf("query student: %w", err)
	}
	return student, nil
}

// ListStudents returns students ordered by uid, optionally filtered by a
// case-insensitive substring of uid, name or section.
func (db *DB) ListStudents(ctx context.Context, search string) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		pattern := containsPattern(search)
		query += ` WHERE uid LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\' OR section LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY uid`

	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// UpsertStudent inserts or replaces a student record.
func (db *DB) UpsertStudent(ctx context.Context, s *Student) error {
	if s == nil || strings.TrimSpace(s.UID) == "" {
		return errors.New("student uid is required")
	}
	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			section = excluded.section,
			nationality = excluded.nationality,
			department = excluded.department,
			hod_contact = excluded.hod_contact,
			admin_contact = excluded.admin_contact,
			fees_status = excluded.fees_status
	`
	start := time.Now()
	_, err := db.writer.ExecContext(ctx, query, strings.TrimSpace(s.UID), s.Name, s.Section, s.Nationality,
		s.Department, s.HODContact, s.AdminContact, s.FeesStatus)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save student",
			"uid", s.UID,
			"error", err)
		return fmt.Errorf("save student: %w", err)
	}
	warnIfSlow(ctx, "UpsertStudent", start, "uid", s.UID)
	return nil
}

// DeleteStudent removes a student. Returns false when no row matched.
func (db *DB) DeleteStudent(ctx context.Context, uid string) (bool, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM students WHERE uid = ?`, strings.TrimSpace(uid))
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student rows affected: %w", err)
	}
	return n > 0, nil
}

// CountStudents returns the number of student records.
func (db *DB) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// SeedSampleStudents inserts SampleStudents when the table is empty.
// Returns the number of rows inserted (0 when data already exists).
func (db *DB) SeedSampleStudents(ctx context.Context) (int, error) {
	inserted := 0
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
			return fmt.Errorf("count students: %w", err)
		}
		if count > 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO students (`+studentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare seed: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, s := range SampleStudents {
			if _, err := stmt.ExecContext(ctx, s.UID, s.Name, s.Section, s.Nationality,
				s.Department, s.HODContact, s.AdminContact, s.FeesStatus); err != nil {
				return fmt.Errorf("seed student %s: %w", s.UID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern turns user input into a LIKE pattern matching it as a
// literal substring. The query must declare ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
