package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// InsertUnanswered adds a pending review item and returns its id.
func (db *DB) InsertUnanswered(ctx context.Context, uid, query string) (int64, error) {
	start := time.Now()
	res, err := db.writer.ExecContext(ctx,
		`INSERT INTO unanswered_queries (uid, query, timestamp, status) VALUES (?, ?, ?, ?)`,
		normalizeUID(uid), query, time.Now().Unix(), StatusPending)
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert unanswered query", "error", err)
		return 0, fmt.Errorf("insert unanswered query: %w", err)
	}
	warnIfSlow(ctx, "InsertUnanswered", start)
	return res.LastInsertId()
}

func scanUnanswered(row rowScanner) (*UnansweredQuery, error) {
	var (
		q          UnansweredQuery
		ts         int64
		resolvedAt sql.NullInt64
	)
	if err := row.Scan(&q.ID, &q.UID, &q.Query, &ts, &q.Status, &q.Answer, &resolvedAt); err != nil {
		return nil, err
	}
	q.Timestamp = time.Unix(ts, 0)
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		q.ResolvedAt = &t
	}
	return &q, nil
}

// GetUnanswered retrieves a review item by id. Returns nil, nil when absent.
func (db *DB) GetUnanswered(ctx context.Context, id int64) (*UnansweredQuery, error) {
	row := db.reader.QueryRowContext(ctx,
		`SELECT id, uid, query, timestamp, status, answer, resolved_at FROM unanswered_queries WHERE id = ?`, id)
	q, err := scanUnanswered(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query unanswered %d: %w", id, err)
	}
	return q, nil
}

// ListUnanswered returns review items with the given status (all when empty),
// oldest first so the review table reads as a queue.
func (db *DB) ListUnanswered(ctx context.Context, status string) ([]UnansweredQuery, error) {
	query := `SELECT id, uid, query, timestamp, status, answer, resolved_at FROM unanswered_queries`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unanswered: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []UnansweredQuery
	for rows.Next() {
		q, err := scanUnanswered(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unanswered: %w", err)
		}
		items = append(items, *q)
	}
	return items, rows.Err()
}

// CountPendingUnanswered returns the review queue depth.
func (db *DB) CountPendingUnanswered(ctx context.Context) (int, error) {
	var count int
	err := db.reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM unanswered_queries WHERE status = ?`, StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending unanswered: %w", err)
	}
	return count, nil
}

// MarkUnansweredResolved moves a pending item to resolved and records the
// approved answer. Returns false when the item does not exist or was already
// resolved; the status never moves backward and the transition happens at most once.
func (db *DB) MarkUnansweredResolved(ctx context.Context, id int64, answer string) (bool, error) {
	res, err := db.writer.ExecContext(ctx,
		`UPDATE unanswered_queries SET status = ?, answer = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		StatusResolved, answer, time.Now().Unix(), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve unanswered %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve unanswered %d rows affected: %w", id, err)
	}
	return n == 1, nil
}

// ListApprovedAnswers returns resolved items that carry an answer, oldest first.
// Index rebuilds replay them so curated answers survive a refresh.
func (db *DB) ListApprovedAnswers(ctx context.Context) ([]UnansweredQuery, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT id, uid, query, timestamp, status, answer, resolved_at FROM unanswered_queries
		WHERE status = ? AND answer != '' ORDER BY id`, StatusResolved)
	if err != nil {
		return nil, fmt.Errorf("list approved answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []UnansweredQuery
	for rows.Next() {
		q, err := scanUnanswered(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approved answer: %w", err)
		}
		items = append(items, *q)
	}
	return items, rows.Err()
}
