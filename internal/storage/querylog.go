package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// normalizeUID maps an empty identifier to the anonymous sentinel.
func normalizeUID(uid string) string {
	if uid = strings.TrimSpace(uid); uid == "" {
		return AnonymousUID
	}
	return uid
}

// AppendQueryLog records one handled exchange. ID and Timestamp are filled in.
func (db *DB) AppendQueryLog(ctx context.Context, entry *QueryLog) error {
	entry.UID = normalizeUID(entry.UID)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	start := time.Now()
	res, err := db.writer.ExecContext(ctx,
		`INSERT INTO query_logs (uid, query, bot_response, fallback_needed, timestamp) VALUES (?, ?, ?, ?, ?)`,
		entry.UID, entry.Query, entry.BotResponse, boolToInt(entry.FallbackNeeded), entry.Timestamp.Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to append query log",
			"fallback_needed", entry.FallbackNeeded,
			"error", err)
		return fmt.Errorf("append query log: %w", err)
	}
	warnIfSlow(ctx, "AppendQueryLog", start)

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListQueryLogs returns the newest exchanges first.
func (db *DB) ListQueryLogs(ctx context.Context, filter QueryLogFilter) ([]QueryLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	query := `SELECT id, uid, query, bot_response, fallback_needed, timestamp FROM query_logs`
	if filter.FallbackOnly {
		query += ` WHERE fallback_needed = 1`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := db.reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list query logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []QueryLog
	for rows.Next() {
		var (
			entry    QueryLog
			fallback int
			ts       int64
		)
		if err := rows.Scan(&entry.ID, &entry.UID, &entry.Query, &entry.BotResponse, &fallback, &ts); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		entry.FallbackNeeded = fallback != 0
		entry.Timestamp = time.Unix(ts, 0)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// PurgeQueryLogsBefore deletes exchanges older than cutoff (retention job).
func (db *DB) PurgeQueryLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM query_logs WHERE timestamp < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge query logs: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
