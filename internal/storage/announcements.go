package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostAnnouncement deactivates every previous announcement and inserts the
// new one as active, in one transaction, so at most one row is ever active.
func (db *DB) PostAnnouncement(ctx context.Context, message string) (*Announcement, error) {
	a := &Announcement{Message: message, IsActive: true, CreatedAt: time.Now()}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE announcements SET is_active = 0 WHERE is_active = 1`); err != nil {
			return fmt.Errorf("deactivate announcements: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO announcements (message, is_active, created_at) VALUES (?, 1, ?)`,
			a.Message, a.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert announcement: %w", err)
		}
		a.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ActiveAnnouncement returns the active announcement, or nil, nil when none.
func (db *DB) ActiveAnnouncement(ctx context.Context) (*Announcement, error) {
	var (
		a  Announcement
		ts int64
	)
	err := db.reader.QueryRowContext(ctx,
		`SELECT id, message, created_at FROM announcements WHERE is_active = 1 ORDER BY id DESC LIMIT 1`,
	).Scan(&a.ID, &a.Message, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active announcement: %w", err)
	}
	a.IsActive = true
	a.CreatedAt = time.Unix(ts, 0)
	return &a, nil
}

// ClearAnnouncements deactivates all announcements. Idempotent; returns rows changed.
func (db *DB) ClearAnnouncements(ctx context.Context) (int64, error) {
	res, err := db.writer.ExecContext(ctx, `UPDATE announcements SET is_active = 0 WHERE is_active = 1`)
	if err != nil {
		return 0, fmt.Errorf("clear announcements: %w", err)
	}
	return res.RowsAffected()
}

// CountActiveAnnouncements is used by tests and health reporting.
func (db *DB) CountActiveAnnouncements(ctx context.Context) (int, error) {
	var count int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM announcements WHERE is_active = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active announcements: %w", err)
	}
	return count, nil
}
