package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BindLineUser links (or relinks) a LINE user to a student identifier.
func (db *DB) BindLineUser(ctx context.Context, lineUserID, uid string) error {
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO line_bindings (line_user_id, uid, created_at) VALUES (?, ?, ?)
		ON CONFLICT(line_user_id) DO UPDATE SET uid = excluded.uid, created_at = excluded.created_at`,
		lineUserID, strings.TrimSpace(uid), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("bind line user: %w", err)
	}
	return nil
}

// GetLineBinding returns the binding for a LINE user, or nil, nil when unbound.
func (db *DB) GetLineBinding(ctx context.Context, lineUserID string) (*LineBinding, error) {
	var (
		b  LineBinding
		ts int64
	)
	err := db.reader.QueryRowContext(ctx,
		`SELECT line_user_id, uid, created_at FROM line_bindings WHERE line_user_id = ?`, lineUserID,
	).Scan(&b.LineUserID, &b.UID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query line binding: %w", err)
	}
	b.CreatedAt = time.Unix(ts, 0)
	return &b, nil
}

// UnbindLineUser removes a binding. Returns false when none existed.
func (db *DB) UnbindLineUser(ctx context.Context, lineUserID string) (bool, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM line_bindings WHERE line_user_id = ?`, lineUserID)
	if err != nil {
		return false, fmt.Errorf("unbind line user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
