// Package storage implements the record store: students, query logs,
// unanswered queries, announcements and LINE bindings in SQLite.
//
// Writes go through a single-connection writer pool (SQLite allows one
// writer at a time); reads use a separate pool so chat traffic is not
// serialized behind admin writes. Every call is a short, independently
// committed statement or transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const memoryPath = ":memory:"

// DB wraps the SQLite reader and writer pools.
type DB struct {
	reader *sql.DB
	writer *sql.DB
	path   string
}

// New opens the database at dbPath, applies pragmas and creates the schema.
// ":memory:" opens a private in-memory database (tests).
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writer, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection serializes writes without SQLITE_BUSY storms.
	writer.SetMaxOpenConns(1)

	reader := writer
	if dbPath != memoryPath {
		// An in-memory database lives and dies with its only connection.
		writer.SetConnMaxLifetime(time.Hour)
		reader, err = sql.Open("sqlite", buildDSN(dbPath))
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("failed to open reader pool: %w", err)
		}
		reader.SetMaxOpenConns(10)
		reader.SetMaxIdleConns(5)
		reader.SetConnMaxLifetime(time.Hour)
	}

	db := &DB{reader: reader, writer: writer, path: dbPath}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// buildDSN encodes the pragmas as _pragma parameters so every pooled
// connection gets them, not only the first one.
func buildDSN(dbPath string) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(30000)")
	params.Add("_pragma", "foreign_keys(ON)")
	if dbPath != memoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}
	return "file:" + dbPath + "?" + params.Encode()
}

// Close closes both pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// Ping verifies both pools are reachable. Used by /readyz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.writer.PingContext(ctx); err != nil {
		return err
	}
	return db.reader.PingContext(ctx)
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// withTx runs fn inside a write transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// slowQueryThreshold mirrors config.SlowQueryThreshold; storage does not import config.
const slowQueryThreshold = 100 * time.Millisecond

// warnIfSlow logs repository calls that exceed slowQueryThreshold.
func warnIfSlow(ctx context.Context, operation string, start time.Time, attrs ...any) {
	duration := time.Since(start)
	if duration <= slowQueryThreshold {
		return
	}
	args := append([]any{"operation", operation, "duration_ms", duration.Milliseconds()}, attrs...)
	slog.WarnContext(ctx, "slow database operation", args...)
}
