// Package db keeps an append-only audit trail of schedule changes in sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/events"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const defaultListLimit = 100

// DB wraps sql.DB for the audit trail.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Change is one recorded schedule write.
type Change struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Target    string    `json:"target"`
	IsClosed  bool      `json:"is_closed"`
	OpenTime  string    `json:"open_time,omitempty"`
	CloseTime string    `json:"close_time,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "audit").Logger()
	}
	return &DB{DB: db, logger: l}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedule_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT 0,
			open_time TEXT,
			close_time TEXT,
			request_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_changes_target ON schedule_changes(kind, target)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// RecordChange appends a schedule change event.
func (db *DB) RecordChange(ctx context.Context, e events.Event) error {
	var openTime, closeTime sql.NullString
	open, close, ok := e.Hours.Bounds()
	if ok {
		openTime = sql.NullString{String: open.String(), Valid: true}
		closeTime = sql.NullString{String: close.String(), Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO schedule_changes (kind, target, is_closed, open_time, close_time, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Target, !ok, openTime, closeTime, e.RequestID, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record change %s %s: %w", e.Kind, e.Target, err)
	}
	return nil
}

// ListChanges returns the most recent changes first.
func (db *DB) ListChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, target, is_closed, open_time, close_time, request_id, created_at
		FROM schedule_changes
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var openTime, closeTime, requestID sql.NullString
		if err := rows.Scan(&c.ID, &c.Kind, &c.Target, &c.IsClosed, &openTime, &closeTime, &requestID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.OpenTime = openTime.String
		c.CloseTime = closeTime.String
		c.RequestID = requestID.String
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Subscribe records every schedule change published on bus.
func (db *DB) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.ScheduleChanged, func(e events.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.RecordChange(ctx, e); err != nil {
			db.logger.Error().Err(err).Str("request_id", e.RequestID).Msg("failed to record schedule change")
			return err
		}
		return nil
	})
}
