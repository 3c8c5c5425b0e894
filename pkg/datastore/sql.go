package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/gochat/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// SQLite is a BlockLog backed by a SQLite file.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("datastore: %s: %w", strings.TrimPrefix(p, "PRAGMA "), err)
		}
	}

	s := &SQLite{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS blocks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		address     TEXT    NOT NULL CHECK(length(address) > 0),
		target_name TEXT    NOT NULL,
		blocked_by  TEXT    NOT NULL,
		created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_address ON blocks(address);
	`
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// RecordBlock inserts rec and fills in its ID and CreatedAt.
func (s *SQLite) RecordBlock(ctx context.Context, rec *model.BlockRecord) error {
	if rec.Address == "" {
		return fmt.Errorf("datastore: record block: empty address")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO blocks (address, target_name, blocked_by, created_at) VALUES (?, ?, ?, ?)",
		rec.Address, rec.TargetName, rec.BlockedBy, rec.CreatedAt.UTC().Format(dbTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("datastore: record block: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("datastore: record block: %w", err)
	}
	rec.ID = id
	return nil
}

// ListBlocks returns every block record ordered by ID.
func (s *SQLite) ListBlocks(ctx context.Context) ([]model.BlockRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, address, target_name, blocked_by, created_at FROM blocks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("datastore: list blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.BlockRecord
	for rows.Next() {
		var (
			rec       model.BlockRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.TargetName, &rec.BlockedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("datastore: scan block: %w", err)
		}
		rec.CreatedAt, err = time.Parse(dbTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("datastore: parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
