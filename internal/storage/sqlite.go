package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	version    INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore is the default, durable Store backing. A single open
// connection serializes writers the same way the in-process server core
// serializes master mutations, so save never races itself.
type SQLiteStore struct {
	db *sqlx.DB
}

// Open creates or opens the sqlite database at path and ensures the
// documents table exists.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, name string) (Document, error) {
	var row struct {
		Name      string `db:"name"`
		Content   string `db:"content"`
		Version   uint64 `db:"version"`
		CreatedAt int64  `db:"created_at"`
		UpdatedAt int64  `db:"updated_at"`
	}

	err := s.db.GetContext(ctx, &row, `SELECT name, content, version, created_at, updated_at FROM documents WHERE name = ?`, name)
	if err == nil {
		return Document{
			Name:      row.Name,
			Content:   row.Content,
			Version:   row.Version,
			CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
			UpdatedAt: time.Unix(row.UpdatedAt, 0).UTC(),
		}, nil
	}
	if err != sql.ErrNoRows {
		return Document{}, fmt.Errorf("storage: load %s: %w", name, err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (name, content, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`,
		name, DefaultContent, now.Unix(), now.Unix())
	if err != nil {
		return Document{}, fmt.Errorf("storage: seed %s: %w", name, err)
	}

	return Document{
		Name:      name,
		Content:   DefaultContent,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Save implements Store. It runs inside a transaction so the version bump
// and content write are never visible separately.
func (s *SQLiteStore) Save(ctx context.Context, name, content string) (uint64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage: begin save %s: %w", name, err)
	}
	defer tx.Rollback()

	var current uint64
	err = tx.GetContext(ctx, &current, `SELECT version FROM documents WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		current = 0
	} else if err != nil {
		return 0, fmt.Errorf("storage: read version %s: %w", name, err)
	}

	next := current + 1
	now := time.Now().UTC().Unix()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, content, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, version = excluded.version, updated_at = excluded.updated_at
	`, name, content, next, now, now)
	if err != nil {
		return 0, fmt.Errorf("storage: save %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: commit save %s: %w", name, err)
	}
	return next, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return nil
}
