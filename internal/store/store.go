package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reillywatson/reviewstats/internal/phabricator"
)

//go:embed schema.sql
var schemaSQL string

// ErrLastModifiedNotAvailable is returned by LastModified on an empty store
var ErrLastModifiedNotAvailable = errors.New("last modification time not available")

// Store keeps downloaded revisions in SQLite so latency can be recomputed
// without going back to Conduit
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent directories
// as needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// UpsertRevisions inserts revisions, replacing any stored row with the same id
func (s *Store) UpsertRevisions(ctx context.Context, revs []phabricator.Revision) error {
	if len(revs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO revisions (id, phid, status, date_modified, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phid = excluded.phid,
			status = excluded.status,
			date_modified = excluded.date_modified,
			data = excluded.data`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rev := range revs {
		data, err := json.Marshal(rev)
		if err != nil {
			return fmt.Errorf("failed to encode revision D%d: %w", rev.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rev.ID, rev.PHID, rev.Fields.Status.Value, rev.Fields.DateModified, string(data)); err != nil {
			return fmt.Errorf("failed to store revision D%d: %w", rev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revisions: %w", err)
	}
	return nil
}

// Revisions returns stored revisions ordered by id. With no ids given it
// returns every stored revision; unknown ids are skipped.
func (s *Store) Revisions(ctx context.Context, ids ...int) ([]phabricator.Revision, error) {
	query := "SELECT data FROM revisions"
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += " WHERE id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revs []phabricator.Revision
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		var rev phabricator.Revision
		if err := json.Unmarshal([]byte(data), &rev); err != nil {
			return nil, fmt.Errorf("failed to decode revision: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read revisions: %w", err)
	}
	return revs, nil
}

// RevisionIDs returns the ids of every stored revision in ascending order
func (s *Store) RevisionIDs(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM revisions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query revision ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan revision id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastModified returns the newest modification time among stored revisions
func (s *Store) LastModified(ctx context.Context) (time.Time, error) {
	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(date_modified) FROM revisions").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last modification time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, ErrLastModifiedNotAvailable
	}
	return time.Unix(latest.Int64, 0).UTC(), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
