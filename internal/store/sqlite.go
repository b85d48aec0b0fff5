// Package store provides the SQLite-backed persistence for commits,
// bookmarks and the working-copy parent.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
)

const schema = `
CREATE TABLE IF NOT EXISTS commits (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS bookmarks (
	name      TEXT PRIMARY KEY,
	commit_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pointers (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const wcParentKey = "wc_parent"

// DB wraps the SQLite database connection.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the database at the given path and applies the schema.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Fail early if connection is bad
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Wait up to 5s on lock instead of failing immediately
	_, _ = conn.Exec("PRAGMA busy_timeout=5000")
	_, _ = conn.Exec("PRAGMA synchronous=FULL")

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// LoadCommits reads every commit.
func (db *DB) LoadCommits(ctx context.Context) ([]*graph.Commit, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, payload FROM commits ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*graph.Commit
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		var c graph.Commit
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, errors.NewIntegrityError("commit "+cas.Short(id), err)
		}
		if c.ID != id {
			return nil, errors.NewIntegrityError("commit "+cas.Short(id), fmt.Errorf("row key does not match payload id %s", cas.Short(c.ID)))
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// PutCommits inserts commits in one transaction (idempotent).
func (db *DB) PutCommits(ctx context.Context, commits []*graph.Commit) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range commits {
		payload, err := cas.CanonicalJSON(c)
		if err != nil {
			return fmt.Errorf("marshaling commit: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO commits (id, payload, created_at)
			VALUES (?, ?, ?)
		`, c.ID, string(payload), cas.NowMs())
		if err != nil {
			return fmt.Errorf("inserting commit: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteCommits removes commits in one transaction.
func (db *DB) DeleteCommits(ctx context.Context, ids []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM commits WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting commit: %w", err)
		}
	}
	return tx.Commit()
}

// Bookmarks returns the whole bookmark table.
func (db *DB) Bookmarks(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, commit_id FROM bookmarks`)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

// SetBookmark creates or moves a bookmark.
func (db *DB) SetBookmark(ctx context.Context, name, id string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO bookmarks (name, commit_id) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET commit_id = excluded.commit_id
	`, name, id)
	if err != nil {
		return fmt.Errorf("setting bookmark %s: %w", name, err)
	}
	return nil
}

// DeleteBookmark removes a bookmark.
func (db *DB) DeleteBookmark(ctx context.Context, name string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM bookmarks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting bookmark %s: %w", name, err)
	}
	return nil
}

// WorkingCopyParent returns the working-copy parent, empty when unset.
func (db *DB) WorkingCopyParent(ctx context.Context) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM pointers WHERE key = ?`, wcParentKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying working-copy parent: %w", err)
	}
	return value, nil
}

// SetWorkingCopyParent moves the working-copy parent.
func (db *DB) SetWorkingCopyParent(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO pointers (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, wcParentKey, id)
	if err != nil {
		return fmt.Errorf("setting working-copy parent: %w", err)
	}
	return nil
}
