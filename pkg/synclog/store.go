// Package synclog keeps a local record of sync runs so `jib log` can
// answer "what did jib do to this project lately". The store is a
// single-table SQLite database under the user's data directory.
package synclog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Actions recorded per sync run.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// DefaultLimit bounds Recent queries when the caller does not set one.
const DefaultLimit = 20

// Entry is one recorded sync run.
type Entry struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	ChangeID  string    `json:"change_id"`
	Bookmark  string    `json:"bookmark"`
	Base      string    `json:"base"`
	Action    string    `json:"action"`
	PRNumber  int       `json:"pr_number"`
	PRURL     string    `json:"pr_url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryOptions filters Recent results.
type QueryOptions struct {
	Project string // Normalized project path; empty matches all
	Limit   int    // Max entries; DefaultLimit when <= 0
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	change_id TEXT NOT NULL,
	bookmark TEXT NOT NULL,
	base TEXT NOT NULL,
	action TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	pr_url TEXT NOT NULL,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_created_at ON sync_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_sync_runs_project ON sync_runs(project);
`

// Store is a sync-run history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create history directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize history schema")
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one sync run. A zero ID gets a fresh UUID and a zero
// CreatedAt gets the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, project, change_id, bookmark, base, action, pr_number, pr_url, title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Project, e.ChangeID, e.Bookmark, e.Base, e.Action,
		e.PRNumber, e.PRURL, e.Title, e.CreatedAt.Unix())
	if err != nil {
		return errors.Wrap(err, "failed to record sync run")
	}
	return nil
}

// Recent returns the newest sync runs, newest first.
func (s *Store) Recent(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	query, args := buildRecentQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sync runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Project, &e.ChangeID, &e.Bookmark, &e.Base,
			&e.Action, &e.PRNumber, &e.PRURL, &e.Title, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan sync run")
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read sync runs")
	}

	return entries, nil
}

// buildRecentQuery assembles the Recent SELECT with its arguments.
func buildRecentQuery(opts QueryOptions) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT id, project, change_id, bookmark, base, action, pr_number, pr_url, title, created_at FROM sync_runs`)

	if opts.Project != "" {
		sb.WriteString(" WHERE project = ?")
		args = append(args, opts.Project)
	}

	// rowid breaks ties for runs recorded within the same second.
	sb.WriteString(" ORDER BY created_at DESC, rowid DESC LIMIT ?")

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	return sb.String(), args
}
