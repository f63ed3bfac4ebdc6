// Package store owns the local SQLite database sportdesk keeps its own
// state in (currently just settings such as the theme preference).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrInvalidMigration is returned by Migrate for a migration list with a
// non-positive or repeated version.
var ErrInvalidMigration = errors.New("invalid migration")

// Migration is one forward-only schema step of a module.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// Store is the local database. Each module migrates its own tables and
// tracks its schema version independently.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// pragmas run on every open. modernc.org/sqlite takes them as statements,
// not DSN params.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens (or creates) the database at path. Use ":memory:" in tests.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer; WAL keeps readers unblocked. A single connection also
	// keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("open sqlite %q: %s: %w", path, p, err)
		}
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			module     TEXT    NOT NULL,
			version    INTEGER NOT NULL,
			applied_at INTEGER NOT NULL DEFAULT (unixepoch()),
			PRIMARY KEY (module, version)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema_versions: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// DB returns the underlying *sql.DB for repository queries.
func (s *Store) DB() *sql.DB { return s.db }

// Path is the location the store was opened at.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Checkpoint folds the WAL back into the main database file so the file
// alone is a complete copy.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

// Version returns the highest applied migration of module, 0 if none.
func (s *Store) Version(ctx context.Context, module string) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_versions WHERE module = ?`, module,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("schema version of %s: %w", module, err)
	}
	return v, nil
}

// Migrate brings module up to its newest migration. Migrations at or
// below the recorded version are skipped; each pending one runs in its
// own transaction together with its version record.
func (s *Store) Migrate(ctx context.Context, module string, migrations []Migration) error {
	ordered, err := sortMigrations(module, migrations)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Version(ctx, module)
	if err != nil {
		return err
	}
	for _, m := range ordered {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, module, m); err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", module, m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, module string, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := m.Up(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_versions (module, version) VALUES (?, ?)`, module, m.Version,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func sortMigrations(module string, migrations []Migration) ([]Migration, error) {
	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	for i, m := range ordered {
		if m.Version < 1 {
			return nil, fmt.Errorf("%w: %s version %d", ErrInvalidMigration, module, m.Version)
		}
		if i > 0 && ordered[i-1].Version == m.Version {
			return nil, fmt.Errorf("%w: %s version %d repeated", ErrInvalidMigration, module, m.Version)
		}
	}
	return ordered, nil
}
