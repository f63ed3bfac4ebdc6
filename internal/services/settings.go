package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/sportdesk/internal/clock"
	"github.com/HerbHall/sportdesk/internal/store"
)

// Setting is a locally persisted key/value pair, e.g. the display theme
// preference.
type Setting struct {
	Key       string    `json:"key" yaml:"key"`
	Value     string    `json:"value" yaml:"value"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SettingsRepository reads and writes local settings.
type SettingsRepository interface {
	// Get returns the setting stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (Setting, error)

	// List returns the settings whose key starts with prefix, ordered by
	// key. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]Setting, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. It returns ErrNotFound when nothing was stored.
	Delete(ctx context.Context, key string) error
}

// Compile-time interface guard.
var _ SettingsRepository = (*SQLiteSettings)(nil)

// SQLiteSettings keeps settings in the local store. Timestamps are unix
// milliseconds taken from the injected clock.
type SQLiteSettings struct {
	db    *sql.DB
	clock clock.Clock
}

// NewSettingsRepository migrates the settings table and returns a
// repository over it. A nil clk uses wall time.
func NewSettingsRepository(ctx context.Context, m Migrator, clk clock.Clock) (*SQLiteSettings, error) {
	if err := m.Migrate(ctx, "settings", settingsMigrations); err != nil {
		return nil, fmt.Errorf("settings schema: %w", err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &SQLiteSettings{db: m.DB(), clock: clk}, nil
}

func (r *SQLiteSettings) Get(ctx context.Context, key string) (Setting, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_ms FROM settings WHERE key = ?`, key)
	s, err := scanSetting(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, ErrNotFound
	}
	if err != nil {
		return Setting{}, fmt.Errorf("setting %q: %w", key, err)
	}
	return s, nil
}

func (r *SQLiteSettings) List(ctx context.Context, prefix string) ([]Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, updated_ms FROM settings WHERE ? = '' OR instr(key, ?) = 1 ORDER BY key`,
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := []Setting{}
	for rows.Next() {
		s, err := scanSetting(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteSettings) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_ms = excluded.updated_ms`,
		key, value, r.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store setting %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteSettings) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSetting(scan func(dest ...any) error) (Setting, error) {
	var (
		s  Setting
		ms int64
	)
	if err := scan(&s.Key, &s.Value, &ms); err != nil {
		return Setting{}, err
	}
	s.UpdatedAt = time.UnixMilli(ms).UTC()
	return s, nil
}

var settingsMigrations = []store.Migration{
	{
		Version:     1,
		Description: "settings key/value table",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE settings (
					key        TEXT PRIMARY KEY,
					value      TEXT    NOT NULL,
					updated_ms INTEGER NOT NULL
				)`)
			return err
		},
	},
}
