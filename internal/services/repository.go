// Package services provides repository interfaces and SQLite
// implementations for the state sportdesk keeps locally.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/HerbHall/sportdesk/internal/store"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound = errors.New("not found")
)

// Migrator is the slice of *store.Store repositories need.
type Migrator interface {
	Migrate(ctx context.Context, module string, migrations []store.Migration) error
	DB() *sql.DB
}

// Compile-time interface guard.
var _ Migrator = (*store.Store)(nil)
