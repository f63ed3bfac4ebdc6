package testutil

import (
	"context"
	"testing"

	"github.com/HerbHall/sportdesk/internal/store"
)

// NewStore opens an in-memory store that is closed when the test ends.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
