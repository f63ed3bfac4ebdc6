package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/sportdesk/internal/search"
	"github.com/HerbHall/sportdesk/pkg/models"
)

type stubSearcher struct {
	mu  sync.Mutex
	got []models.SearchRequest
}

func (s *stubSearcher) Search(_ context.Context, _ models.EntityKind, req models.SearchRequest) (*models.SearchResultPage, error) {
	s.mu.Lock()
	s.got = append(s.got, req)
	s.mu.Unlock()
	page := models.NewResultPage([]models.Entity{{ID: "u1"}}, req.PageNumber, 5, 41, req.PerPage)
	return &page, nil
}

func (s *stubSearcher) Sports(_ context.Context, group string) ([]models.Sport, error) {
	return []models.Sport{{ID: "s1", Group: group}}, nil
}

func newStubController(t *testing.T, api search.Searcher) *search.Controller {
	t.Helper()
	ctrl := search.New(api, search.Options{Debounce: time.Millisecond})
	t.Cleanup(func() {
		ctrl.Close()
		ctrl.Wait()
	})
	return ctrl
}

func TestRunQuery(t *testing.T) {
	api := &stubSearcher{}
	ctrl := newStubController(t, api)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := runQuery(ctx, ctrl, "jo", "", "", 1)

	require.NoError(t, err)
	assert.Equal(t, search.PhaseResults, state.Phase)
	assert.Len(t, state.Page.Items, 1)
	ctrl.Wait()
	require.Len(t, api.got, 1)
	assert.Equal(t, "jo", api.got[0].Search)
}

func TestRunQuery_Page(t *testing.T) {
	api := &stubSearcher{}
	ctrl := newStubController(t, api)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := runQuery(ctx, ctrl, "jo", "team", "s1", 3)

	require.NoError(t, err)
	assert.Equal(t, 3, state.Page.CurrentPage)
	ctrl.Wait()
	require.NotEmpty(t, api.got)
	last := api.got[len(api.got)-1]
	assert.Equal(t, models.SearchRequest{Search: "jo", MainSport: "s1", PageNumber: 3, PerPage: 10}, last)
}

func TestRunQuery_ShortTextIsIdle(t *testing.T) {
	api := &stubSearcher{}
	ctrl := newStubController(t, api)

	state, err := runQuery(context.Background(), ctrl, "j", "", "", 1)

	require.NoError(t, err)
	assert.Equal(t, search.PhaseIdle, state.Phase)
	assert.Equal(t, models.EmptyPage(10), state.Page)
	assert.Empty(t, api.got)
}

func TestRunQuery_SportNeedsGroup(t *testing.T) {
	ctrl := newStubController(t, &stubSearcher{})

	_, err := runQuery(context.Background(), ctrl, "jo", "", "s1", 1)

	assert.ErrorIs(t, err, search.ErrNoCategory)
}
