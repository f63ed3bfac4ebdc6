package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/internal/testutil"
	"github.com/HerbHall/sportdesk/pkg/models"
)

// fakeSearcher records requests. Without hooks it answers every search
// with one entity named after the search text.
type fakeSearcher struct {
	mu       sync.Mutex
	requests []models.SearchRequest
	groups   []string
	search   func(ctx context.Context, req models.SearchRequest) (*models.SearchResultPage, error)
	sports   func(ctx context.Context, group string) ([]models.Sport, error)
}

func (f *fakeSearcher) Search(ctx context.Context, _ models.EntityKind, req models.SearchRequest) (*models.SearchResultPage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	hook := f.search
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, req)
	}
	page := models.NewResultPage(
		[]models.Entity{testutil.NewEntity(testutil.WithName(req.Search))},
		req.PageNumber, 3, 21, req.PerPage,
	)
	return &page, nil
}

func (f *fakeSearcher) Sports(ctx context.Context, group string) ([]models.Sport, error) {
	f.mu.Lock()
	f.groups = append(f.groups, group)
	hook := f.sports
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, group)
	}
	return []models.Sport{{ID: group + "-s1", Name: "Sport", Group: group}}, nil
}

func (f *fakeSearcher) Requests() []models.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SearchRequest(nil), f.requests...)
}

func (f *fakeSearcher) Groups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.groups...)
}

func newTestController(t *testing.T, api Searcher, opts Options) (*Controller, *testutil.Clock) {
	t.Helper()
	clk := testutil.NewClock()
	opts.Clock = clk
	if opts.Logger == nil {
		opts.Logger = testutil.Logger()
	}
	c := New(api, opts)
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	return c, clk
}

func TestInitialStateIsIdle(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, Options{})
	s := c.Snapshot()

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, models.EmptyPage(models.DefaultPerPage), s.Page)
	assert.Equal(t, 1, s.Filters.PageNumber)
	assert.Equal(t, models.KindUsers, c.Kind())
}

func TestTwoCharacterQuery(t *testing.T) {
	api := &fakeSearcher{
		search: func(context.Context, models.SearchRequest) (*models.SearchResultPage, error) {
			page := models.NewResultPage([]models.Entity{{ID: "u1", Name: "Jo"}}, 1, 1, 1, 10)
			return &page, nil
		},
	}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	assert.Equal(t, PhaseDebouncing, c.Snapshot().Phase)

	clk.Advance(299 * time.Millisecond)
	c.Wait()
	assert.Empty(t, api.Requests(), "no call before the quiet window elapses")

	clk.Advance(time.Millisecond)
	c.Wait()

	require.Len(t, api.Requests(), 1)
	assert.Equal(t, models.SearchRequest{Search: "jo", PageNumber: 1, PerPage: 10}, api.Requests()[0])

	s := c.Snapshot()
	assert.Equal(t, PhaseResults, s.Phase)
	assert.Equal(t, models.SearchResultPage{
		Items:       []models.Entity{{ID: "u1", Name: "Jo"}},
		CurrentPage: 1,
		TotalPages:  1,
		TotalCount:  1,
		PerPage:     10,
	}, s.Page)
	assert.Empty(t, s.Error)
}

func TestBelowThresholdNeverQueries(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	for _, text := range []string{"j", " j", "é", "   "} {
		c.SetFreeText(text)
		s := c.Snapshot()
		assert.Equal(t, PhaseIdle, s.Phase, "text %q", text)
		assert.Equal(t, []models.Entity{}, s.Page.Items)
		assert.Equal(t, 1, s.Page.TotalPages)
		assert.Equal(t, 1, s.Page.CurrentPage)
	}
	assert.Zero(t, clk.Pending())

	clk.Advance(time.Second)
	c.Wait()
	assert.Empty(t, api.Requests())
}

func TestRapidMutationsIssueOneQuery(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	for _, text := range []string{"j", "jo", "joh", "john"} {
		c.SetFreeText(text)
		clk.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 1, clk.Pending(), "at most one pending timer")

	clk.Advance(300 * time.Millisecond)
	c.Wait()

	require.Len(t, api.Requests(), 1)
	assert.Equal(t, "john", api.Requests()[0].Search)
}

func TestClearingTextCancelsPendingQuery(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	c.SetFreeText("")
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
	assert.Zero(t, clk.Pending())

	clk.Advance(time.Second)
	c.Wait()
	assert.Empty(t, api.Requests())
}

func TestIdleResetsPreviousResults(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	c.Wait()
	require.Equal(t, PhaseResults, c.Snapshot().Phase)

	c.SetFreeText("j")
	s := c.Snapshot()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, models.EmptyPage(models.DefaultPerPage), s.Page)
}

func TestMutationResetsPage(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	c.FetchPage(3)
	c.Wait()
	require.Equal(t, 3, c.Snapshot().Filters.PageNumber)

	c.SetFreeText("joe")
	assert.Equal(t, 1, c.Snapshot().Filters.PageNumber)
	clk.Advance(DefaultDebounce)
	c.Wait()

	reqs := api.Requests()
	assert.Equal(t, 1, reqs[len(reqs)-1].PageNumber)
}

func TestCategoryChangeResetsSubFilter(t *testing.T) {
	api := &fakeSearcher{}
	c, _ := newTestController(t, api, Options{})

	c.SetCategoryFilter("g1")
	c.Wait()
	require.NoError(t, c.SetSubFilter("g1-s1"))
	assert.Equal(t, "g1-s1", c.Snapshot().Filters.SubFilter)

	c.SetCategoryFilter("g2")
	assert.Empty(t, c.Snapshot().Filters.SubFilter)

	require.NoError(t, c.SetSubFilter("g2-s1"))
	c.SetCategoryFilter("g2")
	assert.Empty(t, c.Snapshot().Filters.SubFilter, "reset even when the category is unchanged")
}

func TestCategoryLoadsSportOptions(t *testing.T) {
	api := &fakeSearcher{}
	c, _ := newTestController(t, api, Options{})

	c.SetCategoryFilter("team")
	assert.True(t, c.Snapshot().SportsLoading)
	c.Wait()

	s := c.Snapshot()
	assert.False(t, s.SportsLoading)
	assert.Equal(t, []models.Sport{{ID: "team-s1", Name: "Sport", Group: "team"}}, s.SportOptions)
	assert.Equal(t, []string{"team"}, api.Groups())
	assert.Equal(t, PhaseIdle, s.Phase, "a category alone does not trigger a query")

	c.SetCategoryFilter("")
	c.Wait()
	s = c.Snapshot()
	assert.Empty(t, s.SportOptions)
	assert.False(t, s.SportsLoading)
	assert.Equal(t, []string{"team"}, api.Groups(), "clearing the category loads nothing")
}

func TestSportOptionsFailureIsNotFatal(t *testing.T) {
	api := &fakeSearcher{
		sports: func(context.Context, string) ([]models.Sport, error) {
			return nil, errors.New("boom")
		},
	}
	c, _ := newTestController(t, api, Options{})

	c.SetCategoryFilter("team")
	c.Wait()

	s := c.Snapshot()
	assert.False(t, s.SportsLoading)
	assert.Empty(t, s.SportOptions)
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestSubFilterRequiresCategory(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, Options{})

	err := c.SetSubFilter("s1")
	assert.ErrorIs(t, err, ErrNoCategory)
	assert.Empty(t, c.Snapshot().Filters.SubFilter)

	assert.NoError(t, c.SetSubFilter(""), "clearing is always allowed")
}

func TestSubFilterTriggersQuery(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetCategoryFilter("team")
	require.NoError(t, c.SetSubFilter("football"))
	assert.Equal(t, PhaseDebouncing, c.Snapshot().Phase)

	clk.Advance(DefaultDebounce)
	c.Wait()

	require.Len(t, api.Requests(), 1)
	assert.Equal(t, models.SearchRequest{MainSport: "football", PageNumber: 1, PerPage: 10}, api.Requests()[0])
	assert.Equal(t, PhaseResults, c.Snapshot().Phase)
}

func TestFetchPageBypassesDebounce(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	c.FetchPage(2)
	assert.Equal(t, PhaseQuerying, c.Snapshot().Phase)
	assert.Zero(t, clk.Pending(), "pending debounce dropped")
	c.Wait()

	require.Len(t, api.Requests(), 1)
	assert.Equal(t, 2, api.Requests()[0].PageNumber)

	clk.Advance(time.Second)
	c.Wait()
	assert.Len(t, api.Requests(), 1)

	s := c.Snapshot()
	assert.Equal(t, PhaseResults, s.Phase)
	assert.Equal(t, 2, s.Page.CurrentPage)
}

func TestFetchPageWithoutTriggerStaysIdle(t *testing.T) {
	api := &fakeSearcher{}
	c, _ := newTestController(t, api, Options{})

	c.FetchPage(2)
	c.Wait()

	assert.Empty(t, api.Requests())
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestErrorStateAndRetry(t *testing.T) {
	var fail bool
	var mu sync.Mutex
	api := &fakeSearcher{}
	api.search = func(_ context.Context, req models.SearchRequest) (*models.SearchResultPage, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, &apiclient.Error{Code: apiclient.ErrCodeRejected, Message: "Search failed"}
		}
		page := models.NewResultPage([]models.Entity{{ID: "x"}}, req.PageNumber, 1, 1, req.PerPage)
		return &page, nil
	}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	c.Wait()
	require.Equal(t, PhaseResults, c.Snapshot().Phase)

	mu.Lock()
	fail = true
	mu.Unlock()
	c.Retry()
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, PhaseError, s.Phase)
	assert.Equal(t, "Search failed", s.Error)
	assert.Equal(t, "x", s.Page.Items[0].ID, "previous page kept on error")

	clk.Advance(10 * time.Second)
	c.Wait()
	assert.Len(t, api.Requests(), 2, "no automatic retry")

	mu.Lock()
	fail = false
	mu.Unlock()
	c.Retry()
	c.Wait()

	s = c.Snapshot()
	assert.Equal(t, PhaseResults, s.Phase)
	assert.Empty(t, s.Error)
}

// gatedSearcher blocks each search until the test releases the gate for
// its search text.
type gatedSearcher struct {
	fakeSearcher
	started chan string
	gates   map[string]chan struct{}
}

func newGatedSearcher(texts ...string) *gatedSearcher {
	g := &gatedSearcher{
		started: make(chan string, len(texts)),
		gates:   make(map[string]chan struct{}, len(texts)),
	}
	for _, text := range texts {
		g.gates[text] = make(chan struct{})
	}
	g.search = func(ctx context.Context, req models.SearchRequest) (*models.SearchResultPage, error) {
		g.started <- req.Search
		select {
		case <-g.gates[req.Search]:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		page := models.NewResultPage([]models.Entity{{ID: req.Search}}, 1, 1, 1, req.PerPage)
		return &page, nil
	}
	return g
}

func waitFor(t *testing.T, ch <-chan State, match func(State) bool) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if match(s) {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
		}
	}
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	api := newGatedSearcher("jo", "john")
	metrics := NewMetrics(prometheus.NewRegistry())
	c, clk := newTestController(t, api, Options{Metrics: metrics})

	states := make(chan State, 64)
	c.Subscribe(func(s State) { states <- s })

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	assert.Equal(t, "jo", <-api.started)

	c.SetFreeText("john")
	clk.Advance(DefaultDebounce)
	assert.Equal(t, "john", <-api.started)

	// The newer query answers first.
	close(api.gates["john"])
	waitFor(t, states, func(s State) bool { return s.Phase == PhaseResults })

	close(api.gates["jo"])
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, PhaseResults, s.Phase)
	require.Len(t, s.Page.Items, 1)
	assert.Equal(t, "john", s.Page.Items[0].ID)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Stale))
}

func TestStaleResponseArrivingFirstIsDiscarded(t *testing.T) {
	api := newGatedSearcher("jo", "john")
	metrics := NewMetrics(nil)
	c, clk := newTestController(t, api, Options{Metrics: metrics})

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	<-api.started
	c.SetFreeText("john")
	clk.Advance(DefaultDebounce)
	<-api.started

	close(api.gates["jo"])
	assert.Eventually(t, func() bool {
		return promtest.ToFloat64(metrics.Stale) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseQuerying, c.Snapshot().Phase, "older response does not settle the newer query")

	close(api.gates["john"])
	c.Wait()
	assert.Equal(t, "john", c.Snapshot().Page.Items[0].ID)
}

func TestSubscribeSeesTransitions(t *testing.T) {
	api := &fakeSearcher{}
	bus := testutil.NewMockBus()
	c, clk := newTestController(t, api, Options{Bus: bus})

	var mu sync.Mutex
	var phases []Phase
	unsub := c.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	})

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	c.Wait()
	unsub()
	c.SetFreeText("")

	mu.Lock()
	assert.Equal(t, []Phase{PhaseDebouncing, PhaseQuerying, PhaseResults}, phases)
	mu.Unlock()

	events := bus.Topic(TopicState)
	require.Len(t, events, 4)
	last, ok := events[3].Payload.(State)
	require.True(t, ok)
	assert.Equal(t, PhaseIdle, last.Phase)
}

func TestCloseStopsEverything(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{})

	c.SetFreeText("jo")
	c.Close()
	assert.Zero(t, clk.Pending())

	clk.Advance(time.Second)
	c.SetFreeText("john")
	c.FetchPage(2)
	c.Wait()

	assert.Empty(t, api.Requests())
}

func TestCustomDebounceAndPageSize(t *testing.T) {
	api := &fakeSearcher{}
	c, clk := newTestController(t, api, Options{
		Kind:     models.KindCoaches,
		Debounce: 50 * time.Millisecond,
		PerPage:  25,
	})

	c.SetFreeText("ann")
	clk.Advance(50 * time.Millisecond)
	c.Wait()

	require.Len(t, api.Requests(), 1)
	assert.Equal(t, 25, api.Requests()[0].PerPage)
	assert.Equal(t, models.KindCoaches, c.Kind())
}

func TestQueryMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	c, clk := newTestController(t, &fakeSearcher{}, Options{Metrics: metrics})

	c.SetFreeText("jo")
	clk.Advance(DefaultDebounce)
	c.FetchPage(2)
	c.Retry()
	c.Wait()

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Queries.WithLabelValues("debounce")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Queries.WithLabelValues("page")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.Queries.WithLabelValues("retry")))
}
