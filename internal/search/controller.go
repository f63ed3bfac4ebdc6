package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/internal/clock"
	"github.com/HerbHall/sportdesk/internal/event"
	"github.com/HerbHall/sportdesk/pkg/models"
)

// TopicState is published with a State payload on every transition.
const TopicState = "search.state"

// DefaultDebounce is the quiet interval after the last filter mutation.
const DefaultDebounce = 300 * time.Millisecond

// ErrNoCategory is returned when a sub-filter is set without a category.
var ErrNoCategory = errors.New("search: sub-filter requires a category")

// Searcher is the remote side of a Controller. *apiclient.Client
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, kind models.EntityKind, req models.SearchRequest) (*models.SearchResultPage, error)
	Sports(ctx context.Context, group string) ([]models.Sport, error)
}

// Compile-time interface guard.
var _ Searcher = (*apiclient.Client)(nil)

// Options configures a Controller. Zero values select defaults.
type Options struct {
	Kind     models.EntityKind
	Debounce time.Duration
	PerPage  int
	Clock    clock.Clock
	Bus      event.Publisher
	Metrics  *Metrics
	Logger   *zap.Logger
}

// Controller owns the filters and result state of one search view.
//
// Every mutation and every issued query bumps a sequence number; a
// response is applied only if its sequence number is still current, so
// late responses can never overwrite newer state.
type Controller struct {
	api      Searcher
	kind     models.EntityKind
	debounce time.Duration
	clock    clock.Clock
	bus      event.Publisher
	metrics  *Metrics
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	seq       uint64
	sportsSeq uint64
	timer     clock.Timer
	timerGen  uint64
	version   uint64
	closed    bool

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	emitMu      sync.Mutex
	lastEmitted uint64
}

// New returns an idle Controller querying api.
func New(api Searcher, opts Options) *Controller {
	if opts.Kind == "" {
		opts.Kind = models.KindUsers
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PerPage <= 0 {
		opts.PerPage = models.DefaultPerPage
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:      api,
		kind:     opts.Kind,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With(zap.String("kind", string(opts.Kind))),
		ctx:      ctx,
		cancel:   cancel,
		state: State{
			Phase: PhaseIdle,
			Filters: models.SearchFilters{
				PageNumber: 1,
				PerPage:    opts.PerPage,
			},
			Page: models.EmptyPage(opts.PerPage),
		},
		subs: make(map[int]func(State)),
	}
}

// Kind returns the entity kind this controller searches.
func (c *Controller) Kind() models.EntityKind { return c.kind }

// SetFreeText updates the free-text filter.
func (c *Controller) SetFreeText(text string) {
	c.mutate(func(f *models.SearchFilters) error {
		f.FreeText = text
		return nil
	})
}

// SetCategoryFilter sets the sport group, always clearing the sub-filter,
// and reloads the sport options for the new group. An empty id clears
// the category.
func (c *Controller) SetCategoryFilter(id string) {
	var start func()
	c.mutate(func(f *models.SearchFilters) error {
		f.Category = id
		f.SubFilter = ""
		start = c.loadSportsLocked(id)
		return nil
	})
	if start != nil {
		start()
	}
}

// SetSubFilter sets the sport within the current group. It returns
// ErrNoCategory when id is non-empty and no category is set.
func (c *Controller) SetSubFilter(id string) error {
	return c.mutate(func(f *models.SearchFilters) error {
		if id != "" && f.Category == "" {
			return ErrNoCategory
		}
		f.SubFilter = id
		return nil
	})
}

// FetchPage queries page n of the current filters right away, dropping
// any pending debounce.
func (c *Controller) FetchPage(n int) {
	if n < 1 {
		n = 1
	}
	c.queryNow("page", func(f *models.SearchFilters) { f.PageNumber = n })
}

// Retry re-issues the current filters immediately. Errors are never
// retried automatically; this is the explicit recovery path.
func (c *Controller) Retry() {
	c.queryNow("retry", nil)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive every state transition and returns a
// function that removes it. fn runs on the goroutine that caused the
// transition and must not call the controller's mutating methods.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// Wait blocks until every query and sport lookup already started has
// finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops the pending debounce timer, cancels in-flight requests and
// discards their responses.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.seq++
	c.sportsSeq++
	c.mu.Unlock()
	c.cancel()
}

// mutate applies fn to the filters, resets the page and reschedules.
func (c *Controller) mutate(fn func(*models.SearchFilters) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if err := fn(&c.state.Filters); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state.Filters.PageNumber = 1
	// Anything in flight was issued for the old filters.
	c.seq++
	c.state.Seq = c.seq
	c.stopTimerLocked()

	if ShouldQuery(c.state.Filters) {
		c.state.Phase = PhaseDebouncing
		c.timerGen++
		gen := c.timerGen
		c.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	} else {
		c.resetLocked()
	}
	v, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(v, snap)
	return nil
}

// fire runs when the debounce window elapses.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	start := c.beginLocked("debounce")
	v, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(v, snap)
	start()
}

func (c *Controller) queryNow(trigger string, adjust func(*models.SearchFilters)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	if adjust != nil {
		adjust(&c.state.Filters)
	}
	start := func() {}
	if ShouldQuery(c.state.Filters) {
		start = c.beginLocked(trigger)
	} else {
		c.seq++
		c.state.Seq = c.seq
		c.resetLocked()
	}
	v, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(v, snap)
	start()
}

// beginLocked moves to PhaseQuerying under a fresh sequence number and
// returns the function that sends the query. Callers invoke it after
// emitting the querying state.
func (c *Controller) beginLocked(trigger string) (start func()) {
	c.seq++
	seq := c.seq
	c.state.Seq = seq
	c.state.Phase = PhaseQuerying
	filters := c.state.Filters
	c.metrics.query(trigger)

	c.wg.Add(1)
	return func() {
		go func() {
			defer c.wg.Done()
			c.run(seq, filters)
		}()
	}
}

func (c *Controller) run(seq uint64, filters models.SearchFilters) {
	req := RequestFor(filters)
	c.logger.Debug("search query",
		zap.Uint64("seq", seq),
		zap.String("search", req.Search),
		zap.String("main_sport", req.MainSport),
		zap.Int("page", req.PageNumber),
	)
	page, err := c.api.Search(c.ctx, c.kind, req)

	c.mu.Lock()
	if c.closed || seq != c.seq {
		current := c.seq
		c.mu.Unlock()
		c.metrics.stale()
		c.logger.Debug("discarding stale search response",
			zap.Uint64("seq", seq), zap.Uint64("current", current))
		return
	}
	if err != nil {
		c.state.Phase = PhaseError
		c.state.Error = apiclient.Message(err)
		c.logger.Warn("search failed", zap.Uint64("seq", seq), zap.Error(err))
	} else {
		c.state.Phase = PhaseResults
		c.state.Error = ""
		if page == nil {
			c.state.Page = models.EmptyPage(filters.PerPage)
		} else {
			c.state.Page = *page
		}
	}
	v, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(v, snap)
}

// loadSportsLocked marks the sport options of group as loading and
// returns the function that fetches them, or nil for an empty group.
// Only the latest load is applied.
func (c *Controller) loadSportsLocked(group string) (start func()) {
	c.sportsSeq++
	seq := c.sportsSeq
	c.state.SportOptions = nil
	if group == "" {
		c.state.SportsLoading = false
		return nil
	}
	c.state.SportsLoading = true

	c.wg.Add(1)
	return func() { go c.fetchSports(seq, group) }
}

func (c *Controller) fetchSports(seq uint64, group string) {
	defer c.wg.Done()
	sports, err := c.api.Sports(c.ctx, group)

	c.mu.Lock()
	if c.closed || seq != c.sportsSeq {
		c.mu.Unlock()
		return
	}
	c.state.SportsLoading = false
	if err != nil {
		// Options stay empty; the search itself is unaffected.
		c.state.SportOptions = []models.Sport{}
		c.logger.Warn("loading sport options failed",
			zap.String("group", group), zap.Error(err))
	} else {
		c.state.SportOptions = sports
	}
	v, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(v, snap)
}

func (c *Controller) resetLocked() {
	c.state.Phase = PhaseIdle
	c.state.Error = ""
	c.state.Page = models.EmptyPage(c.state.Filters.PerPage)
	c.state.Filters.PageNumber = 1
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) snapshotLocked() (uint64, State) {
	c.version++
	return c.version, c.state.clone()
}

// emit delivers snap to subscribers and the bus. Snapshots older than one
// already delivered are dropped so observers never go backwards.
func (c *Controller) emit(v uint64, snap State) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if v <= c.lastEmitted {
		return
	}
	c.lastEmitted = v

	c.subsMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}

	if c.bus != nil {
		if err := c.bus.Publish(c.ctx, event.Event{
			Topic:   TopicState,
			Source:  "search",
			Payload: snap,
		}); err != nil {
			c.logger.Warn("publish search state", zap.Error(err))
		}
	}
}
