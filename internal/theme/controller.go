package theme

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/event"
)

// TopicChanged is published after every applied theme change.
const TopicChanged = "theme.changed"

// ChangeCause says why the resolved theme was (re)applied.
type ChangeCause string

const (
	CauseInitialize ChangeCause = "initialize"
	CauseUser       ChangeCause = "user"
	CauseReset      ChangeCause = "reset"
	CauseSystem     ChangeCause = "system"
)

// Changed is the payload of TopicChanged events.
type Changed struct {
	Preference Preference  `json:"preference"`
	Resolved   Resolved    `json:"resolved"`
	Cause      ChangeCause `json:"cause"`
}

// Options configures a Controller. Every field is optional.
type Options struct {
	Storage Storage
	Key     string
	Scheme  SchemeSource
	Root    Root
	Frames  FrameScheduler
	Bus     event.Publisher
	Logger  *zap.Logger
}

// Controller is the single source of truth for the display theme. Create
// one at the application root and hand it to consumers with NewContext.
type Controller struct {
	storage Storage
	key     string
	scheme  SchemeSource
	root    Root
	frames  FrameScheduler
	bus     event.Publisher
	logger  *zap.Logger

	mu          sync.Mutex
	pref        Preference
	osDark      bool
	resolved    Resolved
	ready       bool
	unsubscribe func()

	// swapMu orders transition suspends against frame callbacks; only
	// the callback of the latest swap may re-enable transitions.
	swapMu  sync.Mutex
	swapGen uint64
}

// NewController builds an uninitialized Controller.
func NewController(opts Options) *Controller {
	if opts.Key == "" {
		opts.Key = DefaultStorageKey
	}
	if opts.Scheme == nil {
		opts.Scheme = NewStaticScheme(false)
	}
	if opts.Root == nil {
		opts.Root = NewDocumentRoot()
	}
	if opts.Frames == nil {
		opts.Frames = TimerFrames{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		storage:  opts.Storage,
		key:      opts.Key,
		scheme:   opts.Scheme,
		root:     opts.Root,
		frames:   opts.Frames,
		bus:      opts.Bus,
		logger:   opts.Logger,
		pref:     DefaultPreference,
		resolved: ResolvedLight,
	}
}

// Initialize loads the persisted preference, applies the resolved theme,
// subscribes to OS changes and marks the controller ready. Calling it
// again is a no-op that returns the current resolved theme.
func (c *Controller) Initialize(ctx context.Context) Resolved {
	c.mu.Lock()
	if c.ready {
		r := c.resolved
		c.mu.Unlock()
		return r
	}
	c.pref = loadPreference(ctx, c.storage, c.key, c.logger)
	c.osDark = c.scheme.PrefersDark()
	c.resolved = Resolve(c.pref, c.osDark)
	apply(c.root, c.resolved)
	c.ready = true
	changed := Changed{Preference: c.pref, Resolved: c.resolved, Cause: CauseInitialize}
	c.mu.Unlock()

	// Subscribe outside the lock: a source may notify synchronously.
	unsub := c.scheme.Subscribe(c.onSchemeChange)
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()

	c.logger.Info("theme initialized",
		zap.String("preference", string(changed.Preference)),
		zap.String("resolved", string(changed.Resolved)),
	)
	c.publish(ctx, changed)

	// Catch a flip that landed between the first read and Subscribe.
	c.onSchemeChange(c.scheme.PrefersDark())
	return c.Resolved()
}

// SetTheme stores pref, applies the resolved theme without animating the
// swap, and persists pref. Storage failures are logged and ignored.
func (c *Controller) SetTheme(ctx context.Context, pref Preference) {
	if _, ok := ParsePreference(string(pref)); !ok {
		c.logger.Warn("ignoring unknown theme preference", zap.String("preference", string(pref)))
		return
	}
	changed := c.update(pref, CauseUser)
	savePreference(ctx, c.storage, c.key, pref, c.logger)
	c.logger.Debug("theme set",
		zap.String("preference", string(pref)),
		zap.String("resolved", string(changed.Resolved)),
	)
	c.publish(ctx, changed)
}

// Reset returns to the system preference and removes the stored value, so
// later sessions start from the default as well.
func (c *Controller) Reset(ctx context.Context) {
	changed := c.update(DefaultPreference, CauseReset)
	forgetPreference(ctx, c.storage, c.key, c.logger)
	c.logger.Debug("theme reset", zap.String("resolved", string(changed.Resolved)))
	c.publish(ctx, changed)
}

func (c *Controller) update(pref Preference, cause ChangeCause) Changed {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pref = pref
	c.resolved = Resolve(pref, c.osDark)
	c.swap(c.resolved)
	return Changed{Preference: pref, Resolved: c.resolved, Cause: cause}
}

// ToggleTheme pins the preference to the opposite of the currently
// resolved theme. From system this yields light or dark, never system.
func (c *Controller) ToggleTheme(ctx context.Context) {
	c.mu.Lock()
	next := c.resolved.Opposite()
	c.mu.Unlock()
	c.SetTheme(ctx, next)
}

// Preference returns the in-memory preference.
func (c *Controller) Preference() Preference {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pref
}

// Resolved returns the theme currently applied.
func (c *Controller) Resolved() Resolved {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// Ready reports whether Initialize has completed.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Close drops the OS scheme subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// onSchemeChange re-resolves without persisting; explicit preferences
// ignore the OS signal.
func (c *Controller) onSchemeChange(prefersDark bool) {
	c.mu.Lock()
	c.osDark = prefersDark
	if c.pref != PreferenceSystem {
		c.mu.Unlock()
		return
	}
	next := Resolve(c.pref, prefersDark)
	if next == c.resolved {
		c.mu.Unlock()
		return
	}
	c.resolved = next
	c.swap(next)
	changed := Changed{Preference: c.pref, Resolved: next, Cause: CauseSystem}
	c.mu.Unlock()

	c.logger.Debug("system color scheme changed", zap.String("resolved", string(next)))
	// Scheme sources notify from their polling goroutine; keep it moving.
	if async, ok := c.bus.(event.AsyncPublisher); ok {
		async.PublishAsync(context.Background(), event.Event{
			Topic:   TopicChanged,
			Source:  "theme",
			Payload: changed,
		})
		return
	}
	c.publish(context.Background(), changed)
}

// swap writes r with transitions suspended and turns them back on after
// two frame boundaries, so the change is not animated. A newer swap
// restarts the two-frame wait.
func (c *Controller) swap(r Resolved) {
	c.swapMu.Lock()
	c.swapGen++
	gen := c.swapGen
	c.root.SetTransitions(false)
	apply(c.root, r)
	c.swapMu.Unlock()

	if c.frames == nil {
		c.enableTransitions(gen)
		return
	}
	c.frames.RequestFrame(func() {
		c.frames.RequestFrame(func() {
			c.enableTransitions(gen)
		})
	})
}

func (c *Controller) enableTransitions(gen uint64) {
	c.swapMu.Lock()
	defer c.swapMu.Unlock()
	if gen != c.swapGen {
		return
	}
	c.root.SetTransitions(true)
}

func (c *Controller) publish(ctx context.Context, changed Changed) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, event.Event{
		Topic:   TopicChanged,
		Source:  "theme",
		Payload: changed,
	}); err != nil {
		c.logger.Warn("publish theme change", zap.Error(err))
	}
}
