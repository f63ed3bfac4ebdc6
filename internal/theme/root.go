package theme

import (
	"sync"
	"time"
)

// Root-level contract points external styling depends on.
const (
	// DarkClass is toggled on the document root element.
	DarkClass = "dark"
	// ColorSchemeMeta is the name of the meta element whose content is
	// set to the resolved theme.
	ColorSchemeMeta = "color-scheme"
)

// Root is the presentation root the resolved theme is applied to.
type Root interface {
	SetDark(dark bool)
	SetColorScheme(scheme Resolved)
	// SetTransitions enables or suspends visual transitions.
	SetTransitions(enabled bool)
}

// FrameScheduler runs callbacks on the next render frame boundary.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// DocumentRoot is an in-memory Root; server-rendered pages read its
// state to emit the class attribute and meta tag.
type DocumentRoot struct {
	mu          sync.RWMutex
	dark        bool
	scheme      Resolved
	transitions bool
	mutations   int
}

// Compile-time interface guard.
var _ Root = (*DocumentRoot)(nil)

// NewDocumentRoot returns a light root with transitions enabled.
func NewDocumentRoot() *DocumentRoot {
	return &DocumentRoot{scheme: ResolvedLight, transitions: true}
}

func (d *DocumentRoot) SetDark(dark bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dark = dark
	d.mutations++
}

func (d *DocumentRoot) SetColorScheme(scheme Resolved) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheme = scheme
}

func (d *DocumentRoot) SetTransitions(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transitions = enabled
}

// HasDarkClass reports whether the dark class is set.
func (d *DocumentRoot) HasDarkClass() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dark
}

// HTMLClass is the value for the root element's class attribute.
func (d *DocumentRoot) HTMLClass() string {
	if d.HasDarkClass() {
		return DarkClass
	}
	return ""
}

// MetaColorScheme is the content of the color-scheme meta element.
func (d *DocumentRoot) MetaColorScheme() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.scheme)
}

// TransitionsEnabled reports whether transitions are currently allowed.
func (d *DocumentRoot) TransitionsEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.transitions
}

// Mutations counts dark-class writes.
func (d *DocumentRoot) Mutations() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mutations
}

// ImmediateFrames runs every frame callback synchronously.
type ImmediateFrames struct{}

func (ImmediateFrames) RequestFrame(fn func()) { fn() }

// TimerFrames approximates a display's frame clock with a fixed interval.
type TimerFrames struct {
	Interval time.Duration
}

func (f TimerFrames) RequestFrame(fn func()) {
	interval := f.Interval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	time.AfterFunc(interval, fn)
}

// ManualFrames queues callbacks until Flush is called; each Flush is one
// frame boundary.
type ManualFrames struct {
	mu      sync.Mutex
	pending []func()
}

func (m *ManualFrames) RequestFrame(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
}

// Flush runs the callbacks queued before this call. Callbacks they queue
// wait for the next Flush.
func (m *ManualFrames) Flush() {
	m.mu.Lock()
	fns := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// apply writes r to root.
func apply(root Root, r Resolved) {
	if root == nil {
		return
	}
	root.SetDark(r.IsDark())
	root.SetColorScheme(r)
}
