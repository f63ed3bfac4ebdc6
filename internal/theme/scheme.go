package theme

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SchemeSource reports the OS-level "prefers dark" signal and notifies
// subscribers when it flips.
type SchemeSource interface {
	PrefersDark() bool
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(prefersDark bool)) (unsubscribe func())
}

// StaticScheme is a settable SchemeSource. Set notifies subscribers only
// when the value actually changes.
type StaticScheme struct {
	mu     sync.Mutex
	dark   bool
	subs   map[int]func(bool)
	nextID int
}

// Compile-time interface guard.
var _ SchemeSource = (*StaticScheme)(nil)

// NewStaticScheme returns a StaticScheme with the given initial value.
func NewStaticScheme(prefersDark bool) *StaticScheme {
	return &StaticScheme{dark: prefersDark, subs: make(map[int]func(bool))}
}

func (s *StaticScheme) PrefersDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

func (s *StaticScheme) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (s *StaticScheme) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Set updates the signal. Subscribers run on the caller's goroutine,
// outside the lock.
func (s *StaticScheme) Set(prefersDark bool) {
	s.mu.Lock()
	if s.dark == prefersDark {
		s.mu.Unlock()
		return
	}
	s.dark = prefersDark
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(prefersDark)
	}
}

// EnvScheme derives the signal from the terminal's COLORFGBG variable
// ("fg;bg"), which most xterm-compatible terminals export. A background
// color index of 0-6 or 8 counts as dark. Without the variable the scheme
// reports light.
type EnvScheme struct {
	*StaticScheme
	lookup func(string) (string, bool)
}

// NewEnvScheme reads the environment through lookup (os.LookupEnv when nil).
func NewEnvScheme(lookup func(string) (string, bool)) *EnvScheme {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := &EnvScheme{lookup: lookup}
	e.StaticScheme = NewStaticScheme(e.detect())
	return e
}

// Refresh re-reads the environment and notifies on change.
func (e *EnvScheme) Refresh() {
	e.Set(e.detect())
}

// Poll refreshes every interval until ctx is done.
func (e *EnvScheme) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Refresh()
		}
	}
}

func (e *EnvScheme) detect() bool {
	v, ok := e.lookup("COLORFGBG")
	if !ok || v == "" {
		return false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return false
	}
	return (bg >= 0 && bg <= 6) || bg == 8
}
