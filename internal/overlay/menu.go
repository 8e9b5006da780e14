// Package overlay implements the full-screen navigation menu. The menu has two
// logical states, open and closed; while open it holds the document scroll lock.
package overlay

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/nav"
)

// ScrollLock is the document-level flag that stops page scrolling.
type ScrollLock interface {
	SetScrollLocked(locked bool)
}

// LockFunc adapts a function to ScrollLock.
type LockFunc func(locked bool)

// SetScrollLocked calls f.
func (f LockFunc) SetScrollLocked(locked bool) { f(locked) }

// TargetKind identifies what an activation landed on.
type TargetKind int

const (
	// TargetSurface is the menu backdrop outside any link.
	TargetSurface TargetKind = iota
	// TargetClose is the explicit close control.
	TargetClose
	// TargetLink is one of the menu links.
	TargetLink
)

func (k TargetKind) String() string {
	switch k {
	case TargetSurface:
		return "surface"
	case TargetClose:
		return "close"
	case TargetLink:
		return "link"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target is the innermost element a click or key activation resolved to.
type Target struct {
	Kind  TargetKind
	Index int // link index when Kind is TargetLink
}

// SurfaceTarget is an activation on the backdrop.
func SurfaceTarget() Target { return Target{Kind: TargetSurface} }

// CloseTarget is an activation of the close control.
func CloseTarget() Target { return Target{Kind: TargetClose} }

// LinkTarget is an activation of the link at index.
func LinkTarget(index int) Target { return Target{Kind: TargetLink, Index: index} }

// Option configures a Menu.
type Option func(*Menu)

// WithLogger sets the menu logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Menu) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Menu is the overlay menu state.
type Menu struct {
	lock   ScrollLock
	links  []nav.Item
	logger *zap.Logger

	mu          sync.Mutex
	mounted     bool
	open        bool
	listenerSeq int
	listeners   map[int]func(bool)
}

// New returns an unmounted, closed menu listing links.
func New(lock ScrollLock, links []nav.Item, opts ...Option) *Menu {
	if lock == nil {
		lock = LockFunc(func(bool) {})
	}
	m := &Menu{
		lock:      lock,
		links:     nav.Clone(links),
		logger:    zap.NewNop(),
		listeners: map[int]func(bool){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithMenu mounts a menu for the duration of fn. The scroll lock is released
// when fn returns, including when it panics.
func WithMenu(lock ScrollLock, links []nav.Item, fn func(*Menu) error, opts ...Option) error {
	m := New(lock, links, opts...)
	m.Mount()
	defer m.Unmount()
	return fn(m)
}

// Mount starts the menu closed with scrolling enabled. Mounting a mounted
// menu does nothing.
func (m *Menu) Mount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mounted {
		return
	}
	m.mounted = true
	m.open = false
	m.lock.SetScrollLocked(false)
}

// Unmount releases the scroll lock whatever state the menu is in.
func (m *Menu) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasOpen := m.open
	m.mounted = false
	m.open = false
	m.lock.SetScrollLocked(false)
	if wasOpen {
		m.logger.Debug("overlay menu torn down while open")
		m.notify(false)
	}
}

// Open shows the menu and locks page scrolling.
func (m *Menu) Open() { m.SetOpen(true) }

// Close hides the menu and unlocks page scrolling.
func (m *Menu) Close() { m.SetOpen(false) }

// SetOpen moves the menu to the requested state. The scroll lock is written
// on every transition so it always matches the state.
func (m *Menu) SetOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || m.open == open {
		return
	}
	m.open = open
	m.lock.SetScrollLocked(open)
	m.notify(open)
}

// IsOpen reports whether the menu is showing.
func (m *Menu) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Links returns the menu entries in display order.
func (m *Menu) Links() []nav.Item {
	return nav.Clone(m.links)
}

// Activate handles one activation inside the open menu. Every target closes
// the menu exactly once; a link also returns its href for the caller to
// navigate to. Activations while closed, or on an unknown link, do nothing.
func (m *Menu) Activate(t Target) (href string, navigate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || !m.open {
		return "", false
	}
	if t.Kind == TargetLink {
		if t.Index < 0 || t.Index >= len(m.links) {
			return "", false
		}
		href, navigate = m.links[t.Index].Href, true
	}
	m.open = false
	m.lock.SetScrollLocked(false)
	m.notify(false)
	return href, navigate
}

// OnChange registers fn to run on every open/close transition. fn must not
// call back into the menu.
func (m *Menu) OnChange(fn func(open bool)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Menu) notify(open bool) {
	for _, fn := range m.listeners {
		fn(open)
	}
}
