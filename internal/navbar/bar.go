// Package navbar wires the visibility controller and the overlay menu into the
// single navigation component the page renders.
package navbar

import (
	"sync"

	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/nav"
	"kulhadcafe.in/site/internal/navvis"
	"kulhadcafe.in/site/internal/overlay"
	"kulhadcafe.in/site/internal/viewport"
)

// State is what the render layer needs to draw the bar and the menu.
type State struct {
	Visible  bool `json:"visible"`
	MenuOpen bool `json:"menuOpen"`
}

// Bar is a mounted navigation bar with its overlay menu.
type Bar struct {
	Visibility *navvis.Controller
	Menu       *overlay.Menu

	// mu guards the cached state. Component listeners only touch the cache,
	// never the other component, so the two component locks are never nested.
	mu        sync.Mutex
	mounted   bool
	state     State
	listeners []func(State)
	cancels   []func()
}

// New builds a bar for the given platform and scroll lock.
func New(p viewport.Platform, lock overlay.ScrollLock, links []nav.Item, logger *zap.Logger) *Bar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bar{
		Visibility: navvis.New(p, navvis.WithLogger(logger.Named("navvis"))),
		Menu:       overlay.New(lock, links, overlay.WithLogger(logger.Named("overlay"))),
	}
}

// Mount mounts the menu and then the controller, so the controller's first
// notification already sees a closed menu. Mounting a mounted bar does nothing.
func (b *Bar) Mount() {
	b.mu.Lock()
	if b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.state = State{Visible: true}
	b.mu.Unlock()

	b.Menu.Mount()
	cancels := []func(){
		b.Visibility.OnChange(func(visible bool) {
			b.update(func(s *State) { s.Visible = visible })
		}),
		b.Menu.OnChange(func(open bool) {
			b.update(func(s *State) { s.MenuOpen = open })
		}),
	}
	b.mu.Lock()
	b.cancels = cancels
	b.mu.Unlock()
	b.Visibility.Mount()
}

// Unmount tears both components down. The menu goes last, even if the
// controller teardown panics, and its closing transition still reaches State.
func (b *Bar) Unmount() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = false
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	defer func() {
		b.Menu.Unmount()
		for _, cancel := range cancels {
			cancel()
		}
	}()
	b.Visibility.Unmount()
}

// Trigger opens the menu from the bar's menu button.
func (b *Bar) Trigger() { b.Menu.Open() }

// Activate forwards a menu activation and returns the anchor to navigate to.
func (b *Bar) Activate(t overlay.Target) (string, bool) { return b.Menu.Activate(t) }

// State returns the current render state.
func (b *Bar) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnChange registers fn for every change to State.
func (b *Bar) OnChange(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Bar) update(apply func(*State)) {
	b.mu.Lock()
	apply(&b.state)
	s := b.state
	listeners := make([]func(State), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
