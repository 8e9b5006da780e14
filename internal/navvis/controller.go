// Package navvis decides whether the site navigation bar is shown. It combines
// three signals: the scroll direction, whether the home region is in view, and
// how long the page has been idle since the last upward scroll.
package navvis

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/viewport"
)

const (
	// DeadZone is the offset, in pixels, below which downward scrolling never hides the bar.
	DeadZone = 50
	// IdleHideDelay is how long the bar stays up after a reveal with no further scrolling.
	IdleHideDelay = 3000 * time.Millisecond
	// IntersectionThreshold is the visible ratio of the home region that forces the bar on.
	IntersectionThreshold = 0.1
	// HomeTarget is the region observed by default.
	HomeTarget = "#home"
)

// State is a point-in-time copy of the controller's scroll state.
type State struct {
	Visible     bool
	Forced      bool
	LastScrollY int
	IdleArmed   bool
	Mounted     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithTarget overrides the observed home region selector.
func WithTarget(selector string) Option {
	return func(c *Controller) {
		if selector != "" {
			c.target = selector
		}
	}
}

// WithLogger sets the logger used for degradation notices.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns the scroll state of one mounted navigation bar.
type Controller struct {
	platform viewport.Platform
	target   string
	logger   *zap.Logger

	mu          sync.Mutex
	mounted     bool
	lastScrollY int
	visible     bool
	forced      bool
	// forcedFrom is the offset at which the home region last came into view.
	forcedFrom int
	// intersecting is nil until the first intersection signal arrives.
	intersecting *bool
	idle         viewport.Timer
	idleGen      uint64
	subs         []viewport.Subscription

	listenerSeq int
	listeners   map[int]func(bool)
}

// New returns an unmounted controller reading signals from p.
func New(p viewport.Platform, opts ...Option) *Controller {
	c := &Controller{
		platform:  p,
		target:    HomeTarget,
		logger:    zap.NewNop(),
		visible:   true,
		listeners: map[int]func(bool){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount resets the scroll state and subscribes to the platform. Missing
// platform support degrades silently: without intersection the bar is never
// forced, without scroll events it stays visible.
func (c *Controller) Mount() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.forced = false
	c.intersecting = nil
	c.lastScrollY = c.platform.ScrollY()
	c.setVisible(true)
	c.mu.Unlock()

	// Subscriptions may deliver synchronously, so they are made without the lock held.
	var subs []viewport.Subscription
	if sub, err := c.platform.SubscribeScroll(c.HandleScroll); err != nil {
		c.logger.Warn("scroll events unavailable; navigation stays visible", zap.Error(err))
	} else {
		subs = append(subs, sub)
	}
	if sub, err := c.platform.ObserveIntersection(c.target, IntersectionThreshold, c.HandleIntersection); err != nil {
		c.logger.Debug("intersection observation unavailable; using scroll direction only",
			zap.String("target", c.target), zap.Error(err))
	} else {
		subs = append(subs, sub)
	}

	c.mu.Lock()
	stale := !c.mounted
	if !stale {
		c.subs = append(c.subs, subs...)
	}
	c.mu.Unlock()
	if stale {
		viewport.Unsubscribe(subs...)
	}
}

// Unmount releases every subscription and the idle timer. It is safe to call
// repeatedly and on a controller that was never mounted.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.mounted = false
	c.cancelIdle()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	viewport.Unsubscribe(subs...)
}

// HandleScroll evaluates a scroll tick at offset y.
func (c *Controller) HandleScroll(y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.evaluate(y, c.lastScrollY)
}

// HandleIntersection applies a change in the home region's intersection.
func (c *Controller) HandleIntersection(intersecting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	if c.intersecting != nil && *c.intersecting == intersecting {
		return
	}
	c.intersecting = &intersecting

	current := c.platform.ScrollY()
	if intersecting {
		c.forcedFrom = current
		c.forced = true
		c.evaluate(current, c.lastScrollY)
		return
	}
	if c.forced {
		c.forced = false
		c.evaluate(current, c.forcedFrom)
		return
	}
	c.evaluate(current, c.lastScrollY)
}

// Visible reports whether the navigation bar should be on screen.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Forced reports whether the home region currently pins the bar on screen.
func (c *Controller) Forced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forced
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Visible:     c.visible,
		Forced:      c.forced,
		LastScrollY: c.lastScrollY,
		IdleArmed:   c.idle != nil,
		Mounted:     c.mounted,
	}
}

// OnChange registers fn to run whenever visibility flips. fn runs on the
// goroutine that caused the change and must not call back into the controller.
func (c *Controller) OnChange(fn func(visible bool)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listenerSeq++
	id := c.listenerSeq
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// evaluate applies the visibility rules for offset current measured against
// baseline, then records current as the last seen offset. Callers hold c.mu.
func (c *Controller) evaluate(current, baseline int) {
	defer func() { c.lastScrollY = current }()

	if c.forced {
		c.cancelIdle()
		c.setVisible(true)
		return
	}
	if current > baseline && current > DeadZone {
		c.cancelIdle()
		c.setVisible(false)
		return
	}
	c.setVisible(true)
	c.armIdle()
}

// armIdle replaces any pending idle timer with a fresh one.
func (c *Controller) armIdle() {
	c.cancelIdle()
	gen := c.idleGen
	c.idle = c.platform.AfterFunc(IdleHideDelay, func() { c.idleElapsed(gen) })
}

// cancelIdle stops the pending idle timer. Bumping the generation also
// disarms a callback that already started and is waiting on c.mu.
func (c *Controller) cancelIdle() {
	c.idleGen++
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
}

func (c *Controller) idleElapsed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.idleGen || !c.mounted {
		return
	}
	c.idle = nil
	if c.forced {
		return
	}
	c.setVisible(false)
}

func (c *Controller) setVisible(v bool) {
	if c.visible == v {
		return
	}
	c.visible = v
	for _, fn := range c.listeners {
		fn(v)
	}
}
