// Package viewport describes the browser signals the navigation components react to:
// the window scroll offset, intersection of a page region with the viewport, and
// single-shot timers. Adapters (syscall/js, navsync) implement it; tests use
// viewporttest.
package viewport

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by a source that cannot deliver a signal in the
// current environment, e.g. a browser without IntersectionObserver.
var ErrUnsupported = errors.New("viewport: unsupported")

// Subscription is a live registration with a signal source.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f. A nil SubscriptionFunc is a no-op.
func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// ScrollSource delivers the vertical scroll offset of the window.
type ScrollSource interface {
	// SubscribeScroll registers a passive listener invoked with the current
	// offset on every scroll tick.
	SubscribeScroll(fn func(y int)) (Subscription, error)
	// ScrollY reports the current offset without waiting for an event.
	ScrollY() int
}

// IntersectionSource reports whether a page region intersects the viewport.
type IntersectionSource interface {
	// ObserveIntersection invokes fn whenever the visible ratio of target
	// crosses threshold.
	ObserveIntersection(target string, threshold float64, fn func(intersecting bool)) (Subscription, error)
}

// Timer is a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports false when the callback already ran
	// or was already stopped.
	Stop() bool
}

// Clock schedules single-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Platform bundles every signal the navigation controller consumes.
type Platform interface {
	ScrollSource
	IntersectionSource
	Clock
}

// SystemClock schedules callbacks with time.AfterFunc.
type SystemClock struct{}

// AfterFunc implements Clock.
func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Unsubscribe releases every non-nil subscription in subs.
func Unsubscribe(subs ...Subscription) {
	for _, s := range subs {
		if s != nil {
			s.Unsubscribe()
		}
	}
}
