package viewporttest

import (
	"sync"

	"kulhadcafe.in/site/internal/viewport"
)

// Window is a scriptable viewport.Platform. Tests move the scroll offset and
// toggle region intersection; listeners are invoked synchronously in
// registration order.
type Window struct {
	*Clock

	// ScrollUnsupported makes SubscribeScroll fail with viewport.ErrUnsupported.
	ScrollUnsupported bool
	// IntersectionUnsupported makes ObserveIntersection fail with viewport.ErrUnsupported.
	IntersectionUnsupported bool

	mu        sync.Mutex
	scrollY   int
	nextID    int
	scrolls   []scrollListener
	observers []observer
}

type scrollListener struct {
	id int
	fn func(int)
}

type observer struct {
	id        int
	target    string
	threshold float64
	fn        func(bool)
}

// NewWindow returns a window scrolled to the top with its own manual clock.
func NewWindow() *Window {
	return &Window{Clock: NewClock()}
}

// SubscribeScroll implements viewport.ScrollSource.
func (w *Window) SubscribeScroll(fn func(y int)) (viewport.Subscription, error) {
	if w.ScrollUnsupported {
		return nil, viewport.ErrUnsupported
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.scrolls = append(w.scrolls, scrollListener{id: id, fn: fn})
	return viewport.SubscriptionFunc(func() { w.removeScroll(id) }), nil
}

// ScrollY implements viewport.ScrollSource.
func (w *Window) ScrollY() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scrollY
}

// ObserveIntersection implements viewport.IntersectionSource.
func (w *Window) ObserveIntersection(target string, threshold float64, fn func(bool)) (viewport.Subscription, error) {
	if w.IntersectionUnsupported {
		return nil, viewport.ErrUnsupported
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.observers = append(w.observers, observer{id: id, target: target, threshold: threshold, fn: fn})
	return viewport.SubscriptionFunc(func() { w.removeObserver(id) }), nil
}

// ScrollTo moves the offset to y and notifies every scroll listener.
func (w *Window) ScrollTo(y int) {
	w.mu.Lock()
	w.scrollY = y
	listeners := make([]scrollListener, len(w.scrolls))
	copy(listeners, w.scrolls)
	w.mu.Unlock()
	for _, l := range listeners {
		l.fn(y)
	}
}

// SetScrollY moves the offset without dispatching a scroll event, modelling
// an event still queued behind another callback.
func (w *Window) SetScrollY(y int) {
	w.mu.Lock()
	w.scrollY = y
	w.mu.Unlock()
}

// SetIntersecting notifies observers of target.
func (w *Window) SetIntersecting(target string, intersecting bool) {
	w.mu.Lock()
	var matched []observer
	for _, o := range w.observers {
		if o.target == target {
			matched = append(matched, o)
		}
	}
	w.mu.Unlock()
	for _, o := range matched {
		o.fn(intersecting)
	}
}

// ScrollListeners reports the number of live scroll subscriptions.
func (w *Window) ScrollListeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.scrolls)
}

// Observers reports the number of live intersection subscriptions.
func (w *Window) Observers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.observers)
}

// Threshold returns the threshold requested for target, or -1 when nothing observes it.
func (w *Window) Threshold(target string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range w.observers {
		if o.target == target {
			return o.threshold
		}
	}
	return -1
}

func (w *Window) removeScroll(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, l := range w.scrolls {
		if l.id == id {
			w.scrolls = append(w.scrolls[:i], w.scrolls[i+1:]...)
			return
		}
	}
}

func (w *Window) removeObserver(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, o := range w.observers {
		if o.id == id {
			w.observers = append(w.observers[:i], w.observers[i+1:]...)
			return
		}
	}
}
