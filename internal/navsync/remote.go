package navsync

import (
	"sync"

	"kulhadcafe.in/site/internal/viewport"
)

// remote is a viewport.Platform fed by frames from the browser shim.
type remote struct {
	viewport.Clock
	intersection bool

	mu         sync.Mutex
	scrollY    int
	seq        int
	scrollFns  map[int]func(int)
	observeFns map[int]func(bool)
}

func newRemote(clock viewport.Clock, scrollY int, intersection bool) *remote {
	return &remote{
		Clock:        clock,
		intersection: intersection,
		scrollY:      scrollY,
		scrollFns:    map[int]func(int){},
		observeFns:   map[int]func(bool){},
	}
}

func (r *remote) SubscribeScroll(fn func(int)) (viewport.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := r.seq
	r.scrollFns[id] = fn
	return viewport.SubscriptionFunc(func() {
		r.mu.Lock()
		delete(r.scrollFns, id)
		r.mu.Unlock()
	}), nil
}

func (r *remote) ScrollY() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scrollY
}

// ObserveIntersection only supports the region the shim observes; the shim
// reports in hello whether the browser has an IntersectionObserver at all.
func (r *remote) ObserveIntersection(_ string, _ float64, fn func(bool)) (viewport.Subscription, error) {
	if !r.intersection {
		return nil, viewport.ErrUnsupported
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := r.seq
	r.observeFns[id] = fn
	return viewport.SubscriptionFunc(func() {
		r.mu.Lock()
		delete(r.observeFns, id)
		r.mu.Unlock()
	}), nil
}

func (r *remote) scroll(y int) {
	r.mu.Lock()
	r.scrollY = y
	fns := make([]func(int), 0, len(r.scrollFns))
	for _, fn := range r.scrollFns {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(y)
	}
}

func (r *remote) intersect(v bool) {
	r.mu.Lock()
	fns := make([]func(bool), 0, len(r.observeFns))
	for _, fn := range r.observeFns {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
