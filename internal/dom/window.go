//go:build js && wasm

// Package dom adapts the browser window to the navigation components when the
// navigation runs in the page as WebAssembly.
package dom

import (
	"math"
	"syscall/js"
	"time"

	"kulhadcafe.in/site/internal/viewport"
)

// Window reads scroll and intersection signals from the global window.
type Window struct {
	win js.Value
	doc js.Value
}

// NewWindow returns the adapter for the current page.
func NewWindow() *Window {
	win := js.Global()
	return &Window{win: win, doc: win.Get("document")}
}

// ScrollY implements viewport.ScrollSource.
func (w *Window) ScrollY() int {
	return int(math.Round(w.win.Get("scrollY").Float()))
}

// SubscribeScroll registers a passive scroll listener.
func (w *Window) SubscribeScroll(fn func(y int)) (viewport.Subscription, error) {
	if !w.win.Truthy() || w.win.Get("addEventListener").IsUndefined() {
		return nil, viewport.ErrUnsupported
	}
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn(w.ScrollY())
		return nil
	})
	opts := map[string]any{"passive": true}
	w.win.Call("addEventListener", "scroll", cb, opts)
	return viewport.SubscriptionFunc(func() {
		w.win.Call("removeEventListener", "scroll", cb, opts)
		cb.Release()
	}), nil
}

// ObserveIntersection watches target with an IntersectionObserver. Browsers
// without one, or pages without the target, report ErrUnsupported.
func (w *Window) ObserveIntersection(target string, threshold float64, fn func(bool)) (viewport.Subscription, error) {
	ctor := w.win.Get("IntersectionObserver")
	if ctor.IsUndefined() {
		return nil, viewport.ErrUnsupported
	}
	el := w.doc.Call("querySelector", target)
	if el.IsNull() {
		return nil, viewport.ErrUnsupported
	}
	cb := js.FuncOf(func(_ js.Value, args []js.Value) any {
		entries := args[0]
		for i := 0; i < entries.Length(); i++ {
			fn(entries.Index(i).Get("isIntersecting").Bool())
		}
		return nil
	})
	observer := ctor.New(cb, map[string]any{"threshold": threshold})
	observer.Call("observe", el)
	return viewport.SubscriptionFunc(func() {
		observer.Call("disconnect")
		cb.Release()
	}), nil
}

// AfterFunc schedules fn with the Go runtime timer, which the wasm runtime
// backs with setTimeout.
func (w *Window) AfterFunc(d time.Duration, fn func()) viewport.Timer {
	return time.AfterFunc(d, fn)
}

// BodyLock toggles page scrolling through a class on <body>.
type BodyLock struct {
	Class string
}

// SetScrollLocked implements overlay.ScrollLock.
func (l BodyLock) SetScrollLocked(locked bool) {
	body := js.Global().Get("document").Get("body")
	if body.IsNull() || body.IsUndefined() {
		return
	}
	class := l.Class
	if class == "" {
		class = "scroll-locked"
	}
	body.Get("classList").Call("toggle", class, locked)
}
