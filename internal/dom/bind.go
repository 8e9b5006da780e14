//go:build js && wasm

package dom

import (
	"strconv"
	"syscall/js"

	"kulhadcafe.in/site/internal/navbar"
	"kulhadcafe.in/site/internal/overlay"
)

// Bind connects the rendered navigation markup to bar: clicks become
// triggers and activations, and state changes update classes and ARIA
// attributes. The returned func removes every listener.
func Bind(bar *navbar.Bar) (release func()) {
	doc := js.Global().Get("document")
	header := doc.Call("querySelector", "[data-nav-bar]")
	menu := doc.Call("querySelector", "[data-nav-overlay]")
	if header.IsNull() || menu.IsNull() {
		return func() {}
	}

	var funcs []js.Func
	listen := func(target js.Value, event string, fn func(ev js.Value)) {
		f := js.FuncOf(func(_ js.Value, args []js.Value) any {
			fn(args[0])
			return nil
		})
		target.Call("addEventListener", event, f)
		funcs = append(funcs, f)
		captured := f
		release = chain(release, func() { target.Call("removeEventListener", event, captured) })
	}

	listen(header, "click", func(ev js.Value) {
		if !ev.Get("target").Call("closest", "[data-nav-trigger]").IsNull() {
			bar.Trigger()
		}
	})
	listen(menu, "click", func(ev js.Value) {
		target := ev.Get("target")
		if link := target.Call("closest", "[data-nav-link]"); !link.IsNull() {
			ev.Call("preventDefault")
			i, err := strconv.Atoi(link.Get("dataset").Get("navLink").String())
			if err != nil {
				return
			}
			if href, ok := bar.Activate(overlay.LinkTarget(i)); ok {
				scrollTo(doc, href)
			}
			return
		}
		if !target.Call("closest", "[data-nav-close]").IsNull() {
			bar.Activate(overlay.CloseTarget())
			return
		}
		bar.Activate(overlay.SurfaceTarget())
	})
	listen(doc, "keydown", func(ev js.Value) {
		if ev.Get("key").String() == "Escape" {
			bar.Activate(overlay.CloseTarget())
		}
	})

	bar.OnChange(func(s navbar.State) { apply(header, menu, s) })
	apply(header, menu, bar.State())

	return chain(release, func() {
		for _, f := range funcs {
			f.Release()
		}
	})
}

func apply(header, menu js.Value, s navbar.State) {
	hc := header.Get("classList")
	hc.Call("toggle", "navbar--visible", s.Visible)
	hc.Call("toggle", "navbar--hidden", !s.Visible)
	hc.Call("toggle", "navbar--menu-open", s.MenuOpen)
	header.Get("dataset").Set("visible", strconv.FormatBool(s.Visible))
	if trigger := header.Call("querySelector", "[data-nav-trigger]"); !trigger.IsNull() {
		trigger.Call("setAttribute", "aria-expanded", strconv.FormatBool(s.MenuOpen))
	}
	menu.Get("classList").Call("toggle", "overlay--open", s.MenuOpen)
	menu.Call("setAttribute", "aria-hidden", strconv.FormatBool(!s.MenuOpen))
}

func scrollTo(doc js.Value, href string) {
	el := doc.Call("querySelector", href)
	if el.IsNull() {
		return
	}
	el.Call("scrollIntoView", map[string]any{"behavior": "smooth"})
	js.Global().Get("history").Call("replaceState", js.Null(), "", href)
}

func chain(a, b func()) func() {
	if a == nil {
		return b
	}
	return func() {
		a()
		b()
	}
}
