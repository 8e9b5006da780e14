// Package views renders the navigation bar and overlay menu as templ
// components. The page layout embeds them through HTML.
package views

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"kulhadcafe.in/site/internal/nav"
	"kulhadcafe.in/site/internal/navbar"
	"kulhadcafe.in/site/internal/overlay"
)

// Labels are the translated strings the navigation needs.
type Labels struct {
	Brand     string
	Menu      string
	OpenMenu  string
	CloseMenu string
}

// NavProps is the view model shared by Navbar and Overlay.
type NavProps struct {
	Labels Labels
	Logo   string
	Links  []nav.RenderedItem
	State  navbar.State
}

// BarClass returns the classes of the fixed header for state.
func BarClass(s navbar.State) string {
	return templ.Classes(
		"navbar",
		templ.KV("navbar--visible", s.Visible),
		templ.KV("navbar--hidden", !s.Visible),
		templ.KV("navbar--menu-open", s.MenuOpen),
	).String()
}

// OverlayClass returns the classes of the overlay for state.
func OverlayClass(s navbar.State) string {
	return templ.Classes(
		"overlay",
		templ.KV("overlay--open", s.MenuOpen),
	).String()
}

// Navbar renders the fixed header with the brand and the menu trigger.
func Navbar(p NavProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<header class="%s" data-nav-bar data-visible="%t">`,
			templ.EscapeString(BarClass(p.State)), p.State.Visible)
		b.WriteString(`<div class="navbar__inner">`)
		b.WriteString(`<a class="navbar__brand" href="#home">`)
		if p.Logo != "" {
			fmt.Fprintf(&b, `<img src="%s" alt="%s" width="44" height="44">`,
				templ.EscapeString(p.Logo), templ.EscapeString(p.Labels.Brand))
		}
		fmt.Fprintf(&b, `<span>%s</span></a>`, templ.EscapeString(p.Labels.Brand))
		fmt.Fprintf(&b, `<button type="button" class="navbar__trigger" data-nav-trigger aria-controls="nav-overlay" aria-expanded="%t" aria-label="%s">`,
			p.State.MenuOpen, templ.EscapeString(p.Labels.OpenMenu))
		fmt.Fprintf(&b, `<span class="navbar__trigger-label">%s</span><span class="navbar__bars" aria-hidden="true"></span></button>`,
			templ.EscapeString(p.Labels.Menu))
		b.WriteString(`</div></header>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Overlay renders the full-screen menu. Each link carries its open and close
// stagger delays as CSS custom properties.
func Overlay(p NavProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		reveal := overlay.RevealSchedule(len(p.Links), true)
		hide := overlay.RevealSchedule(len(p.Links), false)

		var b strings.Builder
		fmt.Fprintf(&b, `<div id="nav-overlay" class="%s" data-nav-overlay role="dialog" aria-modal="true" aria-hidden="%t">`,
			templ.EscapeString(OverlayClass(p.State)), !p.State.MenuOpen)
		fmt.Fprintf(&b, `<button type="button" class="overlay__close" data-nav-close aria-label="%s">&times;</button>`,
			templ.EscapeString(p.Labels.CloseMenu))
		b.WriteString(`<nav class="overlay__nav"><ul>`)
		for i, link := range p.Links {
			cls := "overlay__link"
			if link.Active {
				cls += " overlay__link--active"
			}
			fmt.Fprintf(&b, `<li style="--reveal-delay:%s;--hide-delay:%s"><a class="%s" href="%s" data-nav-link="%d">%s</a></li>`,
				cssDuration(reveal[i]), cssDuration(hide[i]),
				cls, templ.EscapeString(link.Href), link.Index, templ.EscapeString(link.Label))
		}
		b.WriteString(`</ul></nav></div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// HTML renders c for embedding in an html/template layout.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	return templ.ToGoHTML(ctx, c)
}

func cssDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
