package nav

import (
	"errors"
	"fmt"
	"strings"
)

// Item represents a navigation entry pointing at a section of the page.
type Item struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"` // e.g. "#about"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Label  string
	Href   string
	Anchor string
	Index  int
	Active bool
}

// ErrInvalidItem is returned by Validate for malformed navigation lists.
var ErrInvalidItem = errors.New("nav: invalid item")

// Main is the default navigation, in page order.
var Main = []Item{
	{Label: "Home", Href: "#home"},
	{Label: "About", Href: "#about"},
	{Label: "Founders", Href: "#founders"},
	{Label: "Journey", Href: "#timeline"},
	{Label: "Franchise", Href: "#franchise"},
	{Label: "Gallery", Href: "#gallery"},
	{Label: "Contact", Href: "#contact"},
}

// Build renders navigation items, marking the one whose anchor matches
// currentAnchor ("#about" or "about") as active.
func Build(items []Item, currentAnchor string) []RenderedItem {
	current := Anchor(currentAnchor)
	out := make([]RenderedItem, 0, len(items))
	for i, it := range items {
		anchor := Anchor(it.Href)
		out = append(out, RenderedItem{
			Label:  it.Label,
			Href:   it.Href,
			Anchor: anchor,
			Index:  i,
			Active: current != "" && anchor == current,
		})
	}
	return out
}

// Anchor returns the fragment identifier of href without the leading '#'.
func Anchor(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '#'); i != -1 {
		href = href[i+1:]
	}
	return href
}

// Clone returns a copy of items so callers cannot mutate a shared list.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Validate checks that every item has a label and an in-page anchor, and that
// neither repeats.
func Validate(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty navigation", ErrInvalidItem)
	}
	labels := map[string]struct{}{}
	anchors := map[string]struct{}{}
	for i, it := range items {
		label := strings.TrimSpace(it.Label)
		if label == "" {
			return fmt.Errorf("%w: item %d has no label", ErrInvalidItem, i)
		}
		if !strings.HasPrefix(strings.TrimSpace(it.Href), "#") || !isAnchor(Anchor(it.Href)) {
			return fmt.Errorf("%w: %q href %q is not an in-page anchor", ErrInvalidItem, label, it.Href)
		}
		key := strings.ToLower(label)
		if _, dup := labels[key]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidItem, label)
		}
		labels[key] = struct{}{}
		anchor := Anchor(it.Href)
		if _, dup := anchors[anchor]; dup {
			return fmt.Errorf("%w: duplicate anchor %q", ErrInvalidItem, it.Href)
		}
		anchors[anchor] = struct{}{}
	}
	return nil
}

func isAnchor(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
