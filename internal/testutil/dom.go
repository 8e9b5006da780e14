// Package testutil holds HTML assertion helpers shared by handler and view tests.
package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
)

// ParseHTML parses a rendered page or fragment into a goquery document.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// RenderComponents renders components in order into one document.
func RenderComponents(t testing.TB, components ...templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	for _, c := range components {
		if err := c.Render(context.Background(), &buf); err != nil {
			t.Fatalf("render component: %v", err)
		}
	}
	return ParseHTML(t, buf.Bytes())
}

// Attrs collects attr from every element in sel, in document order. Elements
// without the attribute contribute an empty string.
func Attrs(sel *goquery.Selection, attr string) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return s.AttrOr(attr, "")
	})
}
