package seo

import (
	"encoding/json"
	"html/template"
	"strings"
)

// JSON marshals v for a <script type="application/ld+json"> block. It returns
// an empty string on error.
func JSON(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(b)
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// Cafe describes the business for a CafeOrCoffeeShop schema.
type Cafe struct {
	Name        string
	Description string
	URL         string
	Logo        string
	Image       string
	Telephone   []string
	Email       string
	Address     string
	Slogan      string
	Founders    []string
	FoundedYear string
}

// CafeOrCoffeeShop returns the schema.org payload for c.
func CafeOrCoffeeShop(c Cafe) map[string]any {
	m := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "CafeOrCoffeeShop",
		"name":          c.Name,
		"servesCuisine": "Indian",
	}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.URL != "" {
		m["url"] = c.URL
	}
	if c.Logo != "" {
		m["logo"] = absolute(c.URL, c.Logo)
	}
	if c.Image != "" {
		m["image"] = absolute(c.URL, c.Image)
	}
	if len(c.Telephone) > 0 {
		m["telephone"] = c.Telephone[0]
	}
	if c.Email != "" {
		m["email"] = c.Email
	}
	if c.Address != "" {
		m["address"] = map[string]any{
			"@type":          "PostalAddress",
			"streetAddress":  c.Address,
			"addressCountry": "IN",
		}
	}
	if c.Slogan != "" {
		m["slogan"] = c.Slogan
	}
	if c.FoundedYear != "" {
		m["foundingDate"] = c.FoundedYear
	}
	if len(c.Founders) > 0 {
		people := make([]map[string]any, 0, len(c.Founders))
		for _, name := range c.Founders {
			people = append(people, map[string]any{"@type": "Person", "name": name})
		}
		m["founder"] = people
	}
	return m
}

func absolute(base, path string) string {
	if base == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
