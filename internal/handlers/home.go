package handlers

import (
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/format"
	"kulhadcafe.in/site/internal/i18n"
	"kulhadcafe.in/site/internal/nav"
	"kulhadcafe.in/site/internal/navbar"
	"kulhadcafe.in/site/internal/particles"
	"kulhadcafe.in/site/internal/seo"
	"kulhadcafe.in/site/internal/views"
)

// HomeData is the view model for the landing page.
type HomeData struct {
	Lang      string
	Languages []string
	Site      *content.Site
	SEO       seo.Meta
	JSONLD    []template.JS

	// Navigation components rendered server-side in their initial state.
	Navbar  template.HTML
	Overlay template.HTML

	Particles  []particles.Particle
	Models     []ModelView
	Gallery    []GalleryItem
	QuickLinks []nav.RenderedItem

	Contact ContactForm

	bundle *i18n.Bundle
}

// T translates key into the page language.
func (d HomeData) T(key string) string {
	return d.bundle.T(d.Lang, key)
}

// ModelView is a franchise model with its display price.
type ModelView struct {
	content.Model
	Price string
	Lakh  string
}

// GalleryItem is an image with the id its lightbox is addressed by.
type GalleryItem struct {
	content.GalleryImage
	ID string
}

// HomeInput carries the per-request parts of the home view model.
type HomeInput struct {
	Lang      string
	Particles []particles.Particle
	Contact   ContactForm
}

// BuildHomeData constructs the view model for the landing page.
func BuildHomeData(ctx context.Context, site *content.Site, bundle *i18n.Bundle, in HomeInput) (HomeData, error) {
	lang := in.Lang
	if lang == "" {
		lang = bundle.Fallback()
	}
	d := HomeData{
		Lang:      lang,
		Languages: bundle.Supported(),
		Site:      site,
		Particles: in.Particles,
		Contact:   in.Contact,
		bundle:    bundle,
	}

	props := views.NavProps{
		Labels: views.Labels{
			Brand:     site.Name,
			Menu:      d.T("nav.menu"),
			OpenMenu:  d.T("nav.open_menu"),
			CloseMenu: d.T("nav.close_menu"),
		},
		Logo:  site.Logo,
		Links: nav.Build(site.Nav, ""),
		State: navbar.State{Visible: true},
	}
	var err error
	if d.Navbar, err = views.HTML(ctx, views.Navbar(props)); err != nil {
		return HomeData{}, fmt.Errorf("render navbar: %w", err)
	}
	if d.Overlay, err = views.HTML(ctx, views.Overlay(props)); err != nil {
		return HomeData{}, fmt.Errorf("render overlay: %w", err)
	}

	for _, m := range site.Franchise.Models {
		mv := ModelView{Model: m}
		if !m.CustomQuote() {
			mv.Price = format.INR(m.Investment)
			mv.Lakh = format.Lakh(m.Investment)
		}
		d.Models = append(d.Models, mv)
	}
	for i, img := range site.Gallery.Images {
		d.Gallery = append(d.Gallery, GalleryItem{GalleryImage: img, ID: "photo-" + strconv.Itoa(i+1)})
	}
	d.QuickLinks = quickLinks(site)

	d.SEO = seo.Meta{
		Title:       site.Name + " | " + site.Tagline,
		Description: site.Summary,
		Canonical:   site.URL,
		OG: seo.OpenGraph{
			Title:       site.Name,
			Description: site.Summary,
			Image:       site.Hero.Image.Src,
			Type:        "website",
			Locale:      ogLocale(lang),
		},
		Twitter: seo.Twitter{Card: "summary_large_image", Image: site.Hero.Image.Src},
	}
	founders := make([]string, 0, len(site.Founders.People))
	for _, p := range site.Founders.People {
		founders = append(founders, p.Name)
	}
	d.JSONLD = []template.JS{
		seo.JSON(seo.WebSite(site.Name, site.URL)),
		seo.JSON(seo.CafeOrCoffeeShop(seo.Cafe{
			Name:        site.Name,
			Description: site.Description,
			URL:         site.URL,
			Logo:        site.Logo,
			Image:       site.Hero.Image.Src,
			Telephone:   site.Contact.Phones,
			Email:       site.Contact.Email,
			Address:     site.Contact.Address,
			Slogan:      site.Tagline,
			Founders:    founders,
			FoundedYear: site.Founded,
		})),
	}
	return d, nil
}

// quickLinks resolves the footer anchors against the navigation labels.
func quickLinks(site *content.Site) []nav.RenderedItem {
	labels := make(map[string]string, len(site.Nav))
	for _, it := range site.Nav {
		labels[nav.Anchor(it.Href)] = it.Label
	}
	out := make([]nav.RenderedItem, 0, len(site.Footer.QuickLinks))
	for i, href := range site.Footer.QuickLinks {
		anchor := nav.Anchor(href)
		label, ok := labels[anchor]
		if !ok {
			continue
		}
		out = append(out, nav.RenderedItem{Label: label, Href: "#" + anchor, Anchor: anchor, Index: i})
	}
	return out
}

func ogLocale(lang string) string {
	switch strings.ToLower(lang) {
	case "hi":
		return "hi_IN"
	default:
		return "en_IN"
	}
}
