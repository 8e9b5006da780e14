package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/config"
	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/handlers"
	"kulhadcafe.in/site/internal/i18n"
	"kulhadcafe.in/site/internal/mailrelay"
	mw "kulhadcafe.in/site/internal/middleware"
	"kulhadcafe.in/site/internal/navsync"
	"kulhadcafe.in/site/internal/observability"
	"kulhadcafe.in/site/internal/particles"
	"kulhadcafe.in/site/public"
	"kulhadcafe.in/site/templates"
)

// templatesDir is reparsed from disk in dev mode when it exists, so template
// edits show without a rebuild.
var templatesDir = "templates"

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *content.Store
	bundle   *i18n.Bundle
	renderer *handlers.Renderer
	relay    handlers.Sender
	nav      *navsync.Handler
	limiter  *mw.RateLimiter
	assets   fs.FS
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := content.NewStore(cfg.Content.File, logger.Named("content"))
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	if cfg.Content.Watch && cfg.Content.File != "" {
		if err := store.Watch(ctx); err != nil {
			logger.Warn("content watch disabled", zap.Error(err))
		}
	}

	bundle, err := i18n.Embedded(cfg.Site.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	var tmplFS fs.FS = templates.FS
	if cfg.Site.Dev {
		if st, err := os.Stat(templatesDir); err == nil && st.IsDir() {
			tmplFS = os.DirFS(templatesDir)
		}
	}
	renderer, err := handlers.NewRenderer(tmplFS, cfg.Site.Dev)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	relay := mailrelay.NewClient(mailrelay.Config{
		Endpoint:    cfg.Relay.Endpoint,
		ServiceID:   cfg.Relay.ServiceID,
		TemplateID:  cfg.Relay.TemplateID,
		PublicKey:   cfg.Relay.PublicKey,
		PrivateKey:  cfg.Relay.PrivateKey,
		Timeout:     cfg.Relay.Timeout,
		MaxRetries:  cfg.Relay.MaxRetries,
		AllowDryRun: true,
	}, logger.Named("mailrelay"))
	if !relay.Configured() {
		logger.Warn("email relay credentials missing; contact messages are logged, not sent")
	}

	navOpts := []navsync.Option{navsync.WithLogger(logger.Named("navsync"))}
	if len(cfg.Security.AllowedOrigins) > 0 {
		navOpts = append(navOpts, navsync.WithOriginCheck(originAllowed(cfg.Security.AllowedOrigins)))
	}
	navHandler := navsync.NewHandler(store.Site().Nav, navOpts...)
	store.OnReload(func(s *content.Site) { navHandler.SetLinks(s.Nav) })

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bundle:   bundle,
		renderer: renderer,
		relay:    relay,
		nav:      navHandler,
		limiter:  mw.NewRateLimiter(cfg.Contact.RatePerMinute, cfg.Contact.Burst),
		assets:   public.Assets(),
	}, nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.Trace)
	r.Use(observability.Recoverer(a.logger))
	r.Use(observability.RequestLogger(a.logger))
	r.Use(mw.HTMX)
	if len(a.cfg.Security.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.Security.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Accept", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", handlers.Healthz)
	r.Handle("/assets/*", http.StripPrefix("/assets", mw.AssetsWithCache(a.assets, "")))
	r.Get("/ws/nav", a.nav.ServeHTTP)

	pages := &handlers.Pages{
		Content:   a.store,
		Bundle:    a.bundle,
		Renderer:  a.renderer,
		Particles: particles.Generate(a.cfg.Site.ParticleCount, a.cfg.Site.ParticleSeed),
	}
	contact := &handlers.ContactHandler{
		Sender:     a.relay,
		Renderer:   a.renderer,
		Bundle:     a.bundle,
		MaxMessage: a.cfg.Contact.MaxMessageLength,
	}
	r.Group(func(r chi.Router) {
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF(a.cfg.Security.SecureCookies))
		r.Get("/", pages.Home)
		r.With(a.limiter.Middleware).Post("/contact", contact.ServeHTTP)
	})
	return r
}

// originAllowed accepts same-origin pages and the configured origins.
func originAllowed(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
