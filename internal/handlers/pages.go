package handlers

import (
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/i18n"
	mw "kulhadcafe.in/site/internal/middleware"
	"kulhadcafe.in/site/internal/observability"
	"kulhadcafe.in/site/internal/particles"
)

// SiteSource returns the live site document.
type SiteSource interface {
	Site() *content.Site
}

// Pages serves the landing page.
type Pages struct {
	Content   SiteSource
	Bundle    *i18n.Bundle
	Renderer  *Renderer
	Particles []particles.Particle
}

// Home renders the landing page. A redirect from a plain contact form post
// carries the outcome in the contact and ref query parameters.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(ctx)
	form := ContactForm{
		Status:    contactStatusFromQuery(r.URL.Query().Get("contact")),
		CSRFToken: mw.CSRFToken(ctx),
		Lang:      lang,
		bundle:    p.Bundle,
	}
	if form.Status == ContactSuccess {
		if id, err := ulid.ParseStrict(r.URL.Query().Get("ref")); err == nil {
			form.Reference = id.String()
		}
	}

	vm, err := BuildHomeData(ctx, p.Content.Site(), p.Bundle, HomeInput{
		Lang:      lang,
		Particles: p.Particles,
		Contact:   form,
	})
	if err == nil {
		err = p.Renderer.Render(w, http.StatusOK, "base", vm)
	}
	if err != nil {
		observability.FromContext(ctx).Error("render home", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func contactStatusFromQuery(v string) string {
	switch v {
	case ContactSuccess, ContactError, ContactInvalid:
		return v
	default:
		return ContactIdle
	}
}
