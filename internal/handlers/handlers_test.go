package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/i18n"
	"kulhadcafe.in/site/internal/mailrelay"
	mw "kulhadcafe.in/site/internal/middleware"
	"kulhadcafe.in/site/internal/particles"
	"kulhadcafe.in/site/internal/testutil"
	"kulhadcafe.in/site/templates"
)

type staticSite struct{ site *content.Site }

func (s staticSite) Site() *content.Site { return s.site }

type fakeSender struct {
	mu   sync.Mutex
	sent []mailrelay.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailrelay.Message) (mailrelay.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mailrelay.Result{Attempts: 3}, f.err
	}
	f.sent = append(f.sent, msg)
	return mailrelay.Result{Attempts: 1}, nil
}

func fixtures(t *testing.T) (*content.Site, *i18n.Bundle, *Renderer) {
	t.Helper()
	site, err := content.Default()
	require.NoError(t, err)
	bundle, err := i18n.Default()
	require.NoError(t, err)
	renderer, err := NewRenderer(templates.FS, false)
	require.NoError(t, err)
	return site, bundle, renderer
}

func homeServer(t *testing.T) http.Handler {
	t.Helper()
	site, bundle, renderer := fixtures(t)
	pages := &Pages{
		Content:   staticSite{site},
		Bundle:    bundle,
		Renderer:  renderer,
		Particles: particles.Generate(particles.DefaultCount, 1),
	}
	return mw.Locale(bundle)(mw.CSRF(false)(http.HandlerFunc(pages.Home)))
}

func getHome(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec, testutil.ParseHTML(t, rec.Body.Bytes())
}

func TestHomeRendersEverySection(t *testing.T) {
	_, doc := getHome(t, homeServer(t), "/")

	require.Equal(t, content.SectionIDs, testutil.Attrs(doc.Find("main > section"), "id"))

	require.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	require.Contains(t, doc.Find("title").Text(), "Kulhad Cafeteria")
	require.NotEmpty(t, doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	require.Equal(t, particles.DefaultCount, doc.Find(".particles .particle").Length())
	require.Equal(t, 2, doc.Find("#founders .founder").Length())
	require.Equal(t, 8, doc.Find("#gallery .gallery__item").Length())
	require.Equal(t, 1, doc.Find("#photo-3.lightbox").Length())
}

func TestHomeRendersNavigationInitialState(t *testing.T) {
	_, doc := getHome(t, homeServer(t), "/")

	bar := doc.Find("header[data-nav-bar]")
	require.True(t, bar.HasClass("navbar--visible"))
	require.Equal(t, "Menu", strings.TrimSpace(bar.Find(".navbar__trigger-label").Text()))

	ov := doc.Find("#nav-overlay")
	require.False(t, ov.HasClass("overlay--open"))
	links := ov.Find("a[data-nav-link]")
	require.Equal(t, 7, links.Length())
	require.Equal(t, "#contact", links.Last().AttrOr("href", ""))

	require.Equal(t, []string{"#home", "#about", "#franchise", "#gallery", "#contact"},
		testutil.Attrs(doc.Find(".footer__links a"), "href"))
}

func TestHomeFranchisePrices(t *testing.T) {
	_, doc := getHome(t, homeServer(t), "/")

	models := doc.Find("#franchise .model")
	require.Equal(t, 3, models.Length())
	require.Equal(t, "₹5,89,999", models.Eq(0).Find(".model__price strong").Text())
	require.Equal(t, "₹6,50,000", models.Eq(1).Find(".model__price strong").Text())
	require.Equal(t, "Custom Quote", models.Eq(2).Find(".model__price strong").Text())
	require.Equal(t, 1, doc.Find("#franchise .model--popular").Length())
}

func TestHomeStructuredData(t *testing.T) {
	_, doc := getHome(t, homeServer(t), "/")

	types := map[string]bool{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(s.Text()), &payload))
		types[payload["@type"].(string)] = true
	})
	require.True(t, types["WebSite"])
	require.True(t, types["CafeOrCoffeeShop"])
}

func TestHomeCarriesCSRFToken(t *testing.T) {
	rec, doc := getHome(t, homeServer(t), "/")

	var cookie string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)
	require.Equal(t, cookie, doc.Find(`#contact-form input[name="csrf_token"]`).AttrOr("value", ""))
}

func TestHomeTranslates(t *testing.T) {
	_, doc := getHome(t, homeServer(t), "/?lang=hi")
	require.Equal(t, "hi", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "मेनू", strings.TrimSpace(doc.Find(".navbar__trigger-label").Text()))
	require.Equal(t, "hi_IN", doc.Find(`meta[property="og:locale"]`).AttrOr("content", ""))
}

func TestHomeShowsRedirectedContactStatus(t *testing.T) {
	h := homeServer(t)
	ref := ulid.Make().String()

	_, doc := getHome(t, h, "/?contact=success&ref="+ref)
	form := doc.Find("#contact-form")
	require.Equal(t, "success", form.AttrOr("data-status", ""))
	require.Equal(t, ref, form.Find(".contact__status code").Text())

	_, doc = getHome(t, h, "/?contact=bogus&ref=nope")
	require.Empty(t, doc.Find("#contact-form").AttrOr("data-status", "x"))
	require.Zero(t, doc.Find(".contact__status").Length())
}

func contactRequest(values url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ctx := mw.WithHTMX(req.Context(), htmx)
	ctx = mw.WithLang(ctx, "en")
	return req.WithContext(ctx)
}

func validForm() url.Values {
	return url.Values{
		"name":    {"  Asha   <b>Verma</b> "},
		"email":   {"asha@example.com"},
		"phone":   {"+91 98765-43210"},
		"message": {"Interested in the <script>alert(1)</script>premium setup.\r\nCall me."},
	}
}

func newContact(t *testing.T, sender Sender) *ContactHandler {
	t.Helper()
	_, bundle, renderer := fixtures(t)
	return &ContactHandler{Sender: sender, Renderer: renderer, Bundle: bundle, MaxMessage: 200}
}

func TestContactRelaysSanitisedMessage(t *testing.T) {
	sender := &fakeSender{}
	h := newContact(t, sender)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, contactRequest(validForm(), true))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "Asha Verma", msg.Name)
	require.Equal(t, "asha@example.com", msg.Email)
	require.Equal(t, "+91 98765-43210", msg.Phone)
	require.Equal(t, "Interested in the premium setup.\nCall me.", msg.Message)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	form := doc.Find("#contact-form")
	require.Equal(t, "success", form.AttrOr("data-status", ""))
	ref := form.Find(".contact__status code").Text()
	_, err := ulid.ParseStrict(ref)
	require.NoError(t, err)
	require.Empty(t, form.Find(`input[name="name"]`).AttrOr("value", "x"), "fields reset after success")
}

func TestContactRejectsInvalidFields(t *testing.T) {
	sender := &fakeSender{}
	h := newContact(t, sender)

	values := url.Values{
		"name":    {"<i></i>"},
		"email":   {"not-an-email"},
		"phone":   {"12ab"},
		"message": {strings.Repeat("x", 201)},
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, contactRequest(values, true))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, sender.sent)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	fields := map[string]string{}
	doc.Find(".field-error").Each(func(_ int, s *goquery.Selection) {
		fields[s.AttrOr("data-field", "")] = s.Text()
	})
	require.Equal(t, "Please enter your name.", fields["name"])
	require.Equal(t, "Please enter a valid email address.", fields["email"])
	require.Equal(t, "Please enter a valid phone number.", fields["phone"])
	require.Equal(t, "Your message is too long.", fields["message"])
	require.Equal(t, "not-an-email", doc.Find(`input[name="email"]`).AttrOr("value", ""), "input is kept")
}

func TestContactRelayFailure(t *testing.T) {
	h := newContact(t, &fakeSender{err: &mailrelay.StatusError{Status: 503, Body: "down"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, contactRequest(validForm(), true))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "error", doc.Find("#contact-form").AttrOr("data-status", ""))
	require.Equal(t, "Asha Verma", doc.Find(`input[name="name"]`).AttrOr("value", ""))
}

func TestContactWithoutHTMXRedirects(t *testing.T) {
	h := newContact(t, &fakeSender{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, contactRequest(validForm(), false))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/", loc.Path)
	require.Equal(t, "contact", loc.Fragment)
	require.Equal(t, "success", loc.Query().Get("contact"))
	require.Len(t, loc.Query().Get("ref"), 26)

	h = newContact(t, &fakeSender{err: errors.New("boom")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, contactRequest(validForm(), false))
	require.Equal(t, "/?contact=error#contact", rec.Header().Get("Location"))
}

func TestValidPhone(t *testing.T) {
	for in, want := range map[string]bool{
		"7667340235":       true,
		"+91 76673 40235":  true,
		"(0172) 555-1234":  true,
		"12345":            false,
		"+91+7667340235":   false,
		"7667340235 ext 2": false,
	} {
		require.Equal(t, want, validPhone(in), in)
	}
}

func TestValidEmail(t *testing.T) {
	require.True(t, validEmail("officialkulhad@gmail.com"))
	require.False(t, validEmail("Asha <asha@example.com>"))
	require.False(t, validEmail("asha@localhost"))
	require.False(t, validEmail(""))
}

func TestRendererFailsWithoutTemplates(t *testing.T) {
	_, err := NewRenderer(fstest.MapFS{}, false)
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
