package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/i18n"
	"kulhadcafe.in/site/internal/mailrelay"
	mw "kulhadcafe.in/site/internal/middleware"
	"kulhadcafe.in/site/internal/observability"
)

// Contact form states shown to the visitor.
const (
	ContactIdle    = ""
	ContactSuccess = "success"
	ContactError   = "error"
	ContactInvalid = "invalid"
)

const (
	maxNameLength  = 100
	maxEmailLength = 254
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Sender relays a contact message.
type Sender interface {
	Send(ctx context.Context, msg mailrelay.Message) (mailrelay.Result, error)
}

// ContactForm is the contact form state, rendered both into the page and as
// the htmx status fragment.
type ContactForm struct {
	Status    string
	Reference string
	Values    mailrelay.Message
	// Errors maps field names to translation keys.
	Errors    map[string]string
	CSRFToken string
	Lang      string

	bundle *i18n.Bundle
}

// T translates key into the form language.
func (f ContactForm) T(key string) string {
	if f.bundle == nil {
		return key
	}
	return f.bundle.T(f.Lang, key)
}

// FieldError returns the translated error for field, if any.
func (f ContactForm) FieldError(field string) string {
	if key, ok := f.Errors[field]; ok {
		return f.T(key)
	}
	return ""
}

// ContactHandler validates and relays contact form submissions.
type ContactHandler struct {
	Sender     Sender
	Renderer   *Renderer
	Bundle     *i18n.Bundle
	MaxMessage int
	Logger     *zap.Logger
}

// ServeHTTP answers htmx posts with the status fragment and plain form posts
// with a redirect back to the contact section.
func (h *ContactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.Logger
	if logger == nil {
		logger = observability.FromContext(ctx)
	}
	lang := mw.Lang(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	msg := mailrelay.Message{
		Name:    clean(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Message: cleanMultiline(r.PostFormValue("message")),
	}
	form := ContactForm{
		Values:    msg,
		CSRFToken: mw.CSRFToken(ctx),
		Lang:      lang,
		bundle:    h.Bundle,
	}

	if errs := validateContact(msg, h.maxMessage()); len(errs) > 0 {
		form.Status = ContactInvalid
		form.Errors = errs
		h.respond(w, r, form)
		return
	}

	res, err := h.Sender.Send(ctx, msg)
	if err != nil {
		var se *mailrelay.StatusError
		fields := []zap.Field{zap.Error(err), zap.Int("attempts", res.Attempts)}
		if errors.As(err, &se) {
			fields = append(fields, zap.Int("relay_status", se.Status))
		}
		logger.Error("contact relay failed", fields...)
		form.Status = ContactError
		h.respond(w, r, form)
		return
	}

	form.Status = ContactSuccess
	form.Reference = ulid.Make().String()
	form.Values = mailrelay.Message{}
	logger.Info("contact message relayed",
		zap.String("reference", form.Reference),
		zap.Bool("dry_run", res.DryRun),
		zap.Int("attempts", res.Attempts),
	)
	h.respond(w, r, form)
}

func (h *ContactHandler) respond(w http.ResponseWriter, r *http.Request, form ContactForm) {
	if !mw.IsHTMX(r.Context()) {
		target := "/?contact=" + form.Status
		if form.Reference != "" {
			target += "&ref=" + form.Reference
		}
		http.Redirect(w, r, target+"#contact", http.StatusSeeOther)
		return
	}
	status := http.StatusOK
	if form.Status == ContactInvalid {
		status = http.StatusUnprocessableEntity
	}
	if err := h.Renderer.Render(w, status, "contact_form", form); err != nil {
		observability.FromContext(r.Context()).Error("render contact form", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (h *ContactHandler) maxMessage() int {
	if h.MaxMessage > 0 {
		return h.MaxMessage
	}
	return 2000
}

// validateContact returns translation keys for every invalid field.
func validateContact(msg mailrelay.Message, maxMessage int) map[string]string {
	errs := map[string]string{}
	if msg.Name == "" || utf8.RuneCountInString(msg.Name) > maxNameLength {
		errs["name"] = "contact.error.name"
	}
	if !validEmail(msg.Email) {
		errs["email"] = "contact.error.email"
	}
	if msg.Phone != "" && !validPhone(msg.Phone) {
		errs["phone"] = "contact.error.phone"
	}
	switch n := utf8.RuneCountInString(msg.Message); {
	case n == 0:
		errs["message"] = "contact.error.message"
	case n > maxMessage:
		errs["message"] = "contact.error.message_long"
	}
	return errs
}

func validEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, _ := strings.Cut(s, "@")
	return strings.Contains(domain, ".")
}

func validPhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// clean strips markup and collapses whitespace in a single-line field.
func clean(s string) string {
	return strings.Join(strings.Fields(content.PlainText(s)), " ")
}

// cleanMultiline strips markup and trims each line of a message.
func cleanMultiline(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(content.PlainText(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
