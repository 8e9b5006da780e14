// Package mailrelay forwards contact form submissions to the EmailJS REST API.
package mailrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	defaultTimeout  = 8 * time.Second
	metricNamespace = "kulhadcafe.in/site/mailrelay"
)

// ErrNotConfigured is returned by Send when credentials are missing and dry
// runs are not allowed.
var ErrNotConfigured = errors.New("mailrelay: not configured")

// Config holds the EmailJS account settings.
type Config struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
	MaxRetries int
	// AllowDryRun makes an unconfigured client log and accept messages.
	AllowDryRun bool
	// Meter records send outcomes; the global provider is used when nil.
	Meter metric.Meter
}

// Message is one contact form submission.
type Message struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Result describes how a message was handled.
type Result struct {
	DryRun   bool
	Attempts int
}

// StatusError is a non-2xx answer from the relay.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mailrelay: status %d: %s", e.Status, e.Body)
}

// Client sends messages through EmailJS.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	// newBackOff is replaced in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff

	sends   metric.Int64Counter
	latency metric.Float64Histogram
}

// NewClient builds a client. A nil logger discards output.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 300 * time.Millisecond
		b.MaxInterval = 3 * time.Second
		b.MaxElapsedTime = 3 * cfg.Timeout
		return b
	}

	meter := cfg.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	var err error
	if c.sends, err = meter.Int64Counter("mailrelay.sends",
		metric.WithDescription("Contact messages handled, by outcome"),
	); err != nil {
		logger.Warn("mailrelay: unable to register send counter", zap.Error(err))
	}
	if c.latency, err = meter.Float64Histogram("mailrelay.send.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Time to relay a message, retries included"),
	); err != nil {
		logger.Warn("mailrelay: unable to register latency metric", zap.Error(err))
	}
	return c
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.cfg.ServiceID != "" && c.cfg.TemplateID != "" && c.cfg.PublicKey != ""
}

type sendPayload struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"accessToken,omitempty"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// Send relays msg. Server errors and rate limiting are retried with
// exponential backoff; other client errors fail immediately.
func (c *Client) Send(ctx context.Context, msg Message) (Result, error) {
	if !c.Configured() {
		if !c.cfg.AllowDryRun {
			return Result{}, ErrNotConfigured
		}
		c.logger.Info("mail relay dry run",
			zap.String("from_name", msg.Name),
			zap.String("reply_to", msg.Email),
			zap.Int("message_length", len(msg.Message)),
		)
		c.record(ctx, "dry_run", 0)
		return Result{DryRun: true}, nil
	}

	phone := msg.Phone
	if phone == "" {
		phone = "Not provided"
	}
	body, err := json.Marshal(sendPayload{
		ServiceID:   c.cfg.ServiceID,
		TemplateID:  c.cfg.TemplateID,
		UserID:      c.cfg.PublicKey,
		AccessToken: c.cfg.PrivateKey,
		TemplateParams: templateParams{
			FromName:    msg.Name,
			ReplyTo:     msg.Email,
			PhoneNumber: phone,
			Message:     msg.Message,
		},
	})
	if err != nil {
		return Result{}, err
	}

	var attempts int
	op := func() error {
		attempts++
		return c.post(ctx, body)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.MaxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("mail relay attempt failed", zap.Int("attempt", attempts), zap.Duration("retry_in", wait), zap.Error(err))
	}
	start := time.Now()
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		c.record(ctx, "failed", time.Since(start))
		return Result{Attempts: attempts}, err
	}
	c.record(ctx, "sent", time.Since(start))
	return Result{Attempts: attempts}, nil
}

func (c *Client) record(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if c.sends != nil {
		c.sends.Add(ctx, 1, attrs)
	}
	if c.latency != nil && d > 0 {
		c.latency.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	}
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	statusErr := &StatusError{Status: resp.StatusCode, Body: drainError(resp.Body)}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return statusErr
	}
	return backoff.Permanent(statusErr)
}

func drainError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(data))
}
