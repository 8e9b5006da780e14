package mailrelay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func testClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		Endpoint:   srv.URL,
		ServiceID:  "service_kulhad",
		TemplateID: "template_contact",
		PublicKey:  "pub-key",
		PrivateKey: "priv-key",
		MaxRetries: retries,
	}, nil)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestSendPostsEmailJSPayload(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}, 2)

	res, err := c.Send(context.Background(), Message{Name: "Asha", Email: "asha@example.com", Message: "Franchise in Pune?"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Attempts)
	require.False(t, res.DryRun)

	require.Equal(t, "service_kulhad", got["service_id"])
	require.Equal(t, "template_contact", got["template_id"])
	require.Equal(t, "pub-key", got["user_id"])
	require.Equal(t, "priv-key", got["accessToken"])
	params := got["template_params"].(map[string]any)
	require.Equal(t, "Asha", params["from_name"])
	require.Equal(t, "asha@example.com", params["reply_to"])
	require.Equal(t, "Not provided", params["phone_number"])
	require.Equal(t, "Franchise in Pune?", params["message"])
}

func TestSendRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}, 3)

	res, err := c.Send(context.Background(), Message{Name: "A", Email: "a@example.com", Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}, 2)

	_, err := c.Send(context.Background(), Message{Name: "A", Email: "a@example.com", Message: "hi"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.Status)
	require.EqualValues(t, 3, calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "The user ID is invalid", http.StatusBadRequest)
	}, 5)

	res, err := c.Send(context.Background(), Message{Name: "A", Email: "a@example.com", Message: "hi"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, "The user ID is invalid", statusErr.Body)
	require.Equal(t, 1, res.Attempts)
	require.EqualValues(t, 1, calls.Load())
}

func TestUnconfiguredClient(t *testing.T) {
	t.Parallel()

	strict := NewClient(Config{ServiceID: "svc"}, nil)
	require.False(t, strict.Configured())
	_, err := strict.Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNotConfigured)

	dry := NewClient(Config{AllowDryRun: true}, nil)
	res, err := dry.Send(context.Background(), Message{Name: "A"})
	require.NoError(t, err)
	require.True(t, res.DryRun)
}

// countingMeter tallies counter increments by their outcome attribute.
type countingMeter struct {
	noop.Meter
	mu       sync.Mutex
	outcomes map[string]int64
}

func (m *countingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return countingCounter{m: m}, nil
}

func (m *countingMeter) count(outcome string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[outcome]
}

type countingCounter struct {
	noop.Int64Counter
	m *countingMeter
}

func (c countingCounter) Add(_ context.Context, v int64, opts ...metric.AddOption) {
	set := metric.NewAddConfig(opts).Attributes()
	outcome, _ := set.Value("outcome")
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.outcomes[outcome.AsString()] += v
}

func TestSendRecordsOutcomes(t *testing.T) {
	t.Parallel()

	meter := &countingMeter{outcomes: map[string]int64{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(srv.Close)

	cfg := Config{
		Endpoint:   srv.URL,
		ServiceID:  "svc",
		TemplateID: "tpl",
		PublicKey:  "pub",
		Meter:      meter,
	}
	ok := NewClient(cfg, nil)
	_, err := ok.Send(context.Background(), Message{Name: "A", Email: "a@example.com", Message: "hi"})
	require.NoError(t, err)

	cfg.Endpoint = srv.URL + "?fail=1"
	failing := NewClient(cfg, nil)
	_, err = failing.Send(context.Background(), Message{Name: "A", Email: "a@example.com", Message: "hi"})
	require.Error(t, err)

	dry := NewClient(Config{AllowDryRun: true, Meter: meter}, nil)
	_, err = dry.Send(context.Background(), Message{Name: "A"})
	require.NoError(t, err)

	require.EqualValues(t, 1, meter.count("sent"))
	require.EqualValues(t, 1, meter.count("failed"))
	require.EqualValues(t, 1, meter.count("dry_run"))
}
