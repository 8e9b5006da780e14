// Package navsync drives a navigation bar from a browser over a WebSocket.
// The page shim forwards scroll, intersection and menu clicks; the server runs
// the same controller the WASM build runs and pushes the resulting state back.
package navsync

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/nav"
	"kulhadcafe.in/site/internal/viewport"
)

const (
	defaultHelloTimeout = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	writeWait           = 10 * time.Second
	maxMessageSize      = 1024
)

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces the clock driving idle timers.
func WithClock(clock viewport.Clock) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithOriginCheck restricts which pages may open a session.
func WithOriginCheck(check func(*http.Request) bool) Option {
	return func(h *Handler) {
		if check != nil {
			h.upgrader.CheckOrigin = check
		}
	}
}

// WithHelloTimeout bounds how long a new connection may wait before saying hello.
func WithHelloTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.helloTimeout = d
		}
	}
}

// Handler upgrades requests to navsync sessions.
type Handler struct {
	links        []nav.Item
	clock        viewport.Clock
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	helloTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewHandler returns a handler whose sessions render links in their menu.
func NewHandler(links []nav.Item, opts ...Option) *Handler {
	h := &Handler{
		links:  nav.Clone(links),
		clock:  viewport.SystemClock{},
		logger: zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		helloTimeout: defaultHelloTimeout,
		sessions:     map[string]*session{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetLinks replaces the menu links of sessions that start from now on.
func (h *Handler) SetLinks(links []nav.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.links = nav.Clone(links)
}

func (h *Handler) menuLinks() []nav.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.links
}

// Shutdown closes every live session with a going-away frame. Each session
// unmounts its bar as it ends.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	live := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		live = append(live, s)
	}
	h.mu.Unlock()
	for _, s := range live {
		s.close()
	}
}

// Active reports the number of connected sessions.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("navsync upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s := newSession(uuid.NewString(), conn, h)
	h.track(s, true)
	defer h.track(s, false)

	logger := h.logger.With(zap.String("session", s.id))
	logger.Debug("navsync session opened")
	if err := s.run(r.Context()); err != nil {
		logger.Debug("navsync session ended", zap.Error(err))
		return
	}
	logger.Debug("navsync session closed")
}

func (h *Handler) track(s *session, add bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if add {
		h.sessions[s.id] = s
		return
	}
	delete(h.sessions, s.id)
}
