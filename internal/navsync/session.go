package navsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"kulhadcafe.in/site/internal/navbar"
	"kulhadcafe.in/site/internal/overlay"
)

var errNoHello = errors.New("navsync: first frame must be hello")

type session struct {
	id     string
	conn   *websocket.Conn
	h      *Handler
	bar    *navbar.Bar
	locked atomic.Bool

	// wake is signalled whenever a frame is waiting in the outbox.
	wake     chan struct{}
	mu       sync.Mutex
	dirty    bool
	navigate string
	errs     []string
}

func newSession(id string, conn *websocket.Conn, h *Handler) *session {
	return &session{
		id:   id,
		conn: conn,
		h:    h,
		wake: make(chan struct{}, 1),
	}
}

// run serves the connection until the client leaves or ctx ends. The bar is
// unmounted, and the scroll lock released, on every return path.
func (s *session) run(ctx context.Context) error {
	s.conn.SetReadLimit(maxMessageSize)

	hello, err := s.readHello()
	if err != nil {
		s.writeNow(ServerMessage{Type: TypeError, Session: s.id, Message: err.Error()})
		return err
	}

	p := newRemote(s.h.clock, hello.ScrollY, hello.Intersection)
	s.bar = navbar.New(p, overlay.LockFunc(s.locked.Store), s.h.menuLinks(), s.h.logger.Named("navbar"))
	s.bar.OnChange(func(navbar.State) { s.markDirty("") })
	s.bar.Mount()
	defer s.bar.Unmount()
	s.markDirty("")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return err
			}
			return nil
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.queueError("invalid message format")
			continue
		}
		if err := s.dispatch(p, msg); err != nil {
			s.queueError(err.Error())
		}
	}
}

func (s *session) readHello() (ClientMessage, error) {
	var msg ClientMessage
	s.conn.SetReadDeadline(time.Now().Add(s.h.helloTimeout))
	if err := s.conn.ReadJSON(&msg); err != nil {
		return msg, fmt.Errorf("navsync: read hello: %w", err)
	}
	if msg.Type != TypeHello {
		return msg, errNoHello
	}
	if msg.ScrollY < 0 {
		msg.ScrollY = 0
	}
	return msg, nil
}

func (s *session) dispatch(p *remote, msg ClientMessage) error {
	switch msg.Type {
	case TypeScroll:
		p.scroll(max(msg.Y, 0))
	case TypeIntersect:
		p.intersect(msg.Value)
	case TypeMenu:
		return s.menu(msg)
	case TypeHello:
		return errors.New("session already started")
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
	return nil
}

func (s *session) menu(msg ClientMessage) error {
	switch msg.Action {
	case ActionOpen:
		s.bar.Trigger()
	case ActionClose:
		s.bar.Activate(overlay.CloseTarget())
	case ActionSurface:
		s.bar.Activate(overlay.SurfaceTarget())
	case ActionLink:
		if href, ok := s.bar.Activate(overlay.LinkTarget(msg.Index)); ok {
			s.markDirty(href)
		}
	default:
		return fmt.Errorf("unknown menu action: %s", msg.Action)
	}
	return nil
}

// markDirty schedules a state push. Pushes coalesce; a pending navigation
// survives until it is written.
func (s *session) markDirty(navigate string) {
	s.mu.Lock()
	s.dirty = true
	if navigate != "" {
		s.navigate = navigate
	}
	s.mu.Unlock()
	s.signal()
}

func (s *session) queueError(message string) {
	s.mu.Lock()
	s.errs = append(s.errs, message)
	s.mu.Unlock()
	s.signal()
}

func (s *session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain takes everything waiting in the outbox. State is read at drain time so
// the frame always reflects the latest transition.
func (s *session) drain() []ServerMessage {
	s.mu.Lock()
	errs := s.errs
	dirty, navigate := s.dirty, s.navigate
	s.errs, s.dirty, s.navigate = nil, false, ""
	s.mu.Unlock()

	frames := make([]ServerMessage, 0, len(errs)+1)
	for _, e := range errs {
		frames = append(frames, ServerMessage{Type: TypeError, Session: s.id, Message: e})
	}
	if dirty {
		st := s.bar.State()
		frames = append(frames, ServerMessage{
			Type:         TypeState,
			Session:      s.id,
			Visible:      st.Visible,
			MenuOpen:     st.MenuOpen,
			ScrollLocked: s.locked.Load(),
			Navigate:     navigate,
		})
	}
	return frames
}

func (s *session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			for _, frame := range s.drain() {
				if err := s.writeNow(frame); err != nil {
					s.conn.Close()
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}

// close may be called from any goroutine; the read loop sees the closed
// connection and returns.
func (s *session) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	s.conn.Close()
}

func (s *session) writeNow(frame ServerMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(frame)
}
