package navsync

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"kulhadcafe.in/site/internal/nav"
	"kulhadcafe.in/site/internal/navvis"
	"kulhadcafe.in/site/internal/viewport/viewporttest"
)

func dial(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Equal(t, 101, resp.StatusCode)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips coalesced intermediate states until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := read(t, conn)
		if match(msg) {
			return msg
		}
	}
	t.Fatalf("no matching frame")
	return ServerMessage{}
}

func TestSessionDrivesVisibility(t *testing.T) {
	t.Parallel()

	clock := viewporttest.NewClock()
	h := NewHandler(nav.Main, WithClock(clock))
	conn := dial(t, h)

	send(t, conn, ClientMessage{Type: TypeHello, ScrollY: 0, Intersection: true})
	first := read(t, conn)
	require.Equal(t, TypeState, first.Type)
	require.NotEmpty(t, first.Session)
	require.True(t, first.Visible)
	require.False(t, first.MenuOpen)

	send(t, conn, ClientMessage{Type: TypeScroll, Y: 400})
	hidden := readUntil(t, conn, func(m ServerMessage) bool { return !m.Visible })
	require.Equal(t, first.Session, hidden.Session)

	send(t, conn, ClientMessage{Type: TypeIntersect, Value: true})
	readUntil(t, conn, func(m ServerMessage) bool { return m.Visible })

	// Leaving the home region at the offset where it began is not a downward move.
	send(t, conn, ClientMessage{Type: TypeIntersect, Value: false})
	require.Eventually(t, func() bool { return clock.Pending() == 1 }, 5*time.Second, 10*time.Millisecond)
	clock.Advance(navvis.IdleHideDelay)
	readUntil(t, conn, func(m ServerMessage) bool { return !m.Visible })
}

func TestSessionMenuOwnsScrollLock(t *testing.T) {
	t.Parallel()

	h := NewHandler(nav.Main, WithClock(viewporttest.NewClock()))
	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeHello})
	read(t, conn)

	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionOpen})
	open := readUntil(t, conn, func(m ServerMessage) bool { return m.MenuOpen })
	require.True(t, open.ScrollLocked)

	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionLink, Index: 2})
	closed := readUntil(t, conn, func(m ServerMessage) bool { return m.Navigate != "" })
	require.Equal(t, "#founders", closed.Navigate)
	require.False(t, closed.MenuOpen)
	require.False(t, closed.ScrollLocked)

	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionOpen})
	readUntil(t, conn, func(m ServerMessage) bool { return m.MenuOpen })
	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionSurface})
	surface := readUntil(t, conn, func(m ServerMessage) bool { return !m.MenuOpen })
	require.Empty(t, surface.Navigate)
	require.False(t, surface.ScrollLocked)
}

func TestSessionReportsBadFrames(t *testing.T) {
	t.Parallel()

	h := NewHandler(nav.Main, WithClock(viewporttest.NewClock()))
	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeHello})
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := read(t, conn)
	require.Equal(t, TypeError, msg.Type)
	require.Equal(t, "invalid message format", msg.Message)

	send(t, conn, ClientMessage{Type: "teleport"})
	msg = read(t, conn)
	require.Equal(t, TypeError, msg.Type)
	require.Contains(t, msg.Message, "unknown message type")

	send(t, conn, ClientMessage{Type: TypeMenu, Action: "spin"})
	msg = read(t, conn)
	require.Contains(t, msg.Message, "unknown menu action")
}

func TestSessionRequiresHello(t *testing.T) {
	t.Parallel()

	h := NewHandler(nav.Main)
	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeScroll, Y: 10})

	msg := read(t, conn)
	require.Equal(t, TypeError, msg.Type)
	require.Contains(t, msg.Message, "hello")

	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server closes after a bad handshake")
}

func TestDisconnectWhileMenuOpenEndsSession(t *testing.T) {
	t.Parallel()

	clock := viewporttest.NewClock()
	h := NewHandler(nav.Main, WithClock(clock))
	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeHello, Intersection: false})
	read(t, conn)
	send(t, conn, ClientMessage{Type: TypeScroll, Y: 10})
	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionOpen})
	readUntil(t, conn, func(m ServerMessage) bool { return m.ScrollLocked })
	require.Equal(t, 1, h.Active())
	require.Equal(t, 1, clock.Pending())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Zero(t, clock.Pending(), "idle timer is cancelled with the session")
}

func TestRemoteWithoutIntersectionSupport(t *testing.T) {
	t.Parallel()

	p := newRemote(viewporttest.NewClock(), 120, false)
	require.Equal(t, 120, p.ScrollY())
	_, err := p.ObserveIntersection("#home", 0.1, func(bool) {})
	require.Error(t, err)

	var got []int
	sub, err := p.SubscribeScroll(func(y int) { got = append(got, y) })
	require.NoError(t, err)
	p.scroll(200)
	sub.Unsubscribe()
	p.scroll(300)
	require.Equal(t, []int{200}, got)
	require.Equal(t, 300, p.ScrollY())
}

func TestSetLinksAppliesToNewSessions(t *testing.T) {
	t.Parallel()

	h := NewHandler(nav.Main, WithClock(viewporttest.NewClock()))
	h.SetLinks([]nav.Item{{Label: "Menu", Href: "#menu"}})

	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeHello})
	read(t, conn)
	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionOpen})
	readUntil(t, conn, func(m ServerMessage) bool { return m.MenuOpen })
	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionLink, Index: 0})
	msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Navigate != "" })
	require.Equal(t, "#menu", msg.Navigate)
	require.False(t, msg.MenuOpen)
}

func TestShutdownClosesSessions(t *testing.T) {
	t.Parallel()

	clock := viewporttest.NewClock()
	h := NewHandler(nav.Main, WithClock(clock))
	conn := dial(t, h)
	send(t, conn, ClientMessage{Type: TypeHello})
	read(t, conn)
	send(t, conn, ClientMessage{Type: TypeMenu, Action: ActionOpen})
	readUntil(t, conn, func(m ServerMessage) bool { return m.ScrollLocked })

	h.Shutdown()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		// Frames queued before the close may still arrive first.
		_, _, err = conn.ReadMessage()
	}
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return h.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
}
