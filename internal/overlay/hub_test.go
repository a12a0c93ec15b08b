package overlay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testHub sets up a Hub behind a test HTTP server that upgrades connections
// and registers them on the channel named in the query string. Returns the
// hub and a dial function.
func testHub(t *testing.T, maxClients int) (*Hub, func(channel string) *ws.Conn) {
	t.Helper()

	hub := NewHub(maxClients, clockwork.NewRealClock(), testLogger())
	t.Cleanup(func() { hub.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		channel := r.URL.Query().Get("channel")
		if err := hub.Register(channel, conn); err != nil {
			return
		}

		// Read loop to detect disconnects
		go func() {
			defer hub.Unregister(channel, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(func() { server.Close() })

	dial := func(channel string) *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?channel=" + channel
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return hub, dial
}

// waitForClientCount polls until the hub reports the expected count for a channel.
func waitForClientCount(hub *Hub, channel string, expected int) bool {
	for range 100 {
		if hub.ClientCount(channel) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(msg, &frame))
	return frame
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub, dial := testHub(t, 8)

	conn := dial(ChannelEvents)
	require.True(t, waitForClientCount(hub, ChannelEvents, 1))

	hub.Broadcast(ChannelEvents, controlFrame{Type: "show", Feature: "events"})

	frame := readFrame(t, conn)
	assert.Equal(t, "show", frame["type"])
	assert.Equal(t, "events", frame["feature"])
}

func TestHub_BroadcastIsScopedToChannel(t *testing.T) {
	hub, dial := testHub(t, 8)

	eventsConn := dial(ChannelEvents)
	zoneConn := dial(ChannelZoneAssist)
	require.True(t, waitForClientCount(hub, ChannelEvents, 1))
	require.True(t, waitForClientCount(hub, ChannelZoneAssist, 1))

	hub.Broadcast(ChannelEvents, controlFrame{Type: "show", Feature: "events"})

	frame := readFrame(t, eventsConn)
	assert.Equal(t, "show", frame["type"])

	// The zone panel must not see the events frame.
	require.NoError(t, zoneConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := zoneConn.ReadMessage()
	assert.Error(t, err, "frame leaked across channels")
}

func TestHub_MultipleClients(t *testing.T) {
	hub, dial := testHub(t, 8)

	conn1 := dial(ChannelHUD)
	conn2 := dial(ChannelHUD)
	require.True(t, waitForClientCount(hub, ChannelHUD, 2))

	hub.Broadcast(ChannelHUD, controlFrame{Type: "focus", Feature: "events"})

	for _, conn := range []*ws.Conn{conn1, conn2} {
		frame := readFrame(t, conn)
		assert.Equal(t, "focus", frame["type"])
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub, dial := testHub(t, 8)

	assert.Equal(t, 0, hub.ClientCount(ChannelEvents))

	conn1 := dial(ChannelEvents)
	require.True(t, waitForClientCount(hub, ChannelEvents, 1))

	dial(ChannelEvents)
	require.True(t, waitForClientCount(hub, ChannelEvents, 2))

	conn1.Close()
	require.True(t, waitForClientCount(hub, ChannelEvents, 1))
}

func TestHub_BroadcastNoClients(t *testing.T) {
	hub, _ := testHub(t, 8)

	// Should not panic
	hub.Broadcast(ChannelEvents, controlFrame{Type: "show", Feature: "events"})
}

func TestHub_MaxClientsPerChannel(t *testing.T) {
	hub, dial := testHub(t, 2)

	dial(ChannelEvents)
	dial(ChannelEvents)
	require.True(t, waitForClientCount(hub, ChannelEvents, 2))

	server, client := newTestConnPair(t)
	err := hub.Register(ChannelEvents, server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")

	// The rejected connection is closed by the hub.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = client.ReadMessage()
	assert.Error(t, err)

	assert.Equal(t, 2, hub.ClientCount(ChannelEvents))
}

func TestHub_StopClosesClientsGracefully(t *testing.T) {
	hub := NewHub(8, clockwork.NewRealClock(), testLogger())

	server, client := newTestConnPair(t)
	require.NoError(t, hub.Register(ChannelEvents, server))

	hub.Stop()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()

	if closeErr, ok := err.(*ws.CloseError); ok {
		assert.Equal(t, ws.CloseNormalClosure, closeErr.Code)
		assert.Contains(t, closeErr.Text, "shutting down")
	} else {
		assert.Error(t, err, "connection should be closed")
	}
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(8, clockwork.NewRealClock(), testLogger())
	hub.Stop()

	server, client := newTestConnPair(t)
	err := hub.Register(ChannelEvents, server)
	assert.ErrorIs(t, err, ErrHubStopped)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = client.ReadMessage()
	assert.Error(t, err, "connection should be closed")
}

func TestHub_StopIsIdempotent(t *testing.T) {
	hub := NewHub(8, clockwork.NewRealClock(), testLogger())
	hub.Stop()
	hub.Stop()
}

func TestHub_BroadcastAfterStop(t *testing.T) {
	hub := NewHub(8, clockwork.NewRealClock(), testLogger())
	hub.Stop()

	// Dropped silently, no panic.
	hub.Broadcast(ChannelEvents, controlFrame{Type: "show", Feature: "events"})
	assert.Equal(t, 0, hub.ClientCount(ChannelEvents))
}

// newTestConnPair creates a connected pair of WebSocket connections.
func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}
