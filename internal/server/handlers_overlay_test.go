package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Micah-S/gw2pao/internal/overlay"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func wsURL(ts *httptest.Server, channel string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overlay/" + channel
}

// --- Overlay page tests ---

func TestHandleOverlayPage_KnownChannel(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/overlay/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/overlay/:channel")
	c.SetParamNames("channel")
	c.SetParamValues("events")

	srv := newTestServer(t, &mockOrchestrator{})

	err := srv.handleOverlayPage(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Overlay events")
}

func TestHandleOverlayPage_UnknownChannel(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/overlay/minimap", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/overlay/:channel")
	c.SetParamNames("channel")
	c.SetParamValues("minimap")

	srv := newTestServer(t, &mockOrchestrator{})

	err := callHandler(srv.handleOverlayPage, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- WebSocket endpoint tests ---

func TestOverlaySocket_UnknownChannel(t *testing.T) {
	srv := newTestServer(t, &mockOrchestrator{})
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "minimap"), nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOverlaySocket_ReceivesBroadcasts(t *testing.T) {
	srv := newTestServer(t, &mockOrchestrator{})
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelEvents), nil)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, func() bool { return srv.hub.ClientCount(overlay.ChannelEvents) == 1 },
		"client never registered with hub")
	assert.Equal(t, int64(1), srv.limits.Active())

	srv.hub.Broadcast(overlay.ChannelEvents, map[string]string{"type": "show"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "show", frame["type"])
}

func TestOverlaySocket_ReleasesSlotOnDisconnect(t *testing.T) {
	srv := newTestServer(t, &mockOrchestrator{})
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelHUD), nil)
	require.NoError(t, err)

	waitFor(t, func() bool { return srv.hub.ClientCount(overlay.ChannelHUD) == 1 },
		"client never registered with hub")

	require.NoError(t, conn.Close())

	waitFor(t, func() bool { return srv.hub.ClientCount(overlay.ChannelHUD) == 0 },
		"client never unregistered from hub")
	waitFor(t, func() bool { return srv.limits.Active() == 0 },
		"connection slot never released")
}

func TestOverlaySocket_GlobalLimitRejects(t *testing.T) {
	srv := newTestServer(t, &mockOrchestrator{}, withLimits(NewConnectionLimits(1, 4, 100, 100)))
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelEvents), nil)
	require.NoError(t, err)
	defer first.Close()

	waitFor(t, func() bool { return srv.limits.Active() == 1 }, "first connection never acquired")

	second, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelEvents), nil)
	require.Error(t, err)
	if second != nil {
		second.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOverlaySocket_RateLimitRejects(t *testing.T) {
	// One token in the bucket and a refill far slower than the test.
	srv := newTestServer(t, &mockOrchestrator{}, withLimits(NewConnectionLimits(8, 8, 0.001, 1)))
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelEvents), nil)
	require.NoError(t, err)
	defer first.Close()

	second, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, overlay.ChannelEvents), nil)
	require.Error(t, err)
	if second != nil {
		second.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
