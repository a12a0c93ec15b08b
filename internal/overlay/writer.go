package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	// writeDeadline bounds a single WebSocket write operation.
	writeDeadline = 5 * time.Second

	// pingInterval is how often keepalive pings are sent to each panel.
	pingInterval = 30 * time.Second

	// pongDeadline is how long to wait for a pong before the read side of
	// the connection is considered dead.
	pongDeadline = 60 * time.Second

	// frameBufferSize is the per-client send queue. A panel that falls this
	// far behind is evicted by the hub instead of stalling the broadcast.
	frameBufferSize = 16
)

// clientWriter serializes all writes to one panel connection: broadcast
// frames queued by the hub and keepalive pings. One goroutine per client,
// so a stuck socket never blocks the hub loop.
type clientWriter struct {
	conn   *websocket.Conn
	clock  clockwork.Clock
	log    *slog.Logger
	sendCh chan []byte
	doneCh chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock, log *slog.Logger) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		clock:  clock,
		log:    log,
		sendCh: make(chan []byte, frameBufferSize),
		doneCh: make(chan struct{}),
	}

	// Pongs extend the read deadline; the read pump errors out when a panel
	// stops answering pings.
	_ = conn.SetReadDeadline(clock.Now().Add(pongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
	})

	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	defer cw.wg.Done()

	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
			if err := cw.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				cw.log.Debug("overlay write failed, dropping client", "error", err)
				return
			}
		case <-ticker.Chan():
			_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cw.log.Debug("overlay ping failed, dropping client", "error", err)
				return
			}
		case <-cw.doneCh:
			return
		}
	}
}

// stop tears the connection down immediately. Safe to call more than once
// and from multiple goroutines.
func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)
		cw.conn.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a close frame with the given reason before tearing the
// connection down, so the panel can distinguish shutdown from a crash.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
		if err := cw.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			cw.log.Debug("overlay close frame failed", "error", err)
		}
		cw.conn.Close()
	})
	cw.wg.Wait()
}
