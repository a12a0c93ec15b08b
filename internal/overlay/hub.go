package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// Channel names the panels connect on. Each feature panel has its own
// channel; the HUD channel carries cross-feature frames (toasts, zone name).
const (
	ChannelEvents     = "events"
	ChannelZoneAssist = "zone-assist"
	ChannelHUD        = "hud"
)

// ErrHubStopped is returned by hub operations after Stop.
var ErrHubStopped = errors.New("overlay hub stopped")

const stopTimeout = 10 * time.Second

// FeatureChannel maps a feature to the hub channel its panel listens on.
func FeatureChannel(f domain.Feature) (string, error) {
	switch f {
	case domain.FeatureEvents:
		return ChannelEvents, nil
	case domain.FeatureZoneAssist:
		return ChannelZoneAssist, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownFeature, f)
	}
}

// KnownChannel reports whether name is a channel the hub serves.
func KnownChannel(name string) bool {
	switch name {
	case ChannelEvents, ChannelZoneAssist, ChannelHUD:
		return true
	default:
		return false
	}
}

// hubCmd is the marker interface for commands processed by the hub loop.
type hubCmd interface {
	isHubCmd()
}

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	channel string
	conn    *websocket.Conn
	errCh   chan error
}

type unregisterCmd struct {
	baseHubCmd
	channel string
	conn    *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	channel string
	data    []byte
}

type clientCountCmd struct {
	baseHubCmd
	channel string
	replyCh chan int
}

type stopHubCmd struct {
	baseHubCmd
}

type channelClients map[*websocket.Conn]*clientWriter

// Hub fans frames out to the overlay panels attached to each channel.
//
// All state lives in the run goroutine and is touched only there; public
// methods communicate by queueing commands. Panels attach and detach
// passively at any time, activation is not the hub's concern.
type Hub struct {
	cmdCh                chan hubCmd
	clients              map[string]channelClients
	maxClientsPerChannel int
	clock                clockwork.Clock
	log                  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewHub creates a hub and starts its command loop.
func NewHub(maxClientsPerChannel int, clock clockwork.Clock, log *slog.Logger) *Hub {
	h := &Hub{
		cmdCh:                make(chan hubCmd, 256),
		clients:              make(map[string]channelClients),
		maxClientsPerChannel: maxClientsPerChannel,
		clock:                clock,
		log:                  log,
		stopCh:               make(chan struct{}),
		done:                 make(chan struct{}),
	}

	go h.run()
	return h
}

// Register attaches a connection to a channel. On rejection (channel full,
// hub stopped) the connection is closed and an error returned; the caller
// must not use it further.
func (h *Hub) Register(channel string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)

	select {
	case h.cmdCh <- registerCmd{channel: channel, conn: conn, errCh: errCh}:
	case <-h.stopCh:
		conn.Close()
		return ErrHubStopped
	}

	select {
	case err := <-errCh:
		return err
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}
}

// Unregister detaches a connection. Unknown connections are ignored, so the
// read pump can call it unconditionally on exit.
func (h *Hub) Unregister(channel string, conn *websocket.Conn) {
	select {
	case h.cmdCh <- unregisterCmd{channel: channel, conn: conn}:
	case <-h.stopCh:
	}
}

// Broadcast marshals frame as JSON and queues it for every panel on the
// channel. Fire and forget: frames to a stopped hub or past a full command
// queue are dropped.
func (h *Hub) Broadcast(channel string, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("marshal overlay frame failed", "channel", channel, "error", err)
		return
	}

	select {
	case h.cmdCh <- broadcastCmd{channel: channel, data: data}:
	case <-h.stopCh:
	default:
		h.log.Warn("overlay command queue full, dropping frame", "channel", channel)
	}
}

// ClientCount returns the number of panels attached to a channel.
func (h *Hub) ClientCount(channel string) int {
	replyCh := make(chan int, 1)

	select {
	case h.cmdCh <- clientCountCmd{channel: channel, replyCh: replyCh}:
	case <-h.stopCh:
		return 0
	}

	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

// Stop closes every panel connection with a close frame and shuts the hub
// down. Idempotent; blocks until the loop exits or the stop timeout fires.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)

		select {
		case h.cmdCh <- stopHubCmd{}:
		case <-h.done:
			return
		}

		timeout := h.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-h.done:
			h.log.Info("overlay hub stopped")
		case <-timeout.Chan():
			h.log.Warn("overlay hub stop timed out", "timeout", stopTimeout)
		}
	})
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("overlay hub panic recovered, closing all clients", "panic", r)
			h.closeAll("internal error")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.channel, c.conn)
		case broadcastCmd:
			h.handleBroadcast(c)
		case clientCountCmd:
			c.replyCh <- len(h.clients[c.channel])
		case stopHubCmd:
			h.handleStop()
			return
		default:
			h.log.Warn("unknown hub command", "type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	clients, exists := h.clients[c.channel]
	if !exists {
		clients = make(channelClients)
		h.clients[c.channel] = clients
	}

	if len(clients) >= h.maxClientsPerChannel {
		h.log.Warn("rejecting overlay client, channel full",
			"channel", c.channel,
			"max_clients", h.maxClientsPerChannel)
		metrics.OverlayConnectionsRejected.WithLabelValues("channel_limit").Inc()
		c.conn.Close()
		c.errCh <- fmt.Errorf("channel %s full (max %d clients)", c.channel, h.maxClientsPerChannel)
		return
	}

	clients[c.conn] = newClientWriter(c.conn, h.clock, h.log)
	metrics.OverlayClients.WithLabelValues(c.channel).Set(float64(len(clients)))
	h.log.Debug("overlay client attached", "channel", c.channel, "clients", len(clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(channel string, conn *websocket.Conn) {
	clients, exists := h.clients[channel]
	if !exists {
		return
	}
	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)
	metrics.OverlayClients.WithLabelValues(channel).Set(float64(len(clients)))

	if len(clients) == 0 {
		delete(h.clients, channel)
		h.log.Debug("last overlay client detached", "channel", channel)
	} else {
		h.log.Debug("overlay client detached", "channel", channel, "clients", len(clients))
	}
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	clients, exists := h.clients[c.channel]
	if !exists {
		return
	}

	// A full send queue means the panel stopped draining; evict it rather
	// than letting one stuck socket hold frames for the rest.
	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		h.log.Warn("evicting slow overlay client", "channel", c.channel)
		metrics.OverlaySlowClientsEvicted.Inc()
		h.handleUnregister(c.channel, conn)
	}

	metrics.OverlayFramesSent.WithLabelValues(c.channel).Inc()
}

func (h *Hub) handleStop() {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	h.log.Info("overlay hub shutting down", "channels", len(h.clients), "clients", total)
	h.closeAll("server shutting down")
}

func (h *Hub) closeAll(reason string) {
	for channel, clients := range h.clients {
		for _, cw := range clients {
			cw.stopGraceful(reason)
		}
		delete(h.clients, channel)
		metrics.OverlayClients.WithLabelValues(channel).Set(0)
	}
}
