// Package server implements the daemon's HTTP surface using Echo.
//
// Routes: menu API (list/invoke), feature open, status, zone catalog, overlay
// panel pages with their WebSocket endpoint, health probes and Prometheus
// metrics. Handlers split by concern: handlers_api.go, handlers_overlay.go,
// handlers_health.go.
package server
