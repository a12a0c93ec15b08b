// Package overlay implements the browser-facing presentation layer using the actor pattern.
//
// The Hub fans JSON frames out to overlay panels connected per channel ("events",
// "zone-assist", "hud"). Uses single goroutine + command channel (no mutexes).
// Per-connection write goroutines handle slow clients gracefully. Surface wraps
// one feature's panel channel behind the handle the orchestrator owns.
package overlay
