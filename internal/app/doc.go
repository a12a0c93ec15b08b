// Package app provides the session orchestrator, the application service layer.
//
// The orchestrator is the single authority for showing a feature: it owns the
// presentation handles, the menu command list and notification routing. All of
// that state lives on a single goroutine (actor pattern: one goroutine plus a
// command channel, no mutexes); public methods marshal onto it. Sits between
// the HTTP handlers and the domain collaborators, depends on domain
// interfaces only.
package app
