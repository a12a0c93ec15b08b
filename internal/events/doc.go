// Package events tracks the world-event rotation.
//
// The controller computes upcoming spawns from the configured rotation,
// sleeps until the next reminder or spawn instant, and raises feature events
// for the orchestrator to route. Spawns are anchored to the UTC day grid:
// an event with period P and offset O spawns at every O + k*P.
package events
