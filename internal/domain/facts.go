package domain

import "time"

// GameProcessSource reports whether the game client is currently running.
// Implementations may fail with ErrElevationMismatch when the game runs with
// higher privileges than this process and its state cannot be inspected.
type GameProcessSource interface {
	GameRunning() (bool, error)
}

// PlayerSource exposes point-in-time facts about the character's position in
// the world, fed by the local link telemetry.
type PlayerSource interface {
	HasValidMap() (bool, error)
	CurrentMapID() (int, error)
}

// SystemFacts carries generic host facts for the status surface.
type SystemFacts struct {
	Hostname string        `json:"hostname"`
	Platform string        `json:"platform"`
	Uptime   time.Duration `json:"uptime"`
}

// SystemSource reads host-level facts.
type SystemSource interface {
	Facts() (SystemFacts, error)
}

// AvailabilityGate decides on demand whether a feature may currently be
// activated. Evaluate reads live external state on each call; the recognized
// elevation-mismatch failure is downgraded to false with at most one user
// warning per incident, any other failure propagates.
type AvailabilityGate interface {
	Evaluate() (bool, error)
}
