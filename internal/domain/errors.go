package domain

import "errors"

var (
	ErrElevationMismatch   = errors.New("game process runs with elevated privileges")
	ErrUnknownFeature      = errors.New("unknown feature")
	ErrUnknownCommand      = errors.New("unknown command")
	ErrNotToggleCommand    = errors.New("command is not a toggle")
	ErrFeatureUnavailable  = errors.New("feature unavailable")
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
	ErrZoneNotFound        = errors.New("zone not found")
)
