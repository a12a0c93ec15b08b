package domain

import (
	"fmt"
	"time"
)

// Feature identifies one of the independently activatable assistant features.
type Feature string

const (
	FeatureEvents     Feature = "events"
	FeatureZoneAssist Feature = "zone-assist"
)

// Features lists all features in display order.
func Features() []Feature {
	return []Feature{FeatureEvents, FeatureZoneAssist}
}

// ParseFeature converts a user-supplied string into a Feature.
func ParseFeature(s string) (Feature, error) {
	switch Feature(s) {
	case FeatureEvents:
		return FeatureEvents, nil
	case FeatureZoneAssist:
		return FeatureZoneAssist, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
	}
}

// FeatureEvent is the payload a controller raises when something
// notification-worthy happens. It is fan-out: the controller does not know
// who consumes it or whether it gets displayed.
type FeatureEvent struct {
	Feature  Feature   `json:"feature"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// FeatureController owns the lifecycle of one feature's background activity.
//
// Start is idempotent: calling it while already started re-asserts the
// started state without duplicating work, and it is safe to call before any
// presentation surface exists. Stop is idempotent. Events are raised
// asynchronously any time after Start, never tied to a specific caller.
type FeatureController interface {
	Start()
	Stop()
}

// FeatureStatus is a point-in-time snapshot of one feature session.
type FeatureStatus struct {
	Feature     Feature `json:"feature"`
	Available   bool    `json:"available"`
	SurfaceLive bool    `json:"surface_live"`
}
