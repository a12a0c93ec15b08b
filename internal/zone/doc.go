// Package zone implements the zone assistant.
//
// A built-in catalog maps core Tyria map IDs to names, a NameDisplay holds
// the shared "where am I" state consumed by overlay panels, and the
// controller polls the link telemetry to keep the display current and raise
// zone-entered events.
package zone
