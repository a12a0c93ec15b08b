// Package notify routes notifications to the HUD overlay as toast frames.
package notify
