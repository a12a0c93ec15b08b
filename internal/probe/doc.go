// Package probe reads facts about the local machine and the game client.
//
// ProcessProbe answers whether the game is running (with elevation-mismatch
// detection), LinkWatcher follows the link telemetry file the game exporter
// writes, and SystemProbe reads host facts. All of them back the domain
// source interfaces consumed by gates and feature controllers.
package probe
