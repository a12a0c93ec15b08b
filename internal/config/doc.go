// Package config provides environment-based daemon configuration.
//
// Values come from GW2PAO_* environment variables mapped onto the Config
// struct via caarlos0/env tags, with per-user defaults for the telemetry
// file and settings directory. Flags in cmd/gw2pao override fields after
// loading; Validate runs last either way.
package config
