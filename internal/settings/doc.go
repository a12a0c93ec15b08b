// Package settings persists user-tunable feature settings.
//
// A Store maps aggregate names to TOML files in one directory. A Handle wraps
// one aggregate with copy-on-read access and debounced autosave. Missing or
// corrupt files never fail a load: callers keep their compiled-in defaults.
package settings
