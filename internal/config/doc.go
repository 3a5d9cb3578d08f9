// Package config loads, validates, and normalizes the TOML configuration
// used by the anprd daemon and the anpr CLI.
package config
