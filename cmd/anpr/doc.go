// Package main hosts the anpr CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces configuration scaffolding, sighting
// queries against the event database, daemon status over the read-only HTTP
// API, and notification channel testing. It centralizes configuration
// resolution so subcommands can focus on user experience instead of wiring.
package main
