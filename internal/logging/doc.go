// Package logging provides slog construction and the structured field
// conventions shared across the daemon: console and JSON handlers, component
// loggers, and context-derived attributes.
package logging
