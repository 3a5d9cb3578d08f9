// Package pipeline converts raw camera motion events into at most one
// in-flight detection run at a time: debounce, AI-state confirmation,
// single-flight capture, plate selection, dedup, and notification fan-out.
package pipeline
