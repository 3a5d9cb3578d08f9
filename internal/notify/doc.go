// Package notify fans confirmed sightings out to the configured channels.
// Channel failures are logged and isolated; they never reach the pipeline.
package notify
