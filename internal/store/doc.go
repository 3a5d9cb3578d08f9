// Package store persists confirmed plate sightings in SQLite and owns the
// atomic deduplication contract: a plate seen again within the configured
// window maps back to the existing event instead of creating a new row.
package store
