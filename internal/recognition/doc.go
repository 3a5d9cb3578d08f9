// Package recognition talks to the ALPR engine sidecar and turns a burst of
// captured frames into at most one validated plate sighting.
package recognition
