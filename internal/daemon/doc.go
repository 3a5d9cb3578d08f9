// Package daemon runs the long-lived ANPR service: it enforces
// single-instance execution, connects to the camera, wires the detection
// pipeline, and serves the read-only status API.
package daemon
