// Package preflight runs startup and status checks: external tools, storage
// access, and collaborator reachability.
package preflight
