// Package services holds cross-cutting plumbing shared by pipeline
// components: the error classification taxonomy and context annotations.
package services
