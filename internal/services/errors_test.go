package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "capture", "record", "ffmpeg exited", inner)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "capture: record: ffmpeg exited") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %v", err)
	}
}
