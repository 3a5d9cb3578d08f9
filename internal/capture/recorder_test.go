package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/capture"
	"github.com/Harky911/ReolinkANPR/internal/testsupport"
)

func TestCaptureHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := capture.NewRecorder(cfg, nil)

	calls := 0
	recorder.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls++
		dest := args[len(args)-1]
		switch calls {
		case 1:
			// Recording pass writes the clip.
			if name != "ffmpeg" {
				t.Errorf("unexpected binary %q", name)
			}
			assertArgPair(t, args, "-rtsp_transport", "tcp")
			assertArgPair(t, args, "-c", "copy")
			return os.WriteFile(dest, []byte("clip"), 0o644)
		case 2:
			// Extraction pass writes numbered frames.
			framesDir := filepath.Dir(dest)
			for _, frame := range []struct{ name, content string }{
				{"frame_000002.jpg", "two"},
				{"frame_000001.jpg", "one"},
				{"frame_000003.jpg", "three"},
			} {
				if err := os.WriteFile(filepath.Join(framesDir, frame.name), []byte(frame.content), 0o644); err != nil {
					t.Fatalf("write fake frame: %v", err)
				}
			}
			return nil
		default:
			t.Fatalf("unexpected command invocation %d", calls)
			return nil
		}
	})

	frames, err := recorder.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, want := range []string{"one", "two", "three"} {
		if string(frames[i]) != want {
			t.Fatalf("frame %d = %q, want %q (frames must stay in order)", i, frames[i], want)
		}
	}
}

func TestCaptureRecordingFailureYieldsEmptyBurst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := capture.NewRecorder(cfg, nil)
	recorder.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})

	frames, err := recorder.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected empty burst, got %d frames", len(frames))
	}
}

func TestCaptureMissingClipYieldsEmptyBurst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := capture.NewRecorder(cfg, nil)
	recorder.WithCommandRunner(func(context.Context, string, ...string) error {
		// Recorder "succeeds" without producing an output file.
		return nil
	})

	frames, err := recorder.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected empty burst, got %d frames", len(frames))
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			if args[i+1] != value {
				t.Fatalf("flag %s = %q, want %q", flag, args[i+1], value)
			}
			return
		}
	}
	t.Fatalf("flag %s missing from args %v", flag, args)
}
