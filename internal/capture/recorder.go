package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Recorder acquires timed clips from the camera stream and turns them into
// ordered frame sequences.
type Recorder struct {
	streamURL    string
	ffmpegBinary string
	duration     time.Duration
	logger       *slog.Logger
	run          commandRunner
}

// NewRecorder builds a recorder for the configured camera stream.
func NewRecorder(cfg *config.Config, logger *slog.Logger) *Recorder {
	duration := time.Duration(cfg.Camera.RecordingDuration) * time.Second
	if duration <= 0 {
		duration = 6 * time.Second
	}
	return &Recorder{
		streamURL:    cfg.RTSPURL(),
		ffmpegBinary: cfg.FFmpegBinary(),
		duration:     duration,
		logger:       logging.NewComponentLogger(logger, "capture"),
		run:          runCommand,
	}
}

// WithCommandRunner overrides process execution, for tests.
func (r *Recorder) WithCommandRunner(run commandRunner) {
	if run != nil {
		r.run = run
	}
}

// Duration reports the configured clip length.
func (r *Recorder) Duration() time.Duration {
	return r.duration
}

// Capture records a clip of the configured duration and returns every frame of
// it, in order, as encoded JPEGs. A failed recording or an empty clip yields an
// empty slice, not an error: the caller treats "no frames" as a normal
// per-run outcome. Temporary artifacts are removed best-effort.
func (r *Recorder) Capture(ctx context.Context) ([][]byte, error) {
	workDir, err := os.MkdirTemp("", "anpr-capture-*")
	if err != nil {
		return nil, fmt.Errorf("create capture workspace: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			r.logger.Warn("cleanup capture workspace failed", logging.Error(removeErr))
		}
	}()

	clipPath := filepath.Join(workDir, "clip.mp4")
	if err := r.record(ctx, clipPath); err != nil {
		r.logger.Warn("recording failed, treating as empty burst", logging.Error(err))
		return nil, nil
	}
	if info, statErr := os.Stat(clipPath); statErr != nil || info.Size() == 0 {
		r.logger.Warn("recording produced no clip, treating as empty burst")
		return nil, nil
	}

	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames directory: %w", err)
	}
	if err := r.extractFrames(ctx, clipPath, framesDir); err != nil {
		r.logger.Warn("frame extraction failed, treating as empty burst", logging.Error(err))
		return nil, nil
	}

	frames, err := readFrames(framesDir)
	if err != nil {
		return nil, err
	}
	r.logger.Info("burst captured",
		logging.Int("frames", len(frames)),
		logging.Duration("duration", r.duration))
	return frames, nil
}

// record acquires the clip over TCP so frames arrive ordered and complete;
// UDP delivery drops packets under load and corrupts extracted frames.
func (r *Recorder) record(ctx context.Context, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-fflags", "+genpts",
		"-i", r.streamURL,
		"-t", fmt.Sprintf("%d", int(r.duration.Seconds())),
		"-c", "copy",
		dest,
	}
	return r.run(ctx, r.ffmpegBinary, args...)
}

func (r *Recorder) extractFrames(ctx context.Context, clip, framesDir string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", clip,
		"-qscale:v", "2",
		filepath.Join(framesDir, "frame_%06d.jpg"),
	}
	return r.run(ctx, r.ffmpegBinary, args...)
}

func readFrames(framesDir string) ([][]byte, error) {
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, fmt.Errorf("list extracted frames: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, readErr := os.ReadFile(filepath.Join(framesDir, name))
		if readErr != nil {
			return nil, fmt.Errorf("read frame %s: %w", name, readErr)
		}
		frames = append(frames, data)
	}
	return frames, nil
}
