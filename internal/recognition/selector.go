package recognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
)

// Sighting is the selector output: the single best validated plate read from
// one capture burst.
type Sighting struct {
	Plate      string
	Confidence float64
	ImagePath  string
	CropPath   string
	Box        BoundingBox
	FrameCount int
}

// Selector scans burst frames with the engine and picks the highest-confidence
// candidate that passes normalization, the confidence floor, and the plate
// format patterns.
type Selector struct {
	engine        Engine
	minConfidence float64
	imagesDir     string
	debugDir      string
	logger        *slog.Logger

	now func() time.Time
}

// NewSelector builds a selector from configuration and an engine client.
func NewSelector(cfg *config.Config, engine Engine, logger *slog.Logger) *Selector {
	return &Selector{
		engine:        engine,
		minConfidence: cfg.ALPR.MinConfidence,
		imagesDir:     cfg.ImagesDir(),
		debugDir:      cfg.DebugFramesDir(),
		logger:        logging.NewComponentLogger(logger, "selector"),
		now:           time.Now,
	}
}

// Select scans the frames in order and returns the best sighting, or nil when
// no frame yielded an acceptable candidate. A nil result is not an error; the
// caller treats it as "nothing to report".
func (s *Selector) Select(ctx context.Context, frames [][]byte) (*Sighting, error) {
	if len(frames) == 0 {
		s.logger.Warn("no frames in burst, nothing to scan")
		return nil, nil
	}

	var (
		bestFrame []byte
		best      *Candidate
	)
	for index, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		regions, err := s.engine.DetectOnly(ctx, frame)
		if err != nil {
			s.logger.Warn("detection pass failed, skipping frame",
				logging.Int("frame", index), logging.Error(err))
			continue
		}
		if len(regions) == 0 {
			continue
		}

		candidates, err := s.engine.DetectAndRecognize(ctx, frame)
		if err != nil {
			s.logger.Warn("recognition pass failed, skipping frame",
				logging.Int("frame", index), logging.Error(err))
			continue
		}

		for _, candidate := range candidates {
			plate := NormalizePlate(candidate.Text)
			if candidate.Confidence < s.minConfidence {
				s.logger.Debug("candidate below confidence floor",
					logging.String(logging.FieldPlate, plate),
					logging.Float64("confidence", candidate.Confidence),
					logging.Int("frame", index))
				continue
			}
			if !ValidPlate(plate) {
				s.logger.Debug("candidate failed format validation",
					logging.String(logging.FieldPlate, plate),
					logging.Int("frame", index))
				continue
			}
			// Strict greater-than: first-seen wins ties.
			if best == nil || candidate.Confidence > best.Confidence {
				accepted := candidate
				accepted.Text = plate
				best = &accepted
				bestFrame = frame
			}
		}
	}

	if best == nil {
		s.saveDebugFrames(frames)
		return nil, nil
	}

	imagePath, cropPath := s.saveResultImages(bestFrame, best)
	s.logger.Info("plate selected",
		logging.String(logging.FieldPlate, best.Text),
		logging.Float64("confidence", best.Confidence),
		logging.Int("frames", len(frames)))

	return &Sighting{
		Plate:      best.Text,
		Confidence: best.Confidence,
		ImagePath:  imagePath,
		CropPath:   cropPath,
		Box:        best.Box,
		FrameCount: len(frames),
	}, nil
}

// saveResultImages writes the full frame and the plate crop. Image persistence
// failures degrade to empty paths rather than dropping the sighting.
func (s *Selector) saveResultImages(frame []byte, candidate *Candidate) (string, string) {
	stamp := s.now().Format("20060102_150405")

	imagePath := filepath.Join(s.imagesDir, fmt.Sprintf("%s_%s.jpg", stamp, candidate.Text))
	if err := os.WriteFile(imagePath, frame, 0o644); err != nil {
		s.logger.Warn("save full frame failed", logging.Error(err))
		imagePath = ""
	}

	cropPath := filepath.Join(s.imagesDir, fmt.Sprintf("%s_%s_crop.jpg", stamp, candidate.Text))
	if err := s.saveCrop(frame, candidate.Box, cropPath); err != nil {
		s.logger.Warn("save plate crop failed", logging.Error(err))
		cropPath = ""
	}
	return imagePath, cropPath
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func (s *Selector) saveCrop(frame []byte, box BoundingBox, path string) error {
	decoded, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	region := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(decoded.Bounds())
	if region.Empty() {
		return fmt.Errorf("bounding box %s outside frame bounds %v", box, decoded.Bounds())
	}

	cropper, ok := decoded.(subImager)
	if !ok {
		return fmt.Errorf("image type %T does not support cropping", decoded)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropper.SubImage(region), &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode crop: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write crop: %w", err)
	}
	return nil
}

// saveDebugFrames persists the first, last, and middle frames of a burst that
// produced no accepted candidate so the operator can inspect what the camera
// saw.
func (s *Selector) saveDebugFrames(frames [][]byte) {
	stamp := s.now().Format("20060102_150405")

	picks := []struct {
		label string
		index int
	}{
		{"first", 0},
		{"last", len(frames) - 1},
		{"middle", len(frames) / 2},
	}
	for _, pick := range picks {
		if pick.index < 0 || pick.index >= len(frames) {
			continue
		}
		if pick.label == "last" && pick.index == 0 {
			continue
		}
		if pick.label == "middle" && len(frames) <= 2 {
			continue
		}
		path := filepath.Join(s.debugDir, fmt.Sprintf("%s_%s.jpg", stamp, pick.label))
		if err := os.WriteFile(path, frames[pick.index], 0o644); err != nil {
			s.logger.Warn("save debug frame failed",
				logging.String("label", pick.label), logging.Error(err))
		}
	}
	s.logger.Info("no plate accepted, debug frames saved",
		logging.Int("frames", len(frames)),
		logging.String("dir", s.debugDir))
}
