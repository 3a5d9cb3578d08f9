package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harky911/ReolinkANPR/internal/camera"
	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/recognition"
	"github.com/Harky911/ReolinkANPR/internal/services"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

// Recorder captures a timed burst of frames from the camera stream.
type Recorder interface {
	Capture(ctx context.Context) ([][]byte, error)
}

// Selector picks the best plate sighting from a burst.
type Selector interface {
	Select(ctx context.Context, frames [][]byte) (*recognition.Sighting, error)
}

// Admitter applies the dedup check-then-insert contract.
type Admitter interface {
	Admit(ctx context.Context, event store.Event) (int64, bool, error)
}

// SettingsApplier pushes best-effort camera adjustments around a capture.
type SettingsApplier interface {
	ApplyRecordingSettings(ctx context.Context, mode camera.RecordingMode)
}

// Notifier fans a confirmed sighting out to the configured channels.
type Notifier interface {
	NotifySighting(ctx context.Context, plate string, confidence float64, imagePath string)
}

// AIStateQuerier confirms what kind of motion the camera saw.
type AIStateQuerier interface {
	QueryAIState(ctx context.Context, channel int) (camera.AIState, error)
}

// Orchestrator ties motion events to the detection pipeline. It owns the
// session and guarantees at most one run from confirmation through
// finalization at a time.
type Orchestrator struct {
	channel  int
	debounce time.Duration

	aiState  AIStateQuerier
	settings SettingsApplier
	recorder Recorder
	selector Selector
	admitter Admitter
	notifier Notifier

	session *Session
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewOrchestrator wires the pipeline collaborators around a fresh session.
func NewOrchestrator(
	cfg *config.Config,
	session *Session,
	aiState AIStateQuerier,
	settings SettingsApplier,
	recorder Recorder,
	selector Selector,
	admitter Admitter,
	notifier Notifier,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		channel:  cfg.Camera.Channel,
		debounce: time.Duration(cfg.Pipeline.DebounceSeconds * float64(time.Second)),
		aiState:  aiState,
		settings: settings,
		recorder: recorder,
		selector: selector,
		admitter: admitter,
		notifier: notifier,
		session:  session,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Session exposes the pipeline state for status reporting.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// HandleMotion is the camera push-event callback. It performs only the
// debounce check inline and schedules the pipeline run on its own goroutine,
// so the event-delivery path never blocks on I/O.
func (o *Orchestrator) HandleMotion(ctx context.Context, event camera.MotionEvent) {
	if event.ReceivedAt.Sub(o.session.ConnectedAt()) < o.debounce {
		o.logger.Debug("motion within debounce window, treating as connection noise")
		return
	}
	o.session.RecordMotion(event.ReceivedAt)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx)
	}()
}

// Wait blocks until every scheduled run has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run executes one pipeline pass: Confirming, Capturing, Recognizing,
// Finalizing. Nothing thrown inside a run escapes to the caller; any failure
// logs and returns the pipeline to idle with the lock released.
func (o *Orchestrator) run(ctx context.Context) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline run panicked", logging.Any("panic", r))
		}
	}()

	state, err := o.aiState.QueryAIState(services.WithStage(ctx, "confirming"), o.channel)
	if err != nil {
		logger.Warn("AI state query failed, dropping event", logging.Error(err))
		return
	}
	if !state.Vehicle {
		logger.Debug("non-vehicle motion ignored",
			logging.String("seen", describeAIState(state)))
		return
	}

	if !o.session.TryAcquire() {
		logger.Info("pipeline busy, dropping motion event")
		return
	}
	defer o.session.Release()

	logger.Info("vehicle motion confirmed, starting run")

	captureCtx := services.WithStage(ctx, "capturing")
	o.settings.ApplyRecordingSettings(captureCtx, camera.BeforeRecording)
	frames, err := o.recorder.Capture(captureCtx)
	if err != nil {
		logging.WithContext(captureCtx, o.logger).Warn("capture failed", logging.Error(err))
		return
	}

	recognizeCtx := services.WithStage(ctx, "recognizing")
	sighting, selectErr := o.selector.Select(recognizeCtx, frames)
	o.settings.ApplyRecordingSettings(recognizeCtx, camera.AfterRecording)
	if selectErr != nil {
		logging.WithContext(recognizeCtx, o.logger).Warn("selection failed", logging.Error(selectErr))
		return
	}
	if sighting == nil {
		logger.Info("no plate found in burst")
		return
	}

	o.finalize(services.WithStage(ctx, "finalizing"), sighting)
}

func (o *Orchestrator) finalize(ctx context.Context, sighting *recognition.Sighting) {
	logger := logging.WithContext(ctx, o.logger).With(
		logging.String(logging.FieldPlate, sighting.Plate))

	id, isNew, err := o.admitter.Admit(ctx, store.Event{
		PlateNumber:    sighting.Plate,
		Confidence:     sighting.Confidence,
		ImagePath:      sighting.ImagePath,
		PlateCropPath:  sighting.CropPath,
		BoxCoordinates: sighting.Box.String(),
		FrameCount:     sighting.FrameCount,
	})
	if err != nil {
		logger.Error("persist sighting failed", logging.Error(err))
		return
	}
	if !isNew {
		logger.Info("repeat sighting within dedup window, skipping notification",
			logging.Int64("event_id", id))
		return
	}

	logger.Info("new sighting recorded",
		logging.Int64("event_id", id),
		logging.Float64("confidence", sighting.Confidence))
	o.notifier.NotifySighting(ctx, sighting.Plate, sighting.Confidence, sighting.ImagePath)
}

func describeAIState(state camera.AIState) string {
	var seen []string
	if state.Person {
		seen = append(seen, "person")
	}
	if state.Face {
		seen = append(seen, "face")
	}
	if state.Pet {
		seen = append(seen, "pet")
	}
	if len(seen) == 0 {
		return "none"
	}
	return strings.Join(seen, ",")
}
