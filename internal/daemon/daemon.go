package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/Harky911/ReolinkANPR/internal/camera"
	"github.com/Harky911/ReolinkANPR/internal/capture"
	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/notify"
	"github.com/Harky911/ReolinkANPR/internal/pipeline"
	"github.com/Harky911/ReolinkANPR/internal/recognition"
	"github.com/Harky911/ReolinkANPR/internal/retry"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

// Mode describes what the daemon is currently doing.
type Mode string

const (
	// ModeRunning means the camera is connected and events are flowing.
	ModeRunning Mode = "running"
	// ModeWaitingForConfiguration means the daemon is idle because the
	// camera is unreachable or the config still carries placeholders. It
	// stays alive so the operator can fix the config and restart.
	ModeWaitingForConfiguration Mode = "waiting_for_configuration"
	// ModeStopped means the daemon has not been started or was shut down.
	ModeStopped Mode = "stopped"
)

const (
	connectAttempts   = 3
	connectRetryDelay = 5 * time.Second
)

// Daemon owns the camera connection and the detection pipeline.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	camera   camera.Client
	settings *camera.Settings
	notifier notify.Service

	api      *apiServer
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc

	mu           sync.Mutex
	mode         Mode
	orchestrator *pipeline.Orchestrator
}

// Status is the daemon runtime snapshot reported over the API and CLI.
type Status struct {
	Mode         Mode      `json:"mode"`
	CameraName   string    `json:"camera_name"`
	CameraHost   string    `json:"camera_host"`
	Channel      int       `json:"channel"`
	EventsTotal  int       `json:"events_total"`
	LastMotion   time.Time `json:"last_motion"`
	PipelineBusy bool      `json:"pipeline_busy"`
	DatabasePath string    `json:"database_path"`
	LockFilePath string    `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := camera.NewReolink(cfg, logger)
	lockPath := filepath.Join(cfg.Storage.DataDir, "anprd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		camera:   client,
		settings: camera.NewSettings(cfg, client, logger),
		notifier: notify.NewService(cfg, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		mode:     ModeStopped,
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the API server, and brings the
// camera connection up. Camera failures degrade to the
// waiting-for-configuration mode instead of returning an error: only lock
// contention is fatal at startup.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another anprd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	if err := d.api.start(runCtx); err != nil {
		d.logger.Warn("status API failed to start", logging.Error(err))
	}

	if d.cfg.NeedsSetup() {
		d.setMode(ModeWaitingForConfiguration)
		d.logger.Warn("camera credentials not configured, waiting for configuration",
			logging.String("hint", "edit the config file and restart"))
		return nil
	}

	if err := d.connectCamera(runCtx); err != nil {
		d.setMode(ModeWaitingForConfiguration)
		d.logger.Error("camera unreachable after retries, waiting for configuration",
			logging.Error(err))
		return nil
	}

	d.setMode(ModeRunning)
	d.logger.Info("anprd started",
		logging.String("camera", d.cfg.Camera.Host),
		logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) connectCamera(ctx context.Context) error {
	err := retry.Do(ctx, d.logger, "camera connect", connectAttempts, connectRetryDelay,
		func(ctx context.Context) error {
			return d.camera.Connect(ctx)
		})
	if err != nil {
		return err
	}

	if err := d.settings.EnsureRTSPEnabled(ctx); err != nil {
		d.logger.Warn("RTSP enablement check failed, captures may not work", logging.Error(err))
	}

	session := pipeline.NewSession(time.Now())
	orchestrator := pipeline.NewOrchestrator(
		d.cfg,
		session,
		d.camera,
		d.settings,
		capture.NewRecorder(d.cfg, d.logger),
		recognition.NewSelector(d.cfg, recognition.NewClient(d.cfg), d.logger),
		d.store,
		d.notifier,
		d.logger,
	)

	d.camera.RegisterMotionCallback(func(event camera.MotionEvent) {
		orchestrator.HandleMotion(ctx, event)
	})
	if err := d.camera.SubscribeEvents(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.orchestrator = orchestrator
	d.mu.Unlock()
	return nil
}

// Stop shuts the pipeline down and releases the instance lock. In-flight runs
// finish before the camera connection closes.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.mu.Lock()
	orchestrator := d.orchestrator
	d.orchestrator = nil
	d.mu.Unlock()
	if orchestrator != nil {
		orchestrator.Wait()
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.camera.Close(closeCtx)
	d.api.stop()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.setMode(ModeStopped)
	d.running.Store(false)
	d.logger.Info("anprd stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) setMode(mode Mode) {
	d.mu.Lock()
	d.mode = mode
	d.mu.Unlock()
}

// Mode reports the current daemon mode.
func (d *Daemon) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	total, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Warn("event count failed", logging.Error(err))
	}

	status := Status{
		Mode:         d.Mode(),
		CameraName:   d.cfg.Camera.Name,
		CameraHost:   d.cfg.Camera.Host,
		Channel:      d.cfg.Camera.Channel,
		EventsTotal:  total,
		DatabasePath: d.cfg.Storage.DatabasePath,
		LockFilePath: d.lockPath,
	}

	d.mu.Lock()
	orchestrator := d.orchestrator
	d.mu.Unlock()
	if orchestrator != nil {
		status.LastMotion = orchestrator.Session().LastMotion()
		status.PipelineBusy = orchestrator.Session().Busy()
	}
	return status
}
