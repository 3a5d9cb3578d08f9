package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/retry"
	"github.com/Harky911/ReolinkANPR/internal/services"
)

const (
	settingsRetryAttempts = 2
	settingsRetryDelay    = 300 * time.Millisecond
)

// RecordingMode selects which configured ISP adjustment to apply.
type RecordingMode string

const (
	BeforeRecording RecordingMode = "before"
	AfterRecording  RecordingMode = "after"
)

// Settings applies camera-side adjustments around a capture: ISP tuning for
// plate readability and the RTSP enablement check at startup.
type Settings struct {
	client    Client
	channel   int
	rtspPort  int
	recording config.Recording
	logger    *slog.Logger
}

// NewSettings builds a settings applier bound to a camera client.
func NewSettings(cfg *config.Config, client Client, logger *slog.Logger) *Settings {
	return &Settings{
		client:    client,
		channel:   cfg.Camera.Channel,
		rtspPort:  cfg.Camera.RTSPPort,
		recording: cfg.Recording,
		logger:    logging.NewComponentLogger(logger, "camera-settings"),
	}
}

// ApplyRecordingSettings pushes the configured before/after ISP adjustment.
// Best-effort: failures are retried once after a short delay, then logged and
// swallowed so they never abort a pipeline run.
func (s *Settings) ApplyRecordingSettings(ctx context.Context, mode RecordingMode) {
	var (
		enabled  bool
		settings map[string]any
	)
	switch mode {
	case BeforeRecording:
		enabled, settings = s.recording.BeforeEnabled, s.recording.BeforeSettings
	case AfterRecording:
		enabled, settings = s.recording.AfterEnabled, s.recording.AfterSettings
	default:
		return
	}
	if !enabled || len(settings) == 0 {
		return
	}

	label := fmt.Sprintf("%s-recording settings", mode)
	retry.BestEffort(ctx, s.logger, label, settingsRetryAttempts, settingsRetryDelay,
		func(ctx context.Context) error {
			return s.SetISP(ctx, settings)
		})
}

// SetISP pushes the given ISP fields for the configured channel. Only the
// supplied fields are sent; Auto exposure additionally carries full gain and
// shutter ranges, which the camera requires to switch modes.
func (s *Settings) SetISP(ctx context.Context, settings map[string]any) error {
	isp := map[string]any{"channel": s.channel}
	for key, value := range settings {
		isp[key] = value
	}
	if exposure, ok := settings["exposure"].(string); ok && exposure == "Auto" {
		if _, present := settings["gain"]; !present {
			isp["gain"] = map[string]any{"min": 1, "max": 100}
		}
		if _, present := settings["shutter"]; !present {
			isp["shutter"] = map[string]any{"min": 0, "max": 125}
		}
	}

	results, err := s.client.SendRawCommand(ctx, []Command{{
		Cmd:    "SetIsp",
		Action: 0,
		Param:  map[string]any{"Isp": isp},
	}})
	if err != nil {
		return err
	}
	if len(results) == 0 || results[0].Code != 0 {
		return services.Wrap(services.ErrExternalTool, "camera", "set-isp",
			fmt.Sprintf("SetIsp rejected: %s", resultDetail(results)), nil)
	}
	s.logger.Info("ISP settings applied", logging.Int("fields", len(settings)))
	return nil
}

// GetISP reads the current ISP settings for the configured channel.
func (s *Settings) GetISP(ctx context.Context) (map[string]any, error) {
	results, err := s.client.SendRawCommand(ctx, []Command{{
		Cmd:    "GetIsp",
		Action: 1,
		Param:  map[string]any{"channel": s.channel},
	}})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].Code != 0 {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "get-isp",
			fmt.Sprintf("GetIsp failed: %s", resultDetail(results)), nil)
	}

	var value struct {
		Isp map[string]any `json:"Isp"`
	}
	if err := json.Unmarshal(results[0].Value, &value); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "get-isp", "decode GetIsp value", err)
	}
	return value.Isp, nil
}

// EnsureRTSPEnabled checks the camera's network port settings and enables the
// RTSP server when it is off. Some firmwares ship with RTSP disabled, which
// would make every capture fail silently.
func (s *Settings) EnsureRTSPEnabled(ctx context.Context) error {
	results, err := s.client.SendRawCommand(ctx, []Command{{
		Cmd:    "GetNetPort",
		Action: 0,
		Param:  map[string]any{"channel": 0},
	}})
	if err != nil {
		return err
	}
	if len(results) == 0 || results[0].Code != 0 {
		return services.Wrap(services.ErrExternalTool, "camera", "net-port",
			fmt.Sprintf("GetNetPort failed: %s", resultDetail(results)), nil)
	}

	var value struct {
		NetPort struct {
			RTSPEnable int `json:"rtspEnable"`
			RTSPPort   int `json:"rtspPort"`
		} `json:"NetPort"`
	}
	if err := json.Unmarshal(results[0].Value, &value); err != nil {
		return services.Wrap(services.ErrExternalTool, "camera", "net-port", "decode GetNetPort value", err)
	}

	if value.NetPort.RTSPEnable != 0 {
		s.logger.Debug("RTSP already enabled", logging.Int("port", value.NetPort.RTSPPort))
		return nil
	}

	s.logger.Warn("RTSP disabled on camera, enabling")
	enableResults, err := s.client.SendRawCommand(ctx, []Command{{
		Cmd:    "SetNetPort",
		Action: 0,
		Param: map[string]any{
			"NetPort": map[string]any{
				"rtspEnable": 1,
				"rtspPort":   s.rtspPort,
			},
		},
	}})
	if err != nil {
		return err
	}
	if len(enableResults) == 0 || enableResults[0].Code != 0 {
		return services.Wrap(services.ErrExternalTool, "camera", "net-port",
			fmt.Sprintf("SetNetPort rejected: %s", resultDetail(enableResults)), nil)
	}
	s.logger.Info("RTSP enabled", logging.Int("port", s.rtspPort))
	return nil
}
