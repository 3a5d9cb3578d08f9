package preflight

import (
	"context"

	"github.com/Harky911/ReolinkANPR/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBinary("FFmpeg", cfg.FFmpegBinary(), "required for RTSP capture and frame extraction"),
		CheckDirectoryAccess("Data directory", cfg.Storage.DataDir),
		CheckALPREngine(ctx, cfg.ALPR.EngineURL),
	}

	if cfg.NeedsSetup() {
		results = append(results, Result{
			Name:   "Camera credentials",
			Detail: "placeholder credentials, edit the config file",
		})
	} else {
		results = append(results, Result{
			Name:   "Camera credentials",
			Passed: true,
			Detail: cfg.Camera.Host,
		})
	}

	return results
}
