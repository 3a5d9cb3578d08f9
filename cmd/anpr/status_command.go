package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harky911/ReolinkANPR/internal/daemon"
	"github.com/Harky911/ReolinkANPR/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and preflight checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			status, statusErr := fetchDaemonStatus(cmd, ctx.apiBaseURL())
			switch {
			case ctx.apiBaseURL() == "":
				fmt.Fprintln(out, renderStatusLine("Status API", statusWarn, "not configured", colorize))
			case statusErr != nil:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError,
					fmt.Sprintf("not reachable (%v)", statusErr), colorize))
			default:
				renderDaemonStatus(cmd, status, colorize)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return nil
		},
	}
}

func fetchDaemonStatus(cmd *cobra.Command, base string) (daemon.Status, error) {
	var status daemon.Status
	if base == "" {
		return status, fmt.Errorf("status API not configured")
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, base+"/api/status", nil)
	if err != nil {
		return status, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return status, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("status API returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, err
	}
	return status, nil
}

func renderDaemonStatus(cmd *cobra.Command, status daemon.Status, colorize bool) {
	out := cmd.OutOrStdout()

	modeKind := statusWarn
	if status.Mode == daemon.ModeRunning {
		modeKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Mode", modeKind, string(status.Mode), colorize))

	camera := status.CameraHost
	if status.CameraName != "" {
		camera = fmt.Sprintf("%s (%s)", status.CameraName, status.CameraHost)
	}
	fmt.Fprintln(out, renderStatusLine("Camera", statusInfo, camera, colorize))
	fmt.Fprintln(out, renderStatusLine("Channel", statusInfo, strconv.Itoa(status.Channel), colorize))
	fmt.Fprintln(out, renderStatusLine("Sightings", statusInfo, strconv.Itoa(status.EventsTotal), colorize))

	lastMotion := "never"
	if !status.LastMotion.IsZero() {
		lastMotion = status.LastMotion.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintln(out, renderStatusLine("Last motion", statusInfo, lastMotion, colorize))

	if status.PipelineBusy {
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusWarn, "capture in progress", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Pipeline", statusOK, "idle", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
}
