package main

import (
	"context"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

func seedEvent(t *testing.T, configPath, plate string) {
	t.Helper()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	if _, _, err := st.Admit(context.Background(), store.Event{
		PlateNumber: plate,
		Confidence:  0.95,
		FrameCount:  5,
	}); err != nil {
		t.Fatalf("Admit: %v", err)
	}
}

func TestEventsListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "events", "list")
	if err != nil {
		t.Fatalf("events list: %v", err)
	}
	requireContains(t, out, "No sightings recorded")
}

func TestEventsListShowsSeededSighting(t *testing.T) {
	configPath := writeTestConfig(t)
	seedEvent(t, configPath, "AB12CDE")

	out, err := runCLI(t, "--config", configPath, "events", "list")
	if err != nil {
		t.Fatalf("events list: %v", err)
	}
	requireContains(t, out, "AB12CDE")
	requireContains(t, out, "Showing 1 of 1 sightings")
}

func TestEventsListRejectsBadPeriod(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, "--config", configPath, "events", "list", "--period", "year"); err == nil {
		t.Fatal("expected invalid period to be rejected")
	}
}

func TestEventsClearWithConfirmation(t *testing.T) {
	configPath := writeTestConfig(t)
	seedEvent(t, configPath, "AB12CDE")

	out, err := runCLI(t, "--config", configPath, "events", "clear", "--yes")
	if err != nil {
		t.Fatalf("events clear: %v", err)
	}
	requireContains(t, out, "Deleted 1 sightings")

	out, err = runCLI(t, "--config", configPath, "events", "list")
	if err != nil {
		t.Fatalf("events list after clear: %v", err)
	}
	requireContains(t, out, "No sightings recorded")
}
