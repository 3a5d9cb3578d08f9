package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init without --overwrite to fail for an existing file")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsPassword(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "<redacted>")
	if strings.Contains(out, "test-password") {
		t.Fatalf("password leaked in output:\n%s", out)
	}
}
