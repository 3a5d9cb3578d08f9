package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a config file backed by temp storage and returns its
// path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[camera]
host = "192.0.2.10"
username = "admin"
password = "test-password"

[storage]
data_dir = %q
database_path = %q

[logging]
log_dir = %q

[api]
bind = ""
`,
		filepath.Join(dir, "data"),
		filepath.Join(dir, "data", "anpr.db"),
		filepath.Join(dir, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}
