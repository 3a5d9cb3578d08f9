package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckBinary verifies an external executable is present on PATH.
func CheckBinary(name, command, description string) Result {
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found (%s)", command, description)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckALPREngine verifies the recognition sidecar answers HTTP requests.
// Any HTTP response counts as reachable; the engine may not expose a health
// endpoint.
func CheckALPREngine(ctx context.Context, engineURL string) Result {
	const name = "ALPR engine"

	base := strings.TrimRight(strings.TrimSpace(engineURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "engine URL not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	return Result{Name: name, Passed: true, Detail: base}
}
