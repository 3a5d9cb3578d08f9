package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// PlaceholderPassword is the camera password shipped in the sample config.
// The daemon refuses to connect while it is still in place and idles in a
// "waiting for configuration" state instead.
const PlaceholderPassword = "CHANGE_ME"

// Camera contains connection settings for the monitored Reolink camera.
type Camera struct {
	Name              string `toml:"name"`
	Host              string `toml:"host"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	Channel           int    `toml:"channel"`
	RTSPPort          int    `toml:"rtsp_port"`
	RecordingDuration int    `toml:"recording_duration"`
}

// ALPR contains settings for the plate recognition engine sidecar.
type ALPR struct {
	EngineURL      string  `toml:"engine_url"`
	DetectionModel string  `toml:"detection_model"`
	OCRModel       string  `toml:"ocr_model"`
	MinConfidence  float64 `toml:"min_confidence"`
	RequestTimeout int     `toml:"request_timeout"`
}

// Pipeline contains timing parameters for the detection pipeline.
type Pipeline struct {
	DebounceSeconds    float64 `toml:"debounce_seconds"`
	DedupWindowSeconds int     `toml:"dedup_window_seconds"`
}

// Recording contains optional camera ISP adjustments applied around a capture.
type Recording struct {
	BeforeEnabled  bool           `toml:"before_enabled"`
	BeforeSettings map[string]any `toml:"before_settings"`
	AfterEnabled   bool           `toml:"after_enabled"`
	AfterSettings  map[string]any `toml:"after_settings"`
}

// Webhook contains configuration for webhook-style push notifications.
type Webhook struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Telegram contains configuration for Telegram bot notifications.
type Telegram struct {
	Enabled        bool   `toml:"enabled"`
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	RequestTimeout int    `toml:"request_timeout"`
	UploadTimeout  int    `toml:"upload_timeout"`
}

// Notifications groups the notification channel settings.
type Notifications struct {
	Enabled  bool     `toml:"enabled"`
	Webhook  Webhook  `toml:"webhook"`
	Telegram Telegram `toml:"telegram"`
}

// Storage contains paths for the event database and saved images.
type Storage struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	LogDir string `toml:"log_dir"`
}

// API contains the bind address for the read-only status API.
type API struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for ReolinkANPR.
//
// Configuration sections by subsystem:
//   - Camera: camera host, credentials, channel, capture duration
//   - ALPR: recognition engine sidecar and confidence threshold
//   - Pipeline: debounce and dedup windows
//   - Recording: optional ISP settings applied before/after a capture
//   - Notifications: webhook and Telegram channels
//   - Storage: database and image paths
//   - Logging: log format, level, and directory
//   - API: read-only status API bind address
type Config struct {
	Camera        Camera        `toml:"camera"`
	ALPR          ALPR          `toml:"alpr"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Recording     Recording     `toml:"recording"`
	Notifications Notifications `toml:"notifications"`
	Storage       Storage       `toml:"storage"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/anpr/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean result reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("anpr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.ImagesDir(),
		c.DebugFramesDir(),
		filepath.Dir(c.Storage.DatabasePath),
	}
	if strings.TrimSpace(c.Logging.LogDir) != "" {
		dirs = append(dirs, c.Logging.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ImagesDir returns the directory where full-frame and crop images are saved.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.Storage.DataDir, "images")
}

// DebugFramesDir returns the directory where diagnostic frames are saved when
// a burst produced no accepted candidate.
func (c *Config) DebugFramesDir() string {
	return filepath.Join(c.Storage.DataDir, "debug_frames")
}

// FFmpegBinary returns the ffmpeg executable name used for capture.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// RTSPURL builds the main-stream RTSP locator for the configured camera.
// Reolink stream paths use 1-based channel numbering.
func (c *Config) RTSPURL() string {
	return fmt.Sprintf("rtsp://%s:%s@%s:%d/h264Preview_%02d_main",
		c.Camera.Username, c.Camera.Password, c.Camera.Host, c.Camera.RTSPPort, c.Camera.Channel+1)
}

// NeedsSetup reports whether the configuration still carries placeholder
// camera credentials.
func (c *Config) NeedsSetup() bool {
	return strings.TrimSpace(c.Camera.Password) == PlaceholderPassword ||
		strings.TrimSpace(c.Camera.Host) == ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
