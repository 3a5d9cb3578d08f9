package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateALPR(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.Channel < 0 {
		return errors.New("camera.channel must be >= 0")
	}
	if c.Camera.RecordingDuration <= 0 {
		return errors.New("camera.recording_duration must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateALPR() error {
	if strings.TrimSpace(c.ALPR.EngineURL) == "" {
		return errors.New("alpr.engine_url must be set")
	}
	if c.ALPR.MinConfidence < 0 || c.ALPR.MinConfidence > 1 {
		return errors.New("alpr.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DebounceSeconds < 0 {
		return errors.New("pipeline.debounce_seconds must be >= 0")
	}
	if c.Pipeline.DedupWindowSeconds < 0 {
		return errors.New("pipeline.dedup_window_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if !c.Notifications.Enabled {
		return nil
	}
	if c.Notifications.Webhook.Enabled && strings.TrimSpace(c.Notifications.Webhook.URL) == "" {
		return errors.New("notifications.webhook.url must be set when notifications.webhook.enabled is true")
	}
	if c.Notifications.Telegram.Enabled {
		if strings.TrimSpace(c.Notifications.Telegram.BotToken) == "" {
			return errors.New("notifications.telegram.bot_token must be set when notifications.telegram.enabled is true")
		}
		if strings.TrimSpace(c.Notifications.Telegram.ChatID) == "" {
			return errors.New("notifications.telegram.chat_id must be set when notifications.telegram.enabled is true")
		}
	}
	return ensurePositiveMap(map[string]int{
		"notifications.webhook.request_timeout":  c.Notifications.Webhook.RequestTimeout,
		"notifications.telegram.request_timeout": c.Notifications.Telegram.RequestTimeout,
		"notifications.telegram.upload_timeout":  c.Notifications.Telegram.UploadTimeout,
	})
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errors.New("storage.data_dir must be set")
	}
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		return errors.New("storage.database_path must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
