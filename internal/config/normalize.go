package config

import "strings"

// normalize expands path fields and backfills zero values so that downstream
// consumers never see an unusable half-configured struct.
func (c *Config) normalize() error {
	var err error
	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir); err != nil {
		return err
	}
	if c.Storage.DatabasePath, err = expandPath(c.Storage.DatabasePath); err != nil {
		return err
	}
	if c.Logging.LogDir, err = expandPath(c.Logging.LogDir); err != nil {
		return err
	}

	c.Camera.Name = strings.TrimSpace(c.Camera.Name)
	c.Camera.Host = strings.TrimSpace(c.Camera.Host)
	c.Camera.Username = strings.TrimSpace(c.Camera.Username)
	c.ALPR.EngineURL = strings.TrimSuffix(strings.TrimSpace(c.ALPR.EngineURL), "/")
	c.Notifications.Webhook.URL = strings.TrimSpace(c.Notifications.Webhook.URL)
	c.Notifications.Telegram.BotToken = strings.TrimSpace(c.Notifications.Telegram.BotToken)
	c.Notifications.Telegram.ChatID = strings.TrimSpace(c.Notifications.Telegram.ChatID)

	if c.Camera.RTSPPort <= 0 {
		c.Camera.RTSPPort = defaultRTSPPort
	}
	if c.Camera.RecordingDuration <= 0 {
		c.Camera.RecordingDuration = defaultRecordingDuration
	}
	if c.Pipeline.DebounceSeconds <= 0 {
		c.Pipeline.DebounceSeconds = defaultDebounceSeconds
	}
	if c.Pipeline.DedupWindowSeconds <= 0 {
		c.Pipeline.DedupWindowSeconds = defaultDedupWindowSeconds
	}
	if c.ALPR.RequestTimeout <= 0 {
		c.ALPR.RequestTimeout = defaultALPRRequestTimeout
	}
	if c.Notifications.Webhook.RequestTimeout <= 0 {
		c.Notifications.Webhook.RequestTimeout = defaultWebhookTimeout
	}
	if c.Notifications.Telegram.RequestTimeout <= 0 {
		c.Notifications.Telegram.RequestTimeout = defaultTelegramTimeout
	}
	if c.Notifications.Telegram.UploadTimeout <= 0 {
		c.Notifications.Telegram.UploadTimeout = defaultUploadTimeout
	}
	return nil
}
