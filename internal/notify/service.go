package notify

import (
	"context"
	"log/slog"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
)

// Service is the notification surface exposed to the pipeline.
type Service interface {
	// NotifySighting announces one newly persisted plate sighting.
	NotifySighting(ctx context.Context, plate string, confidence float64, imagePath string)
	// Test sends a test message on every enabled channel and reports
	// per-channel errors, for the CLI.
	Test(ctx context.Context) map[string]error
}

// channel is one independent delivery target.
type channel interface {
	name() string
	notify(ctx context.Context, plate string, confidence float64, imagePath string) error
	test(ctx context.Context) error
}

// NewService builds the dispatcher for the enabled channels. When
// notifications are globally disabled or no channel is configured, a noop
// implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if !cfg.Notifications.Enabled {
		return noopService{}
	}

	var channels []channel
	if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL != "" {
		channels = append(channels, newWebhookChannel(cfg.Notifications.Webhook))
	}
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken != "" {
		channels = append(channels, newTelegramChannel(cfg.Notifications.Telegram))
	}
	if len(channels) == 0 {
		return noopService{}
	}

	return &dispatcher{
		channels: channels,
		logger:   logging.NewComponentLogger(logger, "notify"),
	}
}

type dispatcher struct {
	channels []channel
	logger   *slog.Logger
}

// NotifySighting attempts every channel independently. A failing channel is
// logged and never prevents the others from being attempted.
func (d *dispatcher) NotifySighting(ctx context.Context, plate string, confidence float64, imagePath string) {
	for _, ch := range d.channels {
		if err := ch.notify(ctx, plate, confidence, imagePath); err != nil {
			d.logger.Warn("notification channel failed",
				logging.String("channel", ch.name()),
				logging.String(logging.FieldPlate, plate),
				logging.Error(err))
			continue
		}
		d.logger.Info("notification sent",
			logging.String("channel", ch.name()),
			logging.String(logging.FieldPlate, plate))
	}
}

func (d *dispatcher) Test(ctx context.Context) map[string]error {
	results := make(map[string]error, len(d.channels))
	for _, ch := range d.channels {
		results[ch.name()] = ch.test(ctx)
	}
	return results
}

type noopService struct{}

func (noopService) NotifySighting(context.Context, string, float64, string) {}

func (noopService) Test(context.Context) map[string]error { return nil }
