package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
)

const userAgent = "ReolinkANPR/1.0"

// webhookChannel posts a JSON body to a configured endpoint, typically a Home
// Assistant automation webhook.
type webhookChannel struct {
	url    string
	client *http.Client
}

func newWebhookChannel(cfg config.Webhook) *webhookChannel {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webhookChannel{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *webhookChannel) name() string { return "webhook" }

type webhookPayload struct {
	PlateNumber string  `json:"plate_number"`
	Confidence  float64 `json:"confidence"`
	ImagePath   string  `json:"image_path"`
}

func (w *webhookChannel) notify(ctx context.Context, plate string, confidence float64, imagePath string) error {
	return w.send(ctx, webhookPayload{
		PlateNumber: plate,
		Confidence:  confidence,
		ImagePath:   imagePath,
	})
}

func (w *webhookChannel) test(ctx context.Context) error {
	return w.send(ctx, webhookPayload{PlateNumber: "TEST123", Confidence: 1.0})
}

func (w *webhookChannel) send(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
