package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
)

// telegramChannel delivers sightings through the Telegram Bot API. When the
// sighting image exists it goes out as a photo with caption; otherwise the
// channel falls back to a plain text message.
type telegramChannel struct {
	apiBase      string
	botToken     string
	chatID       string
	textClient   *http.Client
	uploadClient *http.Client
}

func newTelegramChannel(cfg config.Telegram) *telegramChannel {
	textTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	if textTimeout <= 0 {
		textTimeout = 10 * time.Second
	}
	uploadTimeout := time.Duration(cfg.UploadTimeout) * time.Second
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &telegramChannel{
		apiBase:      "https://api.telegram.org",
		botToken:     cfg.BotToken,
		chatID:       cfg.ChatID,
		textClient:   &http.Client{Timeout: textTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}
}

func (t *telegramChannel) name() string { return "telegram" }

// WithAPIBase overrides the Bot API endpoint, for tests.
func (t *telegramChannel) WithAPIBase(base string) {
	t.apiBase = strings.TrimRight(base, "/")
}

func (t *telegramChannel) notify(ctx context.Context, plate string, confidence float64, imagePath string) error {
	caption := fmt.Sprintf("🚗 Plate detected: %s (%.0f%%)", plate, confidence*100)
	if imagePath != "" {
		if _, err := os.Stat(imagePath); err == nil {
			return t.sendPhoto(ctx, imagePath, caption)
		}
	}
	return t.sendMessage(ctx, caption)
}

func (t *telegramChannel) test(ctx context.Context) error {
	return t.sendMessage(ctx, "🧪 ReolinkANPR notification test")
}

func (t *telegramChannel) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.botToken, method)
}

func (t *telegramChannel) sendMessage(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"),
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(t.textClient, req, "sendMessage")
}

func (t *telegramChannel) sendPhoto(ctx context.Context, imagePath, caption string) error {
	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open sighting image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption field: %w", err)
	}
	part, err := writer.CreateFormFile("photo", filepath.Base(imagePath))
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendPhoto"), &body)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return t.do(t.uploadClient, req, "sendPhoto")
}

func (t *telegramChannel) do(client *http.Client, req *http.Request, method string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram %s returned %d: %s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
