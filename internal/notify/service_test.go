package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
)

type stubChannel struct {
	label  string
	err    error
	calls  int
	plates []string
}

func (s *stubChannel) name() string { return s.label }

func (s *stubChannel) notify(_ context.Context, plate string, _ float64, _ string) error {
	s.calls++
	s.plates = append(s.plates, plate)
	return s.err
}

func (s *stubChannel) test(context.Context) error { return s.err }

func TestNewServiceDisabledReturnsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Enabled = false
	if _, ok := NewService(&cfg, nil).(noopService); !ok {
		t.Fatal("expected noop service when notifications are disabled")
	}

	cfg.Notifications.Enabled = true
	// Enabled globally but no channel configured.
	if _, ok := NewService(&cfg, nil).(noopService); !ok {
		t.Fatal("expected noop service when no channel is configured")
	}
}

func TestDispatcherIsolatesChannelFailures(t *testing.T) {
	failing := &stubChannel{label: "first", err: errors.New("boom")}
	healthy := &stubChannel{label: "second"}
	d := &dispatcher{channels: []channel{failing, healthy}, logger: logging.NewNop()}

	d.NotifySighting(context.Background(), "AB12CDE", 0.95, "")

	if failing.calls != 1 || healthy.calls != 1 {
		t.Fatalf("expected both channels attempted, got %d/%d", failing.calls, healthy.calls)
	}
	if healthy.plates[0] != "AB12CDE" {
		t.Fatalf("unexpected plate: %q", healthy.plates[0])
	}
}

func TestWebhookSendsExpectedJSON(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := newWebhookChannel(config.Webhook{Enabled: true, URL: server.URL, RequestTimeout: 5})
	if err := ch.notify(context.Background(), "AB12CDE", 0.95, "/data/images/x.jpg"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.PlateNumber != "AB12CDE" || got.Confidence != 0.95 || got.ImagePath != "/data/images/x.jpg" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	ch := newWebhookChannel(config.Webhook{Enabled: true, URL: server.URL})
	if err := ch.notify(context.Background(), "AB12CDE", 0.95, ""); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestTelegramSendsPhotoWhenImageExists(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "sighting.jpg")
	if err := os.WriteFile(imagePath, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		if strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("chat_id") != "12345" {
				t.Errorf("unexpected chat_id %q", r.FormValue("chat_id"))
			}
			if _, _, err := r.FormFile("photo"); err != nil {
				t.Errorf("missing photo part: %v", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := newTelegramChannel(config.Telegram{Enabled: true, BotToken: "token", ChatID: "12345"})
	ch.WithAPIBase(server.URL)

	if err := ch.notify(context.Background(), "AB12CDE", 0.95, imagePath); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.HasSuffix(gotMethod, "/sendPhoto") {
		t.Fatalf("expected sendPhoto, got %q", gotMethod)
	}
}

func TestTelegramFallsBackToTextWithoutImage(t *testing.T) {
	var gotMethod, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotText = r.FormValue("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := newTelegramChannel(config.Telegram{Enabled: true, BotToken: "token", ChatID: "12345"})
	ch.WithAPIBase(server.URL)

	if err := ch.notify(context.Background(), "AB12CDE", 0.95, "/missing/image.jpg"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.HasSuffix(gotMethod, "/sendMessage") {
		t.Fatalf("expected sendMessage fallback, got %q", gotMethod)
	}
	if !strings.Contains(gotText, "AB12CDE") {
		t.Fatalf("expected plate in message text, got %q", gotText)
	}
}
