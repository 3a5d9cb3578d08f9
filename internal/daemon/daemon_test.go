package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/store"
	"github.com/Harky911/ReolinkANPR/internal/testsupport"
)

func newWaitingDaemon(t *testing.T) (*Daemon, *store.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	// Placeholder credentials keep the daemon in waiting mode, so tests
	// never reach for a real camera.
	cfg.Camera.Password = config.PlaceholderPassword

	st := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, st, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, st
}

func TestStartDegradesToWaitingModeWithoutCredentials(t *testing.T) {
	d, _ := newWaitingDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if d.Mode() != ModeWaitingForConfiguration {
		t.Fatalf("expected waiting mode, got %q", d.Mode())
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	d, st := newWaitingDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, st, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	second.api = nil
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected by the lock")
	}
}

func TestStatusAPIServesStatusAndEvents(t *testing.T) {
	d, st := newWaitingDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, _, err := st.Admit(ctx, store.Event{PlateNumber: "AB12CDE", Confidence: 0.95, FrameCount: 5}); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	base := "http://" + d.api.Addr()

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Mode != ModeWaitingForConfiguration {
		t.Fatalf("unexpected mode %q", status.Mode)
	}
	if status.EventsTotal != 1 {
		t.Fatalf("expected 1 event, got %d", status.EventsTotal)
	}

	eventsResp, err := http.Get(base + "/api/events?search=AB12")
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer eventsResp.Body.Close()
	var list eventListResponse
	if err := json.NewDecoder(eventsResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if list.Total != 1 || len(list.Events) != 1 || list.Events[0].PlateNumber != "AB12CDE" {
		t.Fatalf("unexpected events response: %+v", list)
	}

	one, err := http.Get(fmt.Sprintf("%s/api/events/%d", base, list.Events[0].ID))
	if err != nil {
		t.Fatalf("GET /api/events/{id}: %v", err)
	}
	defer one.Body.Close()
	if one.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", one.StatusCode)
	}

	missing, err := http.Get(base + "/api/events/99999")
	if err != nil {
		t.Fatalf("GET missing event: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}
