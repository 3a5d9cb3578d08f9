package recognition_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harky911/ReolinkANPR/internal/recognition"
	"github.com/Harky911/ReolinkANPR/internal/testsupport"
)

func TestClientDetectAndRecognize(t *testing.T) {
	var gotPath, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"bbox":{"x1":10,"y1":20,"x2":110,"y2":60},"text":"ab12 cde","confidence":0.93}]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.ALPR.EngineURL = server.URL
	client := recognition.NewClient(cfg)

	candidates, err := client.DetectAndRecognize(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("DetectAndRecognize: %v", err)
	}
	if gotPath != "/v1/recognize" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.Text != "ab12 cde" || got.Confidence != 0.93 || got.Box.X2 != 110 {
		t.Fatalf("unexpected candidate: %+v", got)
	}
}

func TestClientDetectOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/detect" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"regions":[{"x1":1,"y1":2,"x2":3,"y2":4}]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.ALPR.EngineURL = server.URL
	client := recognition.NewClient(cfg)

	regions, err := client.DetectOnly(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("DetectOnly: %v", err)
	}
	if len(regions) != 1 || regions[0] != (recognition.BoundingBox{X1: 1, Y1: 2, X2: 3, Y2: 4}) {
		t.Fatalf("unexpected regions: %+v", regions)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.ALPR.EngineURL = server.URL
	client := recognition.NewClient(cfg)

	if _, err := client.DetectOnly(context.Background(), []byte("jpeg-bytes")); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
