package recognition

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
	"github.com/Harky911/ReolinkANPR/internal/services"
)

const userAgent = "ReolinkANPR/1.0"

// BoundingBox is a plate region in pixel coordinates.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// String renders the box in the serialized form stored with an event.
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}

// Candidate is one detect+recognize result for a single frame.
type Candidate struct {
	Box        BoundingBox `json:"bbox"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

// Engine is the plate-recognition collaborator. DetectOnly is the cheap
// plate-region pass; DetectAndRecognize runs detection plus OCR.
type Engine interface {
	DetectOnly(ctx context.Context, image []byte) ([]BoundingBox, error)
	DetectAndRecognize(ctx context.Context, image []byte) ([]Candidate, error)
}

// Client talks to the ALPR engine sidecar over HTTP.
type Client struct {
	baseURL        string
	detectionModel string
	ocrModel       string
	client         *http.Client
}

// NewClient builds an engine client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.ALPR.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.ALPR.EngineURL, "/"),
		detectionModel: cfg.ALPR.DetectionModel,
		ocrModel:       cfg.ALPR.OCRModel,
		client:         &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Regions []BoundingBox `json:"regions"`
}

type recognizeResponse struct {
	Results []Candidate `json:"results"`
}

// DetectOnly runs the detection-only pass on one frame.
func (c *Client) DetectOnly(ctx context.Context, image []byte) ([]BoundingBox, error) {
	var parsed detectResponse
	if err := c.post(ctx, "/v1/detect", image, &parsed); err != nil {
		return nil, err
	}
	return parsed.Regions, nil
}

// DetectAndRecognize runs the full detect+OCR pass on one frame.
func (c *Client) DetectAndRecognize(ctx context.Context, image []byte) ([]Candidate, error) {
	var parsed recognizeResponse
	if err := c.post(ctx, "/v1/recognize", image, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

func (c *Client) post(ctx context.Context, path string, image []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(image))
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "recognition", "request", "build engine request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "image/jpeg")
	if c.detectionModel != "" {
		req.Header.Set("X-Detection-Model", c.detectionModel)
	}
	if c.ocrModel != "" {
		req.Header.Set("X-OCR-Model", c.ocrModel)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "recognition", "request", "call engine", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrExternalTool, "recognition", "request",
			fmt.Sprintf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, "recognition", "request", "decode engine response", err)
	}
	return nil
}
