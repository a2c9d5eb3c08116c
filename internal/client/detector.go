package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/empathyai/companion/internal/analysis/emotion"
)

// ErrDetectorUnavailable means the expression detector failed to load and
// facial detection is off for the rest of the session.
var ErrDetectorUnavailable = errors.New("expression detector unavailable")

// HTTPDetector scores expressions by posting frames to a detection service.
type HTTPDetector struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPDetector talks to the detection service at endpoint.
func NewHTTPDetector(endpoint string) *HTTPDetector {
	return &HTTPDetector{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Load probes the service so a dead endpoint is caught before polling starts.
func (d *HTTPDetector) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("detector unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detector health check returned %d", resp.StatusCode)
	}
	return nil
}

// Detect posts one frame and decodes the per-face expression scores.
func (d *HTTPDetector) Detect(ctx context.Context, frame Frame) ([]emotion.Scores, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write frame part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %d", resp.StatusCode)
	}

	var payload struct {
		Faces []map[string]float64 `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}

	detections := make([]emotion.Scores, 0, len(payload.Faces))
	for _, face := range payload.Faces {
		scores := make(emotion.Scores, len(face))
		for name, value := range face {
			scores[emotion.Label(name)] = value
		}
		detections = append(detections, scores)
	}
	return detections, nil
}
