// Package speech proxies audio buffers to an external transcription service.
package speech

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

	"github.com/empathyai/companion/internal/config"
)

var ErrNotConfigured = errors.New("recognizer endpoint not configured")

// Recognizer posts multipart audio to the configured endpoint and returns the
// transcript.
type Recognizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRecognizer builds a recognizer from configuration. A nil return means
// transcription is disabled for this deployment.
func NewRecognizer(cfg config.RecognizerConfig) *Recognizer {
	if !cfg.Enabled {
		return nil
	}
	return &Recognizer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the audio buffer and returns the recognized text.
func (r *Recognizer) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if r == nil {
		return "", ErrNotConfigured
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("audio buffer is empty")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, payload)
	}

	var decoded transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return decoded.Text, nil
}
