package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/novaavatar/api/internal/config"
)

// TTSClient handles communication with one text-to-speech backend. The
// orchestrator is configured with an ordered list of these, so any backend
// exposing the same HTTP shape is interchangeable.
type TTSClient struct {
	httpClient *http.Client
	name       string
	baseURL    string
	apiKey     string
	voice      string
	outputDir  string
}

// SynthesizeRequest represents a speech synthesis request
type SynthesizeRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// NewTTSClient creates a client for one TTS backend
func NewTTSClient(cfg *config.TTSBackendConfig, outputDir string) *TTSClient {
	return &TTSClient{
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		name:      cfg.Name,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		voice:     cfg.Voice,
		outputDir: outputDir,
	}
}

// Name identifies this backend in logs and job notes.
func (c *TTSClient) Name() string {
	return c.name
}

// DefaultVoice returns the backend's configured voice.
func (c *TTSClient) DefaultVoice() string {
	return c.voice
}

// Synthesize converts text to speech and saves the audio to the output
// directory, returning the local file path.
func (c *TTSClient) Synthesize(ctx context.Context, text, voice, outputName string) (string, error) {
	if voice == "" {
		voice = c.voice
	}

	reqBody := SynthesizeRequest{
		Text:  text,
		Voice: voice,
		Speed: 1.0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tts API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := filepath.Join(c.outputDir, outputName+".wav")

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}

	return outPath, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *TTSClient) IsConfigured() bool {
	return c.baseURL != ""
}
