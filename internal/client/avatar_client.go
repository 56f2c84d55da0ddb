package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/novaavatar/api/internal/config"
)

// AvatarClient handles communication with the avatar render service, a
// GPU-backed API that animates a still image to match an audio track.
// Rendering is long-running: the client submits a task and polls for
// completion.
type AvatarClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	outputDir    string
	pollInterval time.Duration
	maxWait      time.Duration
}

// RenderRequest represents an avatar render submission
type RenderRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// RenderSubmitResponse represents the submission acknowledgement
type RenderSubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// RenderResult represents a render task's state
type RenderResult struct {
	TaskID   string  `json:"task_id"`
	Status   string  `json:"status"`
	VideoURL string  `json:"video_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// NewAvatarClient creates a new avatar render client
func NewAvatarClient(cfg *config.AvatarConfig, outputDir string) *AvatarClient {
	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	maxWait := time.Duration(cfg.MaxWaitSec) * time.Second
	if maxWait <= 0 {
		maxWait = 20 * time.Minute
	}
	return &AvatarClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		outputDir:    outputDir,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// SubmitRender starts a render task from local image and audio files. The
// files are uploaded as a multipart form together with the prompt.
func (c *AvatarClient) SubmitRender(ctx context.Context, prompt, imagePath, audioPath string) (*RenderSubmitResponse, error) {
	body, contentType, err := buildRenderForm(prompt, imagePath, audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/render", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result RenderSubmitResponse
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRenderStatus retrieves the state of a render task
func (c *AvatarClient) GetRenderStatus(ctx context.Context, taskID string) (*RenderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/render/%s", c.baseURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result RenderResult
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollRender polls a render task until it completes, fails, or the wait
// budget is exhausted.
func (c *AvatarClient) PollRender(ctx context.Context, taskID string) (*RenderResult, error) {
	deadline := time.Now().Add(c.maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		result, err := c.GetRenderStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}

		log.Printf("[Avatar API] Poll render #%d (task=%s) status: %s", attempt, taskID, result.Status)

		switch result.Status {
		case "completed", "success":
			return result, nil
		case "failed", "error":
			return nil, fmt.Errorf("render task failed: %s", result.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return nil, fmt.Errorf("render task %s timed out after %s", taskID, c.maxWait)
}

// Download fetches the finished video into the output directory and
// returns the local path.
func (c *AvatarClient) Download(ctx context.Context, videoURL, outputName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("video download error (status %d)", resp.StatusCode)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := filepath.Join(c.outputDir, outputName+".mp4")

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create video file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}

	return outPath, nil
}

func (c *AvatarClient) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("avatar API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AvatarClient) IsConfigured() bool {
	return c.baseURL != ""
}

func buildRenderForm(prompt, imagePath, audioPath string) (io.Reader, string, error) {
	// Small files only (a still image and one narration clip), so the form
	// is buffered in memory.
	var buf bytes.Buffer
	w := newMultipartWriter(&buf)

	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, "", err
	}
	if err := w.WriteFile("image", imagePath); err != nil {
		return nil, "", err
	}
	if err := w.WriteFile("audio", audioPath); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
