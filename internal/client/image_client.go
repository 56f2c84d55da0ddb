package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/novaavatar/api/internal/config"
)

// ImageClient handles communication with the image generation API.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	outputDir  string
}

// GenerateImageRequest represents an image generation request
type GenerateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Style       string `json:"style,omitempty"`
}

// GenerateImageResponse represents the image generation response. The
// service returns either a download URL or inline base64 data.
type GenerateImageResponse struct {
	URL       string `json:"url,omitempty"`
	ImageData string `json:"image_data,omitempty"`
}

// NewImageClient creates a new image generation client
func NewImageClient(cfg *config.ImageConfig, outputDir string) *ImageClient {
	return &ImageClient{
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		outputDir: outputDir,
	}
}

// Generate requests an image for the prompt and saves it to the output
// directory, returning the local file path.
func (c *ImageClient) Generate(ctx context.Context, prompt, aspectRatio, style, outputName string) (string, error) {
	reqBody := GenerateImageRequest{
		Prompt:      prompt,
		AspectRatio: aspectRatio,
		Style:       style,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generate", bytes.NewReader(bodyBytes))
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

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result GenerateImageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	outPath := filepath.Join(c.outputDir, outputName+".png")
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	switch {
	case result.ImageData != "":
		data, err := base64.StdEncoding.DecodeString(result.ImageData)
		if err != nil {
			return "", fmt.Errorf("failed to decode image data: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write image: %w", err)
		}
	case result.URL != "":
		if err := c.download(ctx, result.URL, outPath); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("image API returned neither url nor data")
	}

	return outPath, nil
}

func (c *ImageClient) download(ctx context.Context, url, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download error (status %d)", resp.StatusCode)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ImageClient) IsConfigured() bool {
	return c.apiKey != ""
}
