package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
)

// AvatarRenderer drives the external avatar render service through its
// submit/poll/download cycle.
type AvatarRenderer struct {
	client    *client.AvatarClient
	outputDir string
}

func NewAvatarRenderer(c *client.AvatarClient, outputDir string) *AvatarRenderer {
	return &AvatarRenderer{client: c, outputDir: outputDir}
}

// Render implements pipeline.VideoRenderer
func (r *AvatarRenderer) Render(ctx context.Context, prompt, imagePath, audioPath, outputName string) (*model.AvatarVideo, error) {
	if r.client == nil || !r.client.IsConfigured() {
		return r.renderMock(prompt, outputName)
	}

	submitted, err := r.client.SubmitRender(ctx, prompt, imagePath, audioPath)
	if err != nil {
		return nil, fmt.Errorf("render submission failed: %w", err)
	}

	result, err := r.client.PollRender(ctx, submitted.TaskID)
	if err != nil {
		return nil, fmt.Errorf("render task %s failed: %w", submitted.TaskID, err)
	}

	path, err := r.client.Download(ctx, result.VideoURL, outputName)
	if err != nil {
		return nil, fmt.Errorf("failed to download rendered video: %w", err)
	}

	video := &model.AvatarVideo{
		Path:     path,
		Prompt:   prompt,
		Duration: result.Duration,
	}
	if info, err := os.Stat(path); err == nil {
		video.SizeBytes = info.Size()
	}
	return video, nil
}

// Mock implementation for development/testing
func (r *AvatarRenderer) renderMock(prompt, outputName string) (*model.AvatarVideo, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(r.outputDir, outputName+".mp4")
	if err := os.WriteFile(path, []byte("mock video data"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write mock video: %w", err)
	}
	return &model.AvatarVideo{
		Path:     path,
		Prompt:   prompt,
		Duration: 30,
	}, nil
}
