package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
)

// ImagePainter generates scene background images. When the image API is
// not configured it writes a placeholder file so the rest of the pipeline
// can run locally.
type ImagePainter struct {
	client    *client.ImageClient
	outputDir string
}

func NewImagePainter(c *client.ImageClient, outputDir string) *ImagePainter {
	return &ImagePainter{client: c, outputDir: outputDir}
}

// GenerateImage implements pipeline.ImageGenerator
func (p *ImagePainter) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.GeneratedImage, error) {
	name := "bg_" + uuid.New().String()[:8]

	if p.client == nil || !p.client.IsConfigured() {
		path, err := p.writePlaceholder(name)
		if err != nil {
			return nil, err
		}
		return &model.GeneratedImage{
			Path:   path,
			Prompt: prompt,
			Source: "generated",
		}, nil
	}

	path, err := p.client.Generate(ctx, prompt, aspectRatio, "photorealistic", name)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	return &model.GeneratedImage{
		Path:   path,
		Prompt: prompt,
		Style:  "photorealistic",
		Source: "generated",
	}, nil
}

// minimal 1x1 PNG, enough for downstream tools to open
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde, 0x00, 0x00, 0x00,
	0x0c, 0x49, 0x44, 0x41, 0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
	0x00, 0x00, 0x03, 0x00, 0x01, 0x87, 0xa1, 0x4e, 0xd4, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (p *ImagePainter) writePlaceholder(name string) (string, error) {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(p.outputDir, name+".png")
	if err := os.WriteFile(path, placeholderPNG, 0o644); err != nil {
		return "", fmt.Errorf("failed to write placeholder image: %w", err)
	}
	return path, nil
}
