package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
)

// SpeechBackend adapts one TTS HTTP backend for the pipeline. Backends are
// interchangeable; the orchestrator tries them in the configured order.
type SpeechBackend struct {
	client    *client.TTSClient
	outputDir string
}

func NewSpeechBackend(c *client.TTSClient, outputDir string) *SpeechBackend {
	return &SpeechBackend{client: c, outputDir: outputDir}
}

// Name implements pipeline.SpeechSynthesizer
func (b *SpeechBackend) Name() string {
	return b.client.Name()
}

// Synthesize implements pipeline.SpeechSynthesizer
func (b *SpeechBackend) Synthesize(ctx context.Context, text, voice string) (*model.GeneratedAudio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	if voice == "" {
		voice = b.client.DefaultVoice()
	}
	name := "speech_" + uuid.New().String()[:8]

	if !b.client.IsConfigured() {
		path, err := b.writePlaceholder(name)
		if err != nil {
			return nil, err
		}
		return &model.GeneratedAudio{
			Path:     path,
			Voice:    voice,
			Backend:  b.client.Name(),
			Duration: estimateSpeechDuration(text),
		}, nil
	}

	path, err := b.client.Synthesize(ctx, text, voice, name)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	return &model.GeneratedAudio{
		Path:     path,
		Voice:    voice,
		Backend:  b.client.Name(),
		Duration: estimateSpeechDuration(text),
	}, nil
}

// estimateSpeechDuration approximates spoken length at 150 words per minute.
func estimateSpeechDuration(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / 150.0 * 60.0
}

// minimal valid WAV header for an empty 16-bit mono 16kHz clip
var placeholderWAV = []byte{
	'R', 'I', 'F', 'F', 0x24, 0x00, 0x00, 0x00, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x3e, 0x00, 0x00, 0x00, 0x7d, 0x00, 0x00, 0x02, 0x00, 0x10, 0x00,
	'd', 'a', 't', 'a', 0x00, 0x00, 0x00, 0x00,
}

func (b *SpeechBackend) writePlaceholder(name string) (string, error) {
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(b.outputDir, name+".wav")
	if err := os.WriteFile(path, placeholderWAV, 0o644); err != nil {
		return "", fmt.Errorf("failed to write placeholder audio: %w", err)
	}
	return path, nil
}
