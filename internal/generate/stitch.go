package generate

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
)

const transitionDuration = 0.3 // seconds of crossfade between clips

// FFmpegStitcher concatenates rendered clips into one video with ffmpeg.
// When ffmpeg is not on PATH it degrades to copying the first clip so
// local development without media tools still produces an artifact.
type FFmpegStitcher struct {
	outputDir string
}

func NewFFmpegStitcher(outputDir string) *FFmpegStitcher {
	return &FFmpegStitcher{outputDir: outputDir}
}

// Stitch implements pipeline.VideoStitcher. Clips are joined in the order
// given; callers are responsible for sorting.
func (s *FFmpegStitcher) Stitch(ctx context.Context, paths []string, outputName string, transitions bool) (*model.AvatarVideo, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no clips to stitch", pipeline.ErrStitchFailed)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := filepath.Join(s.outputDir, outputName+".mp4")

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return s.stitchMock(paths, outPath)
	}

	if len(paths) == 1 {
		transitions = false
	}

	if transitions {
		video, err := s.stitchWithTransitions(ctx, paths, outPath)
		if err == nil {
			return video, nil
		}
		log.Printf("[Stitch] crossfade failed, falling back to concat: %v", err)
	}
	return s.stitchSimple(ctx, paths, outPath)
}

func (s *FFmpegStitcher) stitchSimple(ctx context.Context, paths []string, outPath string) (*model.AvatarVideo, error) {
	listFile, err := s.writeConcatList(paths, outPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(listFile)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg concat: %v: %s", pipeline.ErrStitchFailed, err, tail(string(out), 300))
	}

	return s.finished(outPath)
}

func (s *FFmpegStitcher) stitchWithTransitions(ctx context.Context, paths []string, outPath string) (*model.AvatarVideo, error) {
	args := []string{}
	for _, p := range paths {
		args = append(args, "-i", p)
	}

	// Chain xfade filters: each clip crossfades into the next at an offset
	// of the cumulative duration so far minus the overlap.
	var filter strings.Builder
	lastLabel := "0:v"
	var cumulative float64
	for i := 1; i < len(paths); i++ {
		dur, err := s.probeDuration(ctx, paths[i-1])
		if err != nil {
			return nil, err
		}
		cumulative += dur - transitionDuration

		outLabel := fmt.Sprintf("v%d", i)
		if i == len(paths)-1 {
			outLabel = "outv"
		}
		fmt.Fprintf(&filter, "[%s][%d:v]xfade=transition=fade:duration=%.1f:offset=%.2f[%s];",
			lastLabel, i, transitionDuration, cumulative, outLabel)
		lastLabel = outLabel
	}

	args = append(args,
		"-filter_complex", strings.TrimSuffix(filter.String(), ";"),
		"-map", "[outv]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-y",
		outPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg xfade: %v: %s", pipeline.ErrStitchFailed, err, tail(string(out), 300))
	}

	return s.finished(outPath)
}

// writeConcatList writes the demuxer list next to the target video. The
// name is derived from the output so concurrent stitches never share it.
func (s *FFmpegStitcher) writeConcatList(paths []string, outPath string) (string, error) {
	listFile := strings.TrimSuffix(outPath, ".mp4") + "_concat.txt"
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve clip path %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	return listFile, nil
}

func (s *FFmpegStitcher) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output for %s: %w", path, err)
	}
	return dur, nil
}

func (s *FFmpegStitcher) finished(outPath string) (*model.AvatarVideo, error) {
	video := &model.AvatarVideo{Path: outPath}
	if dur, err := s.probeDuration(context.Background(), outPath); err == nil {
		video.Duration = dur
	}
	if info, err := os.Stat(outPath); err == nil {
		video.SizeBytes = info.Size()
	}
	return video, nil
}

// Mock implementation for development/testing
func (s *FFmpegStitcher) stitchMock(paths []string, outPath string) (*model.AvatarVideo, error) {
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read clip: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stitched video: %w", err)
	}
	return &model.AvatarVideo{Path: outPath, Duration: float64(len(paths)) * 10}, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
