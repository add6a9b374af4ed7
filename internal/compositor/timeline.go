package compositor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Concatenate joins ordered scene clips into one file with a lossless stream
// copy. The input order is the final scene order; upstream must have sorted
// already.
func (c *Compositor) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(filepath.Dir(outputPath), "concat.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
	return runFFmpeg(ctx, args)
}

// BurnSubtitles re-encodes videoPath with the subtitle track composited into
// the pixels. This is the only re-encode after scene clips are built.
func (c *Compositor) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	filterArg := fmt.Sprintf("subtitles='%s'", escapeFilterPath(subtitlePath))
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", filterArg,
		"-c:a", "copy",
		outputPath,
	}
	return runFFmpeg(ctx, args)
}
