package compositor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CompositionError carries the media tool's stderr verbatim when it exits
// non-zero, so job records show the real diagnostic.
type CompositionError struct {
	Stderr string
}

func (e *CompositionError) Error() string {
	if e.Stderr == "" {
		return "ffmpeg failed"
	}
	return e.Stderr
}

// runFFmpeg executes ffmpeg with the given argument list, raising a
// CompositionError on any non-zero exit.
func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &CompositionError{Stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}

// ProbeDuration returns a media file's duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration for %s: %w", path, err)
	}
	return duration, nil
}

// escapeFilterPath escapes special characters in file paths for ffmpeg
// filter syntax. Filter strings treat colons, backslashes, and single quotes
// specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}
