package compositor

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Fixed output targets. Every scene clip is rendered at a constant frame
// rate so lossless concatenation never has to reconcile stream parameters.
var targetResolutions = map[string][2]int{
	"portrait":  {1080, 1920},
	"square":    {1080, 1080},
	"landscape": {1920, 1080},
}

const fallbackBackgroundColor = "0x141414"

// Resolution returns the output dimensions for an orientation tag,
// defaulting to landscape for anything unrecognized.
func Resolution(orientation string) (int, int) {
	if res, ok := targetResolutions[orientation]; ok {
		return res[0], res[1]
	}
	res := targetResolutions["landscape"]
	return res[0], res[1]
}

// Compositor renders scene clips and assembles them into the final video by
// shelling out to ffmpeg.
type Compositor struct{}

func New() *Compositor {
	return &Compositor{}
}

// BuildSceneClip renders one scene at the fixed per-orientation resolution.
// The narration audio governs the clip's duration: background video is
// aspect-filled and trimmed to it, with the last frame cloned to cover any
// shortfall. An empty mediaPath produces a solid-color background instead.
// The audio file must exist; there is no silent scene.
func (c *Compositor) BuildSceneClip(ctx context.Context, mediaPath, audioPath string, duration float64, orientation, destPath string) error {
	width, height := Resolution(orientation)
	if duration < 0.1 {
		duration = 0.1
	}
	durationStr := fmt.Sprintf("%.3f", duration)

	vfFilters := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		width, height, width, height,
	)

	encodeTail := []string{
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "24000",
		"-ac", "1",
		"-shortest",
		destPath,
	}

	if mediaPath != "" {
		// A referenced background missing from disk fails the scene; only an
		// absent reference falls back to the solid color.
		if _, err := os.Stat(mediaPath); err != nil {
			return fmt.Errorf("background media unreadable: %w", err)
		}

		filters := vfFilters
		if sourceDuration, err := ProbeDuration(ctx, mediaPath); err == nil && sourceDuration < duration {
			pad := duration - sourceDuration
			filters += fmt.Sprintf(",tpad=stop_mode=clone:stop_duration=%.3f", pad)
		}

		args := append([]string{
			"-y",
			"-t", durationStr,
			"-i", mediaPath,
			"-i", audioPath,
			"-vf", filters,
			"-map", "0:v:0",
			"-map", "1:a:0",
		}, encodeTail...)
		return runFFmpeg(ctx, args)
	}

	log.Printf("[Compositor] No background media, using solid color for %s", destPath)
	args := append([]string{
		"-y",
		"-i", audioPath,
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%s", fallbackBackgroundColor, width, height, durationStr),
		"-map", "1:v:0",
		"-map", "0:a:0",
		"-vf", vfFilters,
	}, encodeTail...)
	return runFFmpeg(ctx, args)
}
