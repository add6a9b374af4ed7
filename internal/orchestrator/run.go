package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unibox-design/Alcient/internal/captions"
	"github.com/unibox-design/Alcient/internal/compositor"
	"github.com/unibox-design/Alcient/internal/models"
	"github.com/unibox-design/Alcient/internal/telemetry"
)

// errStopRequested aborts the pipeline at a checkpoint after a cancel or
// pause request. It never reaches the job record.
var errStopRequested = errors.New("stop requested")

// MissingAudioError means a scene reached clip rendering without its
// narration audio file on disk. Scene is 1-based.
type MissingAudioError struct {
	Scene int
}

func (e *MissingAudioError) Error() string {
	return fmt.Sprintf("audio track missing for scene %d", e.Scene)
}

// run executes one queued render to a terminal state.
func (o *Orchestrator) run(ctx context.Context, q queuedRender) {
	jobID := q.jobID
	defer o.clearStop(jobID)

	// Pre-start checkpoint. A job cancelled while queued is already
	// terminal; the work is simply discarded.
	if _, stopped := o.stopTarget(jobID); stopped {
		log.Printf("[Orchestrator] Job %s stopped before start", jobID)
		return
	}

	telemetry.ActiveRenders.Inc()
	defer telemetry.ActiveRenders.Dec()
	started := time.Now()

	o.update(jobID, func(j *models.Job) {
		j.Status = models.JobStatusRendering
		j.Progress = 5
	})

	videoURL, err := o.render(ctx, jobID, q.payload)
	if errors.Is(err, errStopRequested) {
		target, ok := o.stopTarget(jobID)
		if !ok {
			target = models.JobStatusCancelled
		}
		o.update(jobID, func(j *models.Job) {
			j.Status = target
		})
		telemetry.RendersFinished.WithLabelValues(string(target)).Inc()
		log.Printf("[Orchestrator] Job %s %s after %v", jobID, target, time.Since(started).Round(time.Millisecond))
		return
	}
	if err != nil {
		msg := err.Error()
		o.update(jobID, func(j *models.Job) {
			j.Status = models.JobStatusFailed
			j.Progress = 100
			j.Error = &msg
		})
		telemetry.RendersFinished.WithLabelValues(string(models.JobStatusFailed)).Inc()
		log.Printf("[Orchestrator] Job %s failed: %v", jobID, err)
		return
	}

	o.update(jobID, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.VideoURL = &videoURL
	})
	telemetry.RendersFinished.WithLabelValues(string(models.JobStatusCompleted)).Inc()
	telemetry.RenderDuration.Observe(time.Since(started).Seconds())
	log.Printf("[Orchestrator] Job %s completed in %v: %s", jobID, time.Since(started).Round(time.Millisecond), videoURL)
}

// render runs the pipeline stages and returns the final video URL.
func (o *Orchestrator) render(ctx context.Context, jobID string, payload models.ProjectPayload) (string, error) {
	orientation := normalizeOrientation(payload.Format)
	scenes := orderScenes(payload.Scenes)

	workDir, err := os.MkdirTemp("", "render-"+jobID+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := o.prepareScenes(ctx, jobID, scenes, payload.VoiceModel); err != nil {
		return "", err
	}
	o.update(jobID, func(j *models.Job) { j.Progress = 35 })

	// The caption track spans the whole timeline; it is built once from
	// the ordered scenes so per-scene offsets line up with the concat.
	width, height := compositor.Resolution(orientation)
	subtitlePath := ""
	if track := captions.BuildTrack(scenes, payload.CaptionStyle, width, height); track != nil {
		subtitlePath = filepath.Join(workDir, "captions.ass")
		if err := track.WriteFile(subtitlePath); err != nil {
			log.Printf("[Orchestrator] Job %s: dropping captions, track write failed: %v", jobID, err)
			subtitlePath = ""
		}
	}

	clips, err := o.renderClips(ctx, jobID, scenes, orientation, workDir)
	if err != nil {
		return "", err
	}

	if _, stopped := o.stopTarget(jobID); stopped {
		return "", errStopRequested
	}
	combined := filepath.Join(workDir, "combined.mp4")
	if err := o.comp.Concatenate(ctx, clips, combined); err != nil {
		return "", fmt.Errorf("concatenation failed: %w", err)
	}
	o.update(jobID, func(j *models.Job) { j.Progress = 85 })

	if _, stopped := o.stopTarget(jobID); stopped {
		return "", errStopRequested
	}
	finalDir := filepath.Join(o.outputDir, "videos", payload.ID)
	if err := os.MkdirAll(finalDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	finalName := payload.ID + "_final.mp4"
	finalPath := filepath.Join(finalDir, finalName)

	if subtitlePath != "" {
		if err := o.comp.BurnSubtitles(ctx, combined, subtitlePath, finalPath); err != nil {
			return "", fmt.Errorf("subtitle burn-in failed: %w", err)
		}
	} else if err := moveFile(combined, finalPath); err != nil {
		return "", fmt.Errorf("failed to place final video: %w", err)
	}
	o.update(jobID, func(j *models.Job) { j.Progress = 92 })

	if o.remote != nil {
		if url, err := o.remote.UploadArtifact(ctx, finalPath, payload.ID); err == nil {
			return url, nil
		} else {
			log.Printf("[Orchestrator] Job %s: upload failed, serving local file: %v", jobID, err)
		}
	}
	return fmt.Sprintf("/videos/%s/%s?v=%s", payload.ID, finalName, uuid.NewString()[:6]), nil
}

// prepareScenes synthesizes narration and word timings for every scene, a
// bounded pool at a time. Narration failure is fatal; a scene without audio
// cannot be rendered. Timing failure only costs that scene its captions.
func (o *Orchestrator) prepareScenes(ctx context.Context, jobID string, scenes []models.Scene, defaultVoice string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize(o.sceneWorkers, len(scenes)))

	for i := range scenes {
		i := i
		g.Go(func() error {
			if _, stopped := o.stopTarget(jobID); stopped {
				return errStopRequested
			}

			scene := &scenes[i]
			text := strings.TrimSpace(scene.NarrationText())
			if text == "" {
				return fmt.Errorf("scene %d has no script", i+1)
			}
			voice := scene.TTSVoice
			if voice == "" {
				voice = defaultVoice
			}

			audioPath, duration, err := o.narrator.Synthesize(gctx, text, voice)
			if err != nil {
				return fmt.Errorf("narration failed for scene %d: %w", i+1, err)
			}
			scene.AudioPath = audioPath
			scene.AudioDuration = models.Num(duration)

			if o.timer == nil {
				return nil
			}
			words, err := o.timer.TimeWords(gctx, audioPath, text)
			if err != nil {
				log.Printf("[Orchestrator] Job %s: word timing failed for scene %d, captions degrade: %v", jobID, i+1, err)
				return nil
			}
			scene.Captions = &models.SceneCaptions{Text: text, Words: words}
			return nil
		})
	}

	return g.Wait()
}

// renderClips encodes every scene clip concurrently and returns the paths in
// scene order regardless of completion order.
func (o *Orchestrator) renderClips(ctx context.Context, jobID string, scenes []models.Scene, orientation, workDir string) ([]string, error) {
	clips := make([]string, len(scenes))
	var done int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize(o.sceneWorkers, len(scenes)))

	for i := range scenes {
		i := i
		g.Go(func() error {
			if _, stopped := o.stopTarget(jobID); stopped {
				return errStopRequested
			}

			scene := scenes[i]
			mediaPath := ""
			if scene.Media != nil && scene.Media.URL != "" && o.media != nil {
				local, err := o.media.Acquire(gctx, scene.Media.URL)
				if err != nil {
					return fmt.Errorf("scene %d: %w", i+1, err)
				}
				mediaPath = local
			}

			if _, err := os.Stat(scene.AudioPath); err != nil {
				return &MissingAudioError{Scene: i + 1}
			}

			dest := filepath.Join(workDir, fmt.Sprintf("scene_%03d.mp4", i))
			clipStart := time.Now()
			if err := o.comp.BuildSceneClip(gctx, mediaPath, scene.AudioPath, scene.DeclaredDuration(), orientation, dest); err != nil {
				return fmt.Errorf("scene %d render failed: %w", i+1, err)
			}
			telemetry.SceneClipDuration.Observe(time.Since(clipStart).Seconds())
			clips[i] = dest

			finished := atomic.AddInt32(&done, 1)
			progress := 35 + int(45*float64(finished)/float64(len(scenes)))
			o.update(jobID, func(j *models.Job) {
				if progress > j.Progress {
					j.Progress = progress
				}
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clips, nil
}

// orderScenes returns a copy of scenes stably sorted by their declared order
// value. A scene without a usable order keys on its submission index, so an
// unordered leading scene still renders before a scene declaring a later
// explicit order.
func orderScenes(scenes []models.Scene) []models.Scene {
	type ranked struct {
		scene models.Scene
		key   float64
	}
	items := make([]ranked, len(scenes))
	for i, s := range scenes {
		key := float64(i)
		if s.Order.Valid {
			key = s.Order.Value
		}
		items[i] = ranked{scene: s, key: key}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].key < items[b].key
	})

	out := make([]models.Scene, len(items))
	for i, item := range items {
		out[i] = item.scene
	}
	return out
}

// normalizeOrientation maps format tags and aspect ratios onto the three
// supported orientations, defaulting to landscape.
func normalizeOrientation(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "portrait", "vertical", "9:16":
		return "portrait"
	case "square", "1:1":
		return "square"
	default:
		return "landscape"
	}
}

func poolSize(limit, work int) int {
	if work < limit {
		return work
	}
	return limit
}

// moveFile renames when possible and falls back to a copy across
// filesystems, which the temp work dir usually is.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
