package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/unibox-design/Alcient/internal/models"
	"github.com/unibox-design/Alcient/internal/telemetry"
)

const queueCapacity = 64

// Narrator turns a scene's script into an audio file and reports its
// duration in seconds.
type Narrator interface {
	Synthesize(ctx context.Context, text, voice string) (audioPath string, duration float64, err error)
}

// CaptionTimer produces word-level timings for a narration audio file.
type CaptionTimer interface {
	TimeWords(ctx context.Context, audioPath, text string) ([]models.CaptionWord, error)
}

// MediaResolver maps a remote clip URL to a local file path.
type MediaResolver interface {
	Acquire(ctx context.Context, rawURL string) (string, error)
}

// Composer is the ffmpeg surface the render pipeline needs.
type Composer interface {
	BuildSceneClip(ctx context.Context, mediaPath, audioPath string, duration float64, orientation, destPath string) error
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}

// RemoteStore mirrors job state and finished videos off-box. Optional; a nil
// store means local-filesystem persistence only.
type RemoteStore interface {
	PutJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	PutIndex(ctx context.Context, mapping map[string]string) error
	GetIndex(ctx context.Context) (map[string]string, error)
	UploadArtifact(ctx context.Context, localPath, projectID string) (string, error)
}

// Options configures an Orchestrator. Zero values get sensible defaults.
type Options struct {
	// OutputDir is the root for job records and finished videos.
	OutputDir string
	// SceneWorkers caps concurrent scene preparation and clip encodes.
	SceneWorkers int
}

type queuedRender struct {
	jobID   string
	payload models.ProjectPayload
}

// Orchestrator owns render job lifecycle: submission, a single background
// worker draining a bounded queue, cooperative stop requests, and durable
// job records that survive restarts.
//
// It deliberately does not re-admit unfinished work after a restart. A job
// that was mid-render when the process died stays in its last persisted
// state; re-running ffmpeg work automatically would double-bill narration
// APIs for output nobody asked for again.
type Orchestrator struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	projectJobs map[string]string
	stops       map[string]models.JobStatus

	queue  chan queuedRender
	mirror chan mirrorUpdate

	narrator Narrator
	timer    CaptionTimer
	media    MediaResolver
	comp     Composer
	remote   RemoteStore

	outputDir    string
	sceneWorkers int
}

// New builds an Orchestrator. narrator and comp are required; timer, media
// and remote may be nil and the corresponding stages degrade gracefully.
func New(narrator Narrator, timer CaptionTimer, media MediaResolver, comp Composer, remote RemoteStore, opts Options) *Orchestrator {
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.SceneWorkers <= 0 {
		opts.SceneWorkers = 4
	}

	o := &Orchestrator{
		jobs:         make(map[string]*models.Job),
		projectJobs:  make(map[string]string),
		stops:        make(map[string]models.JobStatus),
		queue:        make(chan queuedRender, queueCapacity),
		narrator:     narrator,
		timer:        timer,
		media:        media,
		comp:         comp,
		remote:       remote,
		outputDir:    opts.OutputDir,
		sceneWorkers: opts.SceneWorkers,
	}
	if remote != nil {
		o.mirror = make(chan mirrorUpdate, mirrorBacklog)
		go o.mirrorLoop()
	}
	o.loadIndex()
	return o
}

// Start launches the background worker. It returns immediately; the worker
// drains the queue until ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		log.Println("[Orchestrator] Worker started")
		for {
			select {
			case <-ctx.Done():
				log.Println("[Orchestrator] Worker stopped")
				return
			case q := <-o.queue:
				o.run(ctx, q)
			}
		}
	}()
}

// Submit validates the payload, registers a queued job, and enqueues it.
func (o *Orchestrator) Submit(payload models.ProjectPayload) (*models.Job, error) {
	if len(payload.Scenes) == 0 {
		return nil, fmt.Errorf("project has no scenes")
	}
	if strings.TrimSpace(payload.ID) == "" {
		payload.ID = uuid.NewString()
	}

	job := &models.Job{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		ProjectID: payload.ID,
		Status:    models.JobStatusQueued,
		Progress:  0,
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.projectJobs[job.ProjectID] = job.ID
	o.persistLocked(job)
	o.mu.Unlock()

	select {
	case o.queue <- queuedRender{jobID: job.ID, payload: payload}:
	default:
		o.mu.Lock()
		job.Status = models.JobStatusFailed
		job.Progress = 100
		msg := "render queue is full"
		job.Error = &msg
		o.persistLocked(job)
		o.mu.Unlock()
		return nil, fmt.Errorf("render queue is full")
	}

	telemetry.RendersSubmitted.Inc()
	log.Printf("[Orchestrator] Job %s queued for project %s (%d scenes)", job.ID, job.ProjectID, len(payload.Scenes))
	return job.Clone(), nil
}

// Get returns a job by ID, re-admitting it from the local records directory
// or the remote store when this process has never seen it.
func (o *Orchestrator) Get(ctx context.Context, jobID string) (*models.Job, bool) {
	o.mu.Lock()
	if job, ok := o.jobs[jobID]; ok {
		defer o.mu.Unlock()
		return job.Clone(), true
	}
	o.mu.Unlock()

	if job, err := o.readLocalJob(jobID); err == nil {
		return o.admit(job), true
	}

	if o.remote != nil {
		if job, err := o.remote.GetJob(ctx, jobID); err == nil {
			// Restored from remote; write the local record so the next
			// lookup does not need the network.
			o.mu.Lock()
			o.jobs[job.ID] = job
			if job.ProjectID != "" {
				o.projectJobs[job.ProjectID] = job.ID
			}
			o.persistLocalOnlyLocked(job)
			o.mu.Unlock()
			return job.Clone(), true
		}
	}

	return nil, false
}

// GetByProject returns the latest job for a project. The in-memory index is
// consulted first, then a full scan of local job records repairs the index,
// then the remote index.
func (o *Orchestrator) GetByProject(ctx context.Context, projectID string) (*models.Job, bool) {
	o.mu.Lock()
	jobID, ok := o.projectJobs[projectID]
	o.mu.Unlock()
	if ok {
		if job, found := o.Get(ctx, jobID); found {
			return job, true
		}
	}

	if job := o.scanForProject(projectID); job != nil {
		return o.admit(job), true
	}

	if o.remote != nil {
		if idx, err := o.remote.GetIndex(ctx); err == nil {
			if jobID, ok := idx[projectID]; ok {
				if job, found := o.Get(ctx, jobID); found {
					return job, true
				}
			}
		}
	}

	return nil, false
}

// RequestStop asks a job to stop at its next checkpoint. target must be
// cancelled or paused. A still-queued job transitions immediately; a running
// job moves to the corresponding transitional status until the worker
// honors the request.
func (o *Orchestrator) RequestStop(jobID string, target models.JobStatus) (*models.Job, error) {
	if target != models.JobStatusCancelled && target != models.JobStatusPaused {
		return nil, fmt.Errorf("invalid stop target %q", target)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[jobID]
	if !ok {
		if loaded, err := o.readLocalJob(jobID); err == nil {
			job = loaded
			o.jobs[jobID] = job
			if job.ProjectID != "" {
				o.projectJobs[job.ProjectID] = job.ID
			}
			ok = true
		}
	}
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if job.Status.Terminal() {
		return job.Clone(), nil
	}

	if job.Status == models.JobStatusQueued {
		// The worker has not picked it up; it observes the terminal state
		// at its pre-start checkpoint and discards the work.
		job.Status = target
		o.stops[jobID] = target
		o.persistLocked(job)
		telemetry.RendersFinished.WithLabelValues(string(target)).Inc()
		log.Printf("[Orchestrator] Job %s %s before start", jobID, target)
		return job.Clone(), nil
	}

	switch target {
	case models.JobStatusCancelled:
		job.Status = models.JobStatusCancelling
	case models.JobStatusPaused:
		job.Status = models.JobStatusPausing
	}
	o.stops[jobID] = target
	o.persistLocked(job)
	log.Printf("[Orchestrator] Job %s stop requested (%s)", jobID, target)
	return job.Clone(), nil
}

// admit re-registers a job loaded from durable storage.
func (o *Orchestrator) admit(job *models.Job) *models.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.jobs[job.ID]; ok {
		return existing.Clone()
	}
	o.jobs[job.ID] = job
	if job.ProjectID != "" {
		o.projectJobs[job.ProjectID] = job.ID
	}
	return job.Clone()
}

// update applies a mutation to a job and persists the result. Terminal jobs
// are immutable; late writes from a worker that lost a stop race are dropped.
func (o *Orchestrator) update(jobID string, mutate func(*models.Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	mutate(job)
	o.persistLocked(job)
}

// stopTarget reports whether a stop has been requested for the job.
func (o *Orchestrator) stopTarget(jobID string) (models.JobStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	target, ok := o.stops[jobID]
	return target, ok
}

func (o *Orchestrator) clearStop(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.stops, jobID)
}
