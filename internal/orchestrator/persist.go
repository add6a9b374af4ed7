package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/unibox-design/Alcient/internal/models"
)

const (
	indexFileName = "project_index.json"
	mirrorBacklog = 128
)

// mirrorUpdate is one snapshot of job state bound for the remote store.
type mirrorUpdate struct {
	job   *models.Job
	index map[string]string
}

func (o *Orchestrator) rendersDir() string {
	return filepath.Join(o.outputDir, "renders")
}

func (o *Orchestrator) jobPath(jobID string) string {
	return filepath.Join(o.rendersDir(), jobID+".json")
}

func (o *Orchestrator) indexPath() string {
	return filepath.Join(o.rendersDir(), indexFileName)
}

// persistLocked writes the job record and project index locally and mirrors
// both to the remote store. Callers must hold o.mu.
func (o *Orchestrator) persistLocked(job *models.Job) {
	o.persistLocalOnlyLocked(job)

	if o.remote == nil {
		return
	}
	// Mirror off the lock path through a single drain goroutine, so
	// consecutive transitions reach the remote store in the order they were
	// persisted locally. Remote persistence is best effort; the local record
	// is the source of truth for this process.
	clone := job.Clone()
	index := make(map[string]string, len(o.projectJobs))
	for projectID, jobID := range o.projectJobs {
		index[projectID] = jobID
	}
	select {
	case o.mirror <- mirrorUpdate{job: clone, index: index}:
	default:
		log.Printf("[Orchestrator] Remote mirror backlog full, dropping update for job %s", clone.ID)
	}
}

// mirrorLoop drains mirror updates one at a time for the life of the process.
func (o *Orchestrator) mirrorLoop() {
	for update := range o.mirror {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := o.remote.PutJob(ctx, update.job); err != nil {
			log.Printf("[Orchestrator] Remote job mirror failed for %s: %v", update.job.ID, err)
		}
		if err := o.remote.PutIndex(ctx, update.index); err != nil {
			log.Printf("[Orchestrator] Remote index mirror failed: %v", err)
		}
		cancel()
	}
}

// persistLocalOnlyLocked writes the job record and index to disk without
// touching the remote store. Callers must hold o.mu.
func (o *Orchestrator) persistLocalOnlyLocked(job *models.Job) {
	if err := os.MkdirAll(o.rendersDir(), 0755); err != nil {
		log.Printf("[Orchestrator] Failed to create renders dir: %v", err)
		return
	}

	if err := writeJSON(o.jobPath(job.ID), job); err != nil {
		log.Printf("[Orchestrator] Failed to persist job %s: %v", job.ID, err)
	}
	if err := writeJSON(o.indexPath(), o.projectJobs); err != nil {
		log.Printf("[Orchestrator] Failed to persist project index: %v", err)
	}
}

// loadIndex seeds the project index from disk at startup. A missing or
// corrupt index is fine; scanForProject rebuilds entries on demand.
func (o *Orchestrator) loadIndex() {
	data, err := os.ReadFile(o.indexPath())
	if err != nil {
		return
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		log.Printf("[Orchestrator] Ignoring unreadable project index: %v", err)
		return
	}
	o.mu.Lock()
	for projectID, jobID := range mapping {
		if _, ok := o.projectJobs[projectID]; !ok {
			o.projectJobs[projectID] = jobID
		}
	}
	o.mu.Unlock()
}

// readLocalJob loads one job record from disk.
func (o *Orchestrator) readLocalJob(jobID string) (*models.Job, error) {
	data, err := os.ReadFile(o.jobPath(jobID))
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("corrupt job record %s: %w", jobID, err)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

// scanForProject walks every local job record looking for the project. The
// index is a cache; when it lies or is missing, this full scan is the truth
// and the matching entry is written back.
func (o *Orchestrator) scanForProject(projectID string) *models.Job {
	entries, err := os.ReadDir(o.rendersDir())
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == indexFileName || filepath.Ext(name) != ".json" {
			continue
		}
		jobID := name[:len(name)-len(".json")]
		job, err := o.readLocalJob(jobID)
		if err != nil {
			continue
		}
		if job.ProjectID != projectID {
			continue
		}

		o.mu.Lock()
		o.projectJobs[projectID] = job.ID
		o.persistLocalOnlyLocked(job)
		o.mu.Unlock()
		log.Printf("[Orchestrator] Repaired project index entry %s -> %s", projectID, job.ID)
		return job
	}
	return nil
}

// writeJSON writes a value atomically via temp file and rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
