package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unibox-design/Alcient/internal/db"
	"github.com/unibox-design/Alcient/internal/models"
	"github.com/unibox-design/Alcient/internal/services"
)

// RenderService is the slice of the orchestrator the HTTP layer needs.
type RenderService interface {
	Submit(payload models.ProjectPayload) (*models.Job, error)
	Get(ctx context.Context, jobID string) (*models.Job, bool)
	GetByProject(ctx context.Context, projectID string) (*models.Job, bool)
	RequestStop(jobID string, target models.JobStatus) (*models.Job, error)
}

type Handler struct {
	render     RenderService
	storyboard services.StoryboardProvider
	stock      *services.StockSearch
	database   *db.DB
}

// NewHandler wires the HTTP surface. storyboard, stock, and database may be
// nil; the corresponding endpoints report themselves unconfigured.
func NewHandler(render RenderService, storyboard services.StoryboardProvider, stock *services.StockSearch, database *db.DB) *Handler {
	return &Handler{
		render:     render,
		storyboard: storyboard,
		stock:      stock,
		database:   database,
	}
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GenerateStoryboard handles POST /api/generate
func (h *Handler) GenerateStoryboard(w http.ResponseWriter, r *http.Request) {
	if h.storyboard == nil {
		respondError(w, http.StatusServiceUnavailable, "Storyboard generation is not configured")
		return
	}

	var req struct {
		Prompt       string        `json:"prompt"`
		Aspect       string        `json:"aspect"`
		VoiceModel   string        `json:"voiceModel"`
		CaptionStyle string        `json:"captionStyle"`
		Duration     models.Number `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	duration := 60
	if req.Duration.Valid && req.Duration.Value > 0 {
		duration = int(req.Duration.Value)
	}
	if duration < 30 {
		duration = 30
	}
	if duration > 600 {
		duration = 600
	}
	voice := strings.TrimSpace(req.VoiceModel)
	if voice == "" {
		voice = services.DefaultVoice
	}

	payload, err := h.storyboard.GenerateStoryboard(r.Context(), services.StoryboardRequest{
		Prompt:          req.Prompt,
		Orientation:     mapAspectToOrientation(req.Aspect),
		VoiceModel:      voice,
		CaptionStyle:    req.CaptionStyle,
		DurationSeconds: duration,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "Storyboard generation failed")
		return
	}

	h.attachSceneMedia(r.Context(), payload)
	respondJSON(w, http.StatusOK, payload)
}

// attachSceneMedia fills each scene's background clip from the first stock
// search hit for its first keyword. Search failures leave the scene bare;
// the compositor has a solid-color fallback.
func (h *Handler) attachSceneMedia(ctx context.Context, payload *models.ProjectPayload) {
	if h.stock == nil {
		return
	}
	orientation := mapAspectToOrientation(payload.Format)
	for i := range payload.Scenes {
		scene := &payload.Scenes[i]
		if scene.Media != nil || len(scene.Keywords) == 0 {
			continue
		}
		videos, err := h.stock.Search(ctx, scene.Keywords[0], orientation, 1, 1)
		if err != nil || len(videos) == 0 {
			if err != nil {
				log.Printf("[API] Stock search failed for %q: %v", scene.Keywords[0], err)
			}
			continue
		}
		scene.Media = &models.SceneMedia{
			URL:       videos[0].URL,
			ID:        videos[0].ID,
			Keyword:   scene.Keywords[0],
			Thumbnail: videos[0].Thumbnail,
			Source:    videos[0].Source,
		}
	}
}

// SearchMedia handles GET /api/media/search
func (h *Handler) SearchMedia(w http.ResponseWriter, r *http.Request) {
	if h.stock == nil {
		respondError(w, http.StatusServiceUnavailable, "Stock search is not configured")
		return
	}

	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	orientation := r.URL.Query().Get("orientation")
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	videos, err := h.stock.Search(r.Context(), keyword, orientation, perPage, page)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Stock search failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

// SaveProject handles POST /api/project/save
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		respondError(w, http.StatusServiceUnavailable, "Project storage is not configured")
		return
	}

	var payload models.ProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	if err := h.database.SaveProject(r.Context(), &payload); err != nil {
		log.Printf("[API] Project save failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": payload.ID, "status": "saved"})
}

// GetProject handles GET /api/project/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		respondError(w, http.StatusServiceUnavailable, "Project storage is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	project, err := h.database.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrProjectNotFound) {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		log.Printf("[API] Project load failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// SubmitRender handles POST /api/render
func (h *Handler) SubmitRender(w http.ResponseWriter, r *http.Request) {
	var payload models.ProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.render.Submit(payload)
	if err != nil {
		if strings.Contains(err.Error(), "queue is full") {
			respondError(w, http.StatusServiceUnavailable, "Render queue is full, try again later")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

// RenderStatus handles GET /api/render/{jobId}
func (h *Handler) RenderStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job, ok := h.render.Get(r.Context(), jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "Render job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// RenderStatusByProject handles GET /api/render/project/{projectId}
func (h *Handler) RenderStatusByProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	job, ok := h.render.GetByProject(r.Context(), projectID)
	if !ok {
		respondError(w, http.StatusNotFound, "No render job for project")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// CancelRender handles POST /api/render/{jobId}/cancel
func (h *Handler) CancelRender(w http.ResponseWriter, r *http.Request) {
	h.requestStop(w, r, models.JobStatusCancelled)
}

// PauseRender handles POST /api/render/{jobId}/pause
func (h *Handler) PauseRender(w http.ResponseWriter, r *http.Request) {
	h.requestStop(w, r, models.JobStatusPaused)
}

func (h *Handler) requestStop(w http.ResponseWriter, r *http.Request, target models.JobStatus) {
	jobID := chi.URLParam(r, "jobId")
	job, err := h.render.RequestStop(jobID, target)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "Render job not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// ListVoices handles GET /api/voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"voices":  services.Voices(),
		"default": services.DefaultVoice,
	})
}

// mapAspectToOrientation folds aspect-ratio strings into the three supported
// orientations, defaulting to landscape.
func mapAspectToOrientation(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "portrait", "9:16", "vertical":
		return "portrait"
	case "square", "1:1":
		return "square"
	default:
		return "landscape"
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
