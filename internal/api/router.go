package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unibox-design/Alcient/internal/telemetry"
)

// RouterConfig holds settings for the API router.
// Passed from main.go so the router can configure CORS and auth from env vars.
type RouterConfig struct {
	// BackendAPIKey is the key that must be provided in X-API-Key or
	// Authorization: Bearer <key>. If empty, auth middleware is skipped
	// (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string

	// OutputDir is the root containing the videos/ directory served at /videos.
	OutputDir string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (applied to all routes including /healthz)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", telemetry.Handler())

	// Finished videos are plain files on disk; cache busting happens via the
	// ?v= query parameter on the job's videoUrl.
	videosDir := filepath.Join(cfg.OutputDir, "videos")
	r.Handle("/videos/*", http.StripPrefix("/videos/", http.FileServer(http.Dir(videosDir))))

	// API routes — protected by API key auth when configured
	r.Route("/api", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Post("/generate", h.GenerateStoryboard)
		r.Get("/media/search", h.SearchMedia)
		r.Get("/voices", h.ListVoices)

		r.Post("/project/save", h.SaveProject)
		r.Get("/project/{id}", h.GetProject)

		r.Post("/render", h.SubmitRender)
		r.Get("/render/{jobId}", h.RenderStatus)
		r.Get("/render/project/{projectId}", h.RenderStatusByProject)
		r.Post("/render/{jobId}/cancel", h.CancelRender)
		r.Post("/render/{jobId}/pause", h.PauseRender)
	})

	return r
}
