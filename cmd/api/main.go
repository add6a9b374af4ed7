package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/unibox-design/Alcient/internal/api"
	"github.com/unibox-design/Alcient/internal/compositor"
	"github.com/unibox-design/Alcient/internal/config"
	"github.com/unibox-design/Alcient/internal/db"
	"github.com/unibox-design/Alcient/internal/media"
	"github.com/unibox-design/Alcient/internal/orchestrator"
	"github.com/unibox-design/Alcient/internal/services"
	"github.com/unibox-design/Alcient/internal/storage"
)

func main() {
	log.Println("Starting Alcient API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database (optional)
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		log.Println("Connected to database")
	} else {
		log.Println("No DATABASE_URL set, project save/load disabled")
	}

	// Connect to Redis for the stock search cache (optional)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("Connected to Redis")
	} else {
		log.Println("No REDIS_URL set, stock search cache is in-process only")
	}

	// Remote store (optional)
	var remote orchestrator.RemoteStore
	if cfg.SupabaseURL != "" {
		remote = storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		log.Println("Initialized remote storage")
	} else {
		log.Println("No SUPABASE_URL set, persisting renders locally only")
	}

	// Narration, word timing, media, composition
	narrator := services.NewElevenLabs(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, filepath.Join(cfg.OutputDir, "tts"))
	var timer orchestrator.CaptionTimer
	if cfg.OpenAIKey != "" {
		timer = services.NewWhisperTimer(cfg.OpenAIKey)
	} else {
		log.Println("No OPENAI_API_KEY set, captions fall back to estimated word timing")
	}
	acquirer := media.NewAcquirer(filepath.Join(cfg.OutputDir, "media"))
	comp := compositor.New()

	// Render orchestrator and its worker
	orch := orchestrator.New(narrator, timer, acquirer, comp, remote, orchestrator.Options{
		OutputDir:    cfg.OutputDir,
		SceneWorkers: cfg.RenderWorkers,
	})
	workerCtx, workerCancel := context.WithCancel(context.Background())
	orch.Start(workerCtx)

	// Storyboard provider
	var storyboard services.StoryboardProvider
	switch cfg.StoryboardProvider {
	case "gemini":
		storyboard = services.NewGeminiStoryboard(cfg.GeminiKey, cfg.GeminiModel)
		log.Println("Storyboard provider: Gemini")
	default:
		storyboard = services.NewOpenAIStoryboard(cfg.OpenAIKey)
		log.Println("Storyboard provider: OpenAI")
	}

	// Stock footage search (optional)
	var stock *services.StockSearch
	if cfg.PexelsKey != "" {
		stock = services.NewStockSearch(cfg.PexelsKey, rdb)
	} else {
		log.Println("No PEXELS_API_KEY set, stock search disabled")
	}

	// HTTP surface
	handler := api.NewHandler(orch, storyboard, stock, database)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		OutputDir:          cfg.OutputDir,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the render worker; in-flight job state is already on disk
	workerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
