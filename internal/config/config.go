package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Output
	OutputDir string // Root for job records, audio/media caches, and finished videos

	// Database (optional; project save/load is disabled without it)
	DatabaseURL string

	// Redis (optional; stock search caching falls back to in-process memory)
	RedisURL string

	// Supabase storage (optional; local filesystem serves videos without it)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Storyboard generation
	StoryboardProvider string // "openai" or "gemini"
	OpenAIKey          string
	GeminiKey          string
	GeminiModel        string

	// ElevenLabs narration
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Pexels stock footage
	PexelsKey string

	// Render worker
	RenderWorkers int // concurrent scene preparation / encode cap per job
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		OutputDir:             getEnv("OUTPUT_DIR", "output"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "alcient-videos"),
		StoryboardProvider:    getEnv("STORYBOARD_PROVIDER", "openai"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", ""),
		ElevenLabsKey:         getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:     getEnv("ELEVENLABS_VOICE_ID", ""),
		PexelsKey:             getEnv("PEXELS_API_KEY", ""),
		RenderWorkers:         getEnvInt("RENDER_WORKERS", 4),
	}

	// Validate required fields. Most integrations are optional and degrade;
	// narration is not, a render without audio is nothing.
	if cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	switch cfg.StoryboardProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when STORYBOARD_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when STORYBOARD_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown STORYBOARD_PROVIDER %q (want openai or gemini)", cfg.StoryboardProvider)
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
