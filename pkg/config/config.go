// Package config loads client configuration from the environment. A .env
// file in the working directory is folded in first when present, so local
// development does not need exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the clients and commands read from the
// environment.
type Config struct {
	// APIKey authenticates against the Generation Service.
	APIKey string

	// Model overrides per capability; empty means the built-in default.
	LiveModel  string
	VideoModel string
	ImageModel string

	// Voice is the prebuilt voice used for spoken responses.
	Voice string

	// SystemInstruction steers live conversations.
	SystemInstruction string

	// PollInterval is how often pending jobs are queried.
	PollInterval time.Duration

	// ProgressInterval is how often the pending-job message rotates.
	ProgressInterval time.Duration

	// MetricsAddr serves Prometheus metrics when non-empty, e.g.
	// "localhost:9090".
	MetricsAddr string

	// LogLevel is one of debug|info|warn|error.
	LogLevel string

	// OutputDir receives generated video and image files.
	OutputDir string
}

// LoadFromEnv builds a Config from GENSTUDIO_* variables, after folding in
// a .env file if one exists.
func LoadFromEnv() (Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := Config{
		APIKey:            envOr("GENSTUDIO_API_KEY", os.Getenv("GEMINI_API_KEY")),
		LiveModel:         envOr("GENSTUDIO_LIVE_MODEL", ""),
		VideoModel:        envOr("GENSTUDIO_VIDEO_MODEL", ""),
		ImageModel:        envOr("GENSTUDIO_IMAGE_MODEL", ""),
		Voice:             envOr("GENSTUDIO_VOICE", "Puck"),
		SystemInstruction: envOr("GENSTUDIO_SYSTEM_INSTRUCTION", ""),
		PollInterval:      envDurationOr("GENSTUDIO_POLL_INTERVAL", 10*time.Second),
		ProgressInterval:  envDurationOr("GENSTUDIO_PROGRESS_INTERVAL", 5*time.Second),
		MetricsAddr:       envOr("GENSTUDIO_METRICS_ADDR", ""),
		LogLevel:          envOr("GENSTUDIO_LOG_LEVEL", "info"),
		OutputDir:         envOr("GENSTUDIO_OUTPUT_DIR", "."),
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("GENSTUDIO_LOG_LEVEL must be one of debug|info|warn|error")
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("GENSTUDIO_POLL_INTERVAL must be > 0")
	}
	if cfg.ProgressInterval <= 0 {
		return Config{}, fmt.Errorf("GENSTUDIO_PROGRESS_INTERVAL must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil {
		// Bare numbers mean seconds.
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
