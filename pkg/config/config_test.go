package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("poll interval = %v, want 10s", cfg.PollInterval)
	}
	if cfg.ProgressInterval != 5*time.Second {
		t.Fatalf("progress interval = %v, want 5s", cfg.ProgressInterval)
	}
	if cfg.Voice != "Puck" {
		t.Fatalf("voice = %q, want Puck", cfg.Voice)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("GENSTUDIO_API_KEY", "k-123")
	t.Setenv("GENSTUDIO_VOICE", "Kore")
	t.Setenv("GENSTUDIO_POLL_INTERVAL", "30")
	t.Setenv("GENSTUDIO_PROGRESS_INTERVAL", "2s")
	t.Setenv("GENSTUDIO_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.APIKey != "k-123" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
	if cfg.Voice != "Kore" {
		t.Fatalf("voice = %q", cfg.Voice)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("poll interval = %v, want 30s (bare seconds)", cfg.PollInterval)
	}
	if cfg.ProgressInterval != 2*time.Second {
		t.Fatalf("progress interval = %v, want 2s", cfg.ProgressInterval)
	}
}

func TestLoadFromEnvFallsBackToGeminiKey(t *testing.T) {
	t.Setenv("GENSTUDIO_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-456")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.APIKey != "g-456" {
		t.Fatalf("api key = %q, want fallback to GEMINI_API_KEY", cfg.APIKey)
	}
}

func TestLoadFromEnvRejectsBadLogLevel(t *testing.T) {
	t.Setenv("GENSTUDIO_LOG_LEVEL", "loud")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestEnvDurationOrIgnoresGarbage(t *testing.T) {
	t.Setenv("GENSTUDIO_POLL_INTERVAL", "soon")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("poll interval = %v, want default 10s", cfg.PollInterval)
	}
}
