package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PollMs != 1500 {
		t.Errorf("PollMs = %d, want 1500", cfg.PollMs)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d, want 8", cfg.MaxAttempts)
	}
	if cfg.StaleAfter() != 5*time.Minute {
		t.Errorf("StaleAfter() = %v, want 5m", cfg.StaleAfter())
	}
	if cfg.DefaultsTTL() != 30*time.Second {
		t.Errorf("DefaultsTTL() = %v, want 30s", cfg.DefaultsTTL())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_MS", "200")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("MAX_ATTEMPTS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PollInterval() != 200*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 200ms", cfg.PollInterval())
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.RedisURL == "" {
		t.Error("RedisURL should not be empty")
	}
}

func TestLoad_NonPositiveTunablesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_MS", "0")
	t.Setenv("BATCH_SIZE", "-4")
	t.Setenv("MAX_ATTEMPTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PollMs != defaultPollMs {
		t.Errorf("PollMs = %d, want %d", cfg.PollMs, defaultPollMs)
	}
	if cfg.BatchSize != defaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, defaultBatchSize)
	}
	if cfg.MaxAttempts != defaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, defaultMaxAttempts)
	}
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BATCH_SIZE", "ten")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric BATCH_SIZE, got nil")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}
