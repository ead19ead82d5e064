package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
discovery:
  default_count: 10
  global_over_fetch: 4
  cache_ttl: 20m
limits:
  free_likes_per_day: 99
  premium_super_likes_per_day: 7
  undo_window: 2m
matches:
  list_limit: 40
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Discovery.DefaultCount != 10 {
		t.Fatalf("unexpected discovery default count: %d", cfg.Discovery.DefaultCount)
	}
	if cfg.Discovery.GlobalOverFetch != 4 {
		t.Fatalf("unexpected global over-fetch: %d", cfg.Discovery.GlobalOverFetch)
	}
	if cfg.Discovery.CacheTTL.String() != "20m0s" {
		t.Fatalf("unexpected discovery cache ttl: %s", cfg.Discovery.CacheTTL)
	}
	if cfg.Limits.FreeLikesPerDay != 99 {
		t.Fatalf("unexpected free likes/day: %d", cfg.Limits.FreeLikesPerDay)
	}
	if cfg.Limits.PremiumSuperLikesPerDay != 7 {
		t.Fatalf("unexpected premium super likes/day: %d", cfg.Limits.PremiumSuperLikesPerDay)
	}
	if cfg.Limits.UndoWindow.String() != "2m0s" {
		t.Fatalf("unexpected undo window: %s", cfg.Limits.UndoWindow)
	}
	if cfg.Matches.ListLimit != 40 {
		t.Fatalf("unexpected match list limit: %d", cfg.Matches.ListLimit)
	}

	if cfg.Discovery.MaxCount != 50 {
		t.Fatalf("discovery max count default should stay 50, got %d", cfg.Discovery.MaxCount)
	}
	if cfg.Limits.FreeSuperLikesPerWeek != 1 {
		t.Fatalf("free super likes/week default should stay 1, got %d", cfg.Limits.FreeSuperLikesPerWeek)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr default should stay :8080, got %s", cfg.HTTP.Addr)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config without file: %v", err)
	}

	if cfg.Limits.FreeLikesPerDay != 25 {
		t.Fatalf("unexpected default free likes/day: %d", cfg.Limits.FreeLikesPerDay)
	}
	if cfg.Limits.UndoWindow.String() != "5m0s" {
		t.Fatalf("unexpected default undo window: %s", cfg.Limits.UndoWindow)
	}
	if cfg.HTTP.ShutdownTimeout.String() != "10s" {
		t.Fatalf("unexpected default shutdown timeout: %s", cfg.HTTP.ShutdownTimeout)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("FREE_LIKES_PER_DAY", "12")
	t.Setenv("UNDO_WINDOW", "90s")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Limits.FreeLikesPerDay != 12 {
		t.Fatalf("env free likes/day not applied: %d", cfg.Limits.FreeLikesPerDay)
	}
	if cfg.Limits.UndoWindow.String() != "1m30s" {
		t.Fatalf("env undo window not applied: %s", cfg.Limits.UndoWindow)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("env redis addr not applied: %s", cfg.Redis.Addr)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"APP_ENV", "HTTP_ADDR", "HTTP_SHUTDOWN_TIMEOUT", "LOG_LEVEL", "POSTGRES_DSN",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_USE_SSL", "S3_SIGN_TTL",
		"RABBIT_URI", "RABBIT_EXCHANGE",
		"JWT_SECRET", "JWT_ACCESS_TTL", "SESSION_TTL",
		"DISCOVERY_DEFAULT_COUNT", "DISCOVERY_MAX_COUNT", "DISCOVERY_CACHE_TTL",
		"FREE_LIKES_PER_DAY", "UNDO_WINDOW",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}
