package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.LockBackend != LockBackendMemory {
		t.Fatalf("expected memory lock backend by default, got %q", cfg.LockBackend)
	}
	if cfg.ProcessingLockTimeoutSeconds != 30 || cfg.ProcessingLockMaxRetries != 3 || cfg.ProcessingLockRetryDelayMS != 1000 {
		t.Fatalf("unexpected lock defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("PROCESSING_LOCK_MAX_RETRIES", "5")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CATEGORY_RULES_PATH", "/etc/intake/rules.yaml")

	cfg := Load()
	if cfg.LockBackend != LockBackendRedis || cfg.RedisDB != 2 {
		t.Fatalf("unexpected redis settings: backend=%q db=%d", cfg.LockBackend, cfg.RedisDB)
	}
	if cfg.ProcessingLockMaxRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", cfg.ProcessingLockMaxRetries)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected 2.5 rps, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.CategoryRulesPath != "/etc/intake/rules.yaml" {
		t.Fatalf("unexpected rules path %q", cfg.CategoryRulesPath)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("PROCESSING_LOCK_TIMEOUT_SECONDS", "soon")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.ProcessingLockTimeoutSeconds != 30 || cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected fallbacks, got timeout=%d rps=%v", cfg.ProcessingLockTimeoutSeconds, cfg.APIRateLimitRPS)
	}
}
