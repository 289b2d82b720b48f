package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Address != defaultAddress {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.QueueEnabled() || cfg.StorageEnabled() {
		t.Error("queue and storage must be disabled without endpoints")
	}
	if len(cfg.AdminSigningSecret) != 32 {
		t.Errorf("generated secret length = %d, want 32", len(cfg.AdminSigningSecret))
	}
	if cfg.IntakeStrictFormats {
		t.Error("strict formats must default to off")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TALENTDESK_ADDRESS", ":9999")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("SIGNED_URL_TTL", "2m")
	t.Setenv("RESUME_ALLOWED_TYPES", "application/pdf, ,text/plain ")
	t.Setenv("INTAKE_STRICT_FORMATS", "1")
	t.Setenv("ADMIN_SIGNING_SECRET", "s3cret")
	t.Setenv("WORKER_CONCURRENCY", "-2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Address != ":9999" || cfg.RedisDB != 3 || !cfg.S3UseSSL {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.QueueEnabled() {
		t.Error("QueueEnabled() = false")
	}
	if cfg.SignedURLTTL != 2*time.Minute {
		t.Errorf("SignedURLTTL = %v", cfg.SignedURLTTL)
	}
	if len(cfg.ResumeAllowedTypes) != 2 || cfg.ResumeAllowedTypes[1] != "text/plain" {
		t.Errorf("ResumeAllowedTypes = %v", cfg.ResumeAllowedTypes)
	}
	if !cfg.IntakeStrictFormats {
		t.Error("IntakeStrictFormats = false")
	}
	if string(cfg.AdminSigningSecret) != "s3cret" {
		t.Errorf("AdminSigningSecret = %q", cfg.AdminSigningSecret)
	}
	if cfg.WorkerConcurrency != defaultWorkerCount {
		t.Errorf("WorkerConcurrency = %d, want default", cfg.WorkerConcurrency)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	t.Setenv("SIGNED_URL_TTL", "soon")
	t.Setenv("S3_USE_SSL", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RedisDB != 0 || cfg.SignedURLTTL != defaultSignedTTL || cfg.S3UseSSL {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.4 ,::1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.4/32", "::1/128"}
	if len(cfg.TrustedProxies) != len(want) {
		t.Fatalf("TrustedProxies = %v, want %v", cfg.TrustedProxies, want)
	}
	for i, p := range cfg.TrustedProxies {
		if p.String() != want[i] {
			t.Errorf("TrustedProxies[%d] = %s, want %s", i, p, want[i])
		}
	}

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid proxy entry")
	}
}
