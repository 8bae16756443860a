package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("admin.signing_secret", "test-secret")
	configViper.Set("media.base_url", "https://content.example.com/v2/message")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected default address %q", cfg.HTTPAddress)
	}
	if cfg.CatalogCapacity != 200 {
		t.Fatalf("unexpected default capacity %d", cfg.CatalogCapacity)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Fatalf("unexpected default session timeout %v", cfg.SessionTimeout)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("unexpected default sweep interval %v", cfg.SweepInterval)
	}
	if cfg.InactivityWindow != 0 {
		t.Fatalf("inactivity purge must default to disabled, got %v", cfg.InactivityWindow)
	}
	if cfg.StorageMode != "inline" {
		t.Fatalf("unexpected default storage mode %q", cfg.StorageMode)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()
	configViper.Set("media.base_url", "https://content.example.com")

	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "admin.signing_secret") {
		t.Fatalf("expected signing secret error, got %v", err)
	}
}

func TestLoadRequiresMediaBaseURL(t *testing.T) {
	configViper := NewViper()
	configViper.Set("admin.signing_secret", "test-secret")

	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "media.base_url") {
		t.Fatalf("expected media base URL error, got %v", err)
	}
}

func TestLoadValidatesS3Settings(t *testing.T) {
	configViper := NewViper()
	configViper.Set("admin.signing_secret", "test-secret")
	configViper.Set("media.base_url", "https://content.example.com")
	configViper.Set("storage.mode", "s3")

	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "s3.endpoint") {
		t.Fatalf("expected s3 endpoint error, got %v", err)
	}

	configViper.Set("s3.endpoint", "minio.internal:9000")
	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "s3.bucket") {
		t.Fatalf("expected s3 bucket error, got %v", err)
	}

	configViper.Set("s3.bucket", "submissions")
	if _, err := Load(configViper); err != nil {
		t.Fatalf("expected valid s3 config, got %v", err)
	}
}

func TestLoadRejectsUnknownStorageMode(t *testing.T) {
	configViper := NewViper()
	configViper.Set("admin.signing_secret", "test-secret")
	configViper.Set("media.base_url", "https://content.example.com")
	configViper.Set("storage.mode", "carrier-pigeon")

	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "storage.mode") {
		t.Fatalf("expected storage mode error, got %v", err)
	}
}
