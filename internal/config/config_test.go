package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CARDSCAN_API_URL", "CARDSCAN_STORAGE_URL", "CARDSCAN_TOKEN", "CARDSCAN_EXTRACTOR",
		"GEMINI_API_KEY", "GEMINI_MODEL", "CARDSCAN_LEDGER", "CARDSCAN_WORK_DIR",
		"CARDSCAN_LOG_LEVEL", "CARDSCAN_DETECTOR_MAX_SIDE", "CARDSCAN_HTTP_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DetectorMaxSide != 1600 {
		t.Errorf("DetectorMaxSide = %d, want 1600", cfg.DetectorMaxSide)
	}
	if cfg.Extractor != ExtractorAPI {
		t.Errorf("Extractor = %q, want %q", cfg.Extractor, ExtractorAPI)
	}
	if cfg.HTTPTimeout != 0 {
		t.Errorf("HTTPTimeout = %s, want 0", cfg.HTTPTimeout)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cardscan.yaml")
	content := "api_url: http://file:9000\nstorage_url: https://bucket/cards\ndetector_max_side: 1024\nhttp_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CARDSCAN_API_URL", "http://env:8000")
	t.Setenv("CARDSCAN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "http://env:8000" {
		t.Errorf("APIURL = %q, env should win", cfg.APIURL)
	}
	if cfg.StorageURL != "https://bucket/cards" {
		t.Errorf("StorageURL = %q", cfg.StorageURL)
	}
	if cfg.DetectorMaxSide != 1024 {
		t.Errorf("DetectorMaxSide = %d, want 1024", cfg.DetectorMaxSide)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %s, want 5s", cfg.HTTPTimeout)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad max side", env: map[string]string{"CARDSCAN_DETECTOR_MAX_SIDE": "big"}},
		{name: "zero max side", env: map[string]string{"CARDSCAN_DETECTOR_MAX_SIDE": "0"}},
		{name: "bad timeout", env: map[string]string{"CARDSCAN_HTTP_TIMEOUT": "soon"}},
		{name: "unknown extractor", env: map[string]string{"CARDSCAN_EXTRACTOR": "tesseract"}},
		{name: "gemini without key", env: map[string]string{"CARDSCAN_EXTRACTOR": "gemini"}},
		{name: "bad log level", env: map[string]string{"CARDSCAN_LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
