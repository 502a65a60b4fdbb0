package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("bind addr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.MaxHistory != 15 {
		t.Fatalf("max history = %d, want 15", cfg.MaxHistory)
	}
	if cfg.BrainAdapterMode != "auto" {
		t.Fatalf("brain mode = %q, want auto", cfg.BrainAdapterMode)
	}
	if cfg.BrainMaxAttempts != 3 {
		t.Fatalf("brain attempts = %d, want 3", cfg.BrainMaxAttempts)
	}
	if cfg.BrainRequestTimeout != 60*time.Second {
		t.Fatalf("brain timeout = %v, want 60s", cfg.BrainRequestTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("APP_MAX_HISTORY", "25")
	t.Setenv("BRAIN_REQUEST_TIMEOUT", "30s")
	t.Setenv("BRAIN_HTTP_URL", " http://localhost:8000/v1/chat/completions ")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BindAddr != ":9999" {
		t.Fatalf("bind addr = %q", cfg.BindAddr)
	}
	if cfg.MaxHistory != 25 {
		t.Fatalf("max history = %d", cfg.MaxHistory)
	}
	if cfg.BrainRequestTimeout != 30*time.Second {
		t.Fatalf("brain timeout = %v", cfg.BrainRequestTimeout)
	}
	if cfg.BrainHTTPURL != "http://localhost:8000/v1/chat/completions" {
		t.Fatalf("brain url not trimmed: %q", cfg.BrainHTTPURL)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("allow any origin not set")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"APP_MAX_HISTORY", "0"},
		{"APP_MAX_HISTORY", "notanumber"},
		{"BRAIN_MAX_ATTEMPTS", "-1"},
		{"BRAIN_REQUEST_TIMEOUT", "100ms"},
		{"APP_SHUTDOWN_TIMEOUT", "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
