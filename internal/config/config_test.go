package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Speed != 1.0 {
		t.Errorf("default speed = %v, want 1.0", cfg.Speed)
	}
	if cfg.Synthesis.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", cfg.Synthesis.Timeout)
	}
	if cfg.CacheDir == "" {
		t.Error("default cache dir must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
synthesis:
  endpoint: http://localhost:8090/synthesize
  requests_per_minute: 12
voice:
  current: brook
speed: 1.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Synthesis.Endpoint != "http://localhost:8090/synthesize" {
		t.Errorf("endpoint = %q", cfg.Synthesis.Endpoint)
	}
	if cfg.Synthesis.RequestsPerMinute != 12 {
		t.Errorf("rpm = %d, want 12", cfg.Synthesis.RequestsPerMinute)
	}
	if cfg.Voice.Current != "brook" {
		t.Errorf("voice = %q, want brook", cfg.Voice.Current)
	}
	if cfg.Speed != 1.5 {
		t.Errorf("speed = %v, want 1.5", cfg.Speed)
	}
	// Untouched fields keep their defaults.
	if cfg.Synthesis.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Synthesis.Timeout)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("speed = %v, want default", cfg.Speed)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LECTERN_VOICE", "meadow")
	t.Setenv("LECTERN_SPEED", "0.75")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Voice.Current != "meadow" {
		t.Errorf("voice = %q, want env override meadow", cfg.Voice.Current)
	}
	if cfg.Speed != 0.75 {
		t.Errorf("speed = %v, want env override 0.75", cfg.Speed)
	}
}

func TestValidateRejectsBadSpeed(t *testing.T) {
	cfg := Default()
	cfg.Speed = 3.5
	if err := cfg.Validate(); err == nil {
		t.Error("speed 3.5 must not validate")
	}
}
