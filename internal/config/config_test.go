package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metcalfc/spoon/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.State.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.State.Backend)
	}
	if cfg.State.Dir != "/tmp/xdg/spoon" {
		t.Errorf("Dir = %q", cfg.State.Dir)
	}
	if cfg.Segment.TargetWords != 300 {
		t.Errorf("TargetWords = %d, want 300", cfg.Segment.TargetWords)
	}
	if cfg.Sync.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %s", cfg.Sync.PollInterval)
	}
	if cfg.Serve.Addr() != "127.0.0.1:7788" {
		t.Errorf("Addr = %q", cfg.Serve.Addr())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte(`
state:
  backend: sqlite
segment:
  target_words: 120
serve:
  port: 9000
`), 0644)
	t.Setenv("SPOON_SERVE_PORT", "9100")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.State.Backend != "sqlite" {
		t.Errorf("Backend = %q", cfg.State.Backend)
	}
	if cfg.Segment.TargetWords != 120 {
		t.Errorf("TargetWords = %d", cfg.Segment.TargetWords)
	}
	if cfg.Serve.Port != 9100 {
		t.Errorf("Port = %d, env should win over file", cfg.Serve.Port)
	}
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alt.yml")
	os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644)
	t.Setenv("SPOON_CONFIG", path)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte("state:\n  backend: redis\n"), 0644)

	if _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "state.backend") {
		t.Errorf("Load error = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Set("sync.poll_interval", "500ms"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Set("state.backend", "sqlite"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if got.Sync.PollInterval != 500*time.Millisecond || got.State.Backend != "sqlite" {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"segment.target_words", "150", false},
		{"segment.target_words", "zero", true},
		{"segment.target_words", "0", true},
		{"serve.port", "70000", true},
		{"state.backend", "sqlite", false},
		{"state.backend", "memory", true},
		{"nope", "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg, _ := config.Load(filepath.Join(t.TempDir(), "c.yml"))
			before := *cfg
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && *cfg != before {
				t.Error("failed Set modified the config")
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := config.ExpandHome("~/books"); got != filepath.Join(home, "books") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := config.ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome = %q", got)
	}
}
