package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REELSMITH_API_TOKEN", "")
	t.Setenv("REELSMITH_BACKEND_URL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "reelsmith")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Backend.BaseURL != config.Default().Backend.BaseURL {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Polling.MaxTransportRetries != 3 {
		t.Fatalf("unexpected transport retries: %d", cfg.Polling.MaxTransportRetries)
	}
	if cfg.Generation.Style != "cinematic" {
		t.Fatalf("unexpected style: %q", cfg.Generation.Style)
	}
	if cfg.Generation.VideoModel != "veo_3_1-fast" {
		t.Fatalf("unexpected video model: %q", cfg.Generation.VideoModel)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("REELSMITH_API_TOKEN", "")
	t.Setenv("REELSMITH_BACKEND_URL", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelsmith.toml")

	type payload struct {
		Backend struct {
			BaseURL  string `toml:"base_url"`
			APIToken string `toml:"api_token"`
		} `toml:"backend"`
		Polling struct {
			IntervalMillis int `toml:"interval_ms"`
		} `toml:"polling"`
		Generation struct {
			Style string `toml:"style"`
		} `toml:"generation"`
	}
	custom := payload{}
	custom.Backend.BaseURL = "https://films.example.com/api/v1/"
	custom.Backend.APIToken = "file-token"
	custom.Polling.IntervalMillis = 500
	custom.Generation.Style = "noir"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Backend.BaseURL != "https://films.example.com/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.APIToken != "file-token" {
		t.Fatalf("expected token from file, got %q", cfg.Backend.APIToken)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Fatalf("expected 500ms interval, got %s", cfg.PollInterval())
	}
	if cfg.Generation.Style != "noir" {
		t.Fatalf("expected style override, got %q", cfg.Generation.Style)
	}
	if cfg.Polling.MaxTransportRetries != 3 {
		t.Fatalf("expected default retries preserved, got %d", cfg.Polling.MaxTransportRetries)
	}
}

func TestEnvVarOverridesConfigFileForCredentials(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "reelsmith.toml")
	contents := "[backend]\napi_token = \"file-token\"\napi_key_id = \"file-key\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("REELSMITH_API_TOKEN", "env-token")
	t.Setenv("REELSMITH_API_KEY_ID", "env-key")
	t.Setenv("REELSMITH_BACKEND_URL", "http://backend.internal:9000/api/v1")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Errorf("expected token from env, got %q", cfg.Backend.APIToken)
	}
	if cfg.Backend.APIKeyID != "env-key" {
		t.Errorf("expected key id from env, got %q", cfg.Backend.APIKeyID)
	}
	if cfg.Backend.BaseURL != "http://backend.internal:9000/api/v1" {
		t.Errorf("expected base url from env, got %q", cfg.Backend.BaseURL)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "reelsmith.toml")
	if err := os.WriteFile(configPath, []byte("[polling\ninterval_ms = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "REELSMITH_API_TOKEN") {
		t.Fatalf("sample config missing token hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Polling.IntervalMillis != 2000 {
		t.Fatalf("expected sample interval 2000, got %d", cfg.Polling.IntervalMillis)
	}
	if !strings.Contains(cfg.Paths.StateDir, "reelsmith") {
		t.Fatalf("expected state dir to contain reelsmith, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing base url", func(c *config.Config) { c.Backend.BaseURL = "" }},
		{"relative base url", func(c *config.Config) { c.Backend.BaseURL = "/api/v1" }},
		{"unsupported scheme", func(c *config.Config) { c.Backend.BaseURL = "ftp://host/api" }},
		{"zero request timeout", func(c *config.Config) { c.Backend.RequestTimeout = 0 }},
		{"zero interval", func(c *config.Config) { c.Polling.IntervalMillis = 0 }},
		{"negative retries", func(c *config.Config) { c.Polling.MaxTransportRetries = -1 }},
		{"notify timeout", func(c *config.Config) {
			c.Notifications.NtfyTopic = "https://ntfy.sh/x"
			c.Notifications.RequestTimeout = 0
		}},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Polling.MaxTransportRetries = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero retries should be allowed: %v", err)
	}
}

func TestSessionLockPathSanitizesChapterID(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = "/var/lib/reelsmith"
	got := cfg.SessionLockPath("ch/../1")
	want := filepath.Join("/var/lib/reelsmith", "locks", "chapter-ch____1.lock")
	if got != want {
		t.Fatalf("SessionLockPath = %q, want %q", got, want)
	}
}
