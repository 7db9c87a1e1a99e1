package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Vision.Endpoint != "https://vision.googleapis.com/v1" {
		t.Errorf("vision endpoint = %q", cfg.Vision.Endpoint)
	}
	if cfg.Vision.APIKey != "${VISION_API_KEY}" {
		t.Error("expected vision API key placeholder")
	}
	if cfg.Vision.PollInterval != 5*time.Second {
		t.Errorf("poll_interval = %v, expected 5s", cfg.Vision.PollInterval)
	}
	if cfg.Output.Mode != "simple" {
		t.Errorf("output mode = %q, expected simple", cfg.Output.Mode)
	}
	if cfg.Output.MinConfidence != 0.7 {
		t.Errorf("min_confidence = %v, expected 0.7", cfg.Output.MinConfidence)
	}
	if cfg.Output.FallbackLanguage != "en" {
		t.Errorf("fallback_language = %q, expected en", cfg.Output.FallbackLanguage)
	}
	if cfg.Files.MaxFileSize != 10*1024*1024 {
		t.Errorf("max_file_size = %d, expected 10 MiB", cfg.Files.MaxFileSize)
	}
	if len(cfg.Files.AllowedExtensions) == 0 {
		t.Error("expected default allowed extensions")
	}
	if _, ok := cfg.Summary.Languages["ja"]; !ok {
		t.Error("expected built-in japanese prompt templates")
	}
	if _, ok := cfg.Summary.Languages["en"]; !ok {
		t.Error("expected built-in english prompt templates")
	}
	if !cfg.Security.EnableAuditLogs {
		t.Error("audit logs should be enabled by default")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_NormalizeOptions(t *testing.T) {
	t.Run("carries output settings", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output.Mode = "detailed"
		cfg.Output.IncludeWordLevel = true

		opts, err := cfg.NormalizeOptions()
		if err != nil {
			t.Fatalf("NormalizeOptions() error = %v", err)
		}
		if opts.Mode != normalize.ModeDetailed {
			t.Errorf("mode = %v, expected detailed", opts.Mode)
		}
		if opts.MinConfidence != 0.7 {
			t.Errorf("min_confidence = %v, expected 0.7", opts.MinConfidence)
		}
		if !opts.IncludeWordLevel {
			t.Error("include_word_level not carried over")
		}
		if opts.FallbackLanguage != "en" {
			t.Errorf("fallback_language = %q, expected en", opts.FallbackLanguage)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output.Mode = "verbose"

		if _, err := cfg.NormalizeOptions(); !errors.Is(err, normalize.ErrUnknownMode) {
			t.Errorf("expected ErrUnknownMode, got %v", err)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
vision:
  poll_interval: 250ms
storage:
  bucket: scans
output:
  mode: detailed
  min_confidence: 0.5
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Vision.PollInterval != 250*time.Millisecond {
			t.Errorf("poll_interval = %v, expected 250ms", cfg.Vision.PollInterval)
		}
		if cfg.Storage.Bucket != "scans" {
			t.Errorf("bucket = %q, expected scans", cfg.Storage.Bucket)
		}
		if cfg.Output.Mode != "detailed" {
			t.Errorf("mode = %q, expected detailed", cfg.Output.Mode)
		}
		if cfg.Output.MinConfidence != 0.5 {
			t.Errorf("min_confidence = %v, expected 0.5", cfg.Output.MinConfidence)
		}
	})

	t.Run("keeps defaults for unset keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		if err := os.WriteFile(configFile, []byte("output:\n  mode: detailed\n"), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Vision.BatchSize != 1 {
			t.Errorf("batch_size = %d, expected default 1", cfg.Vision.BatchSize)
		}
		if cfg.Output.MinConfidence != 0.7 {
			t.Errorf("min_confidence = %v, expected default 0.7", cfg.Output.MinConfidence)
		}
		if !cfg.Security.DeleteAfterProcessing {
			t.Error("delete_after_processing should keep its default")
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		if err := os.WriteFile(configFile, []byte("output:\n  mode: simple\n"), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		os.Setenv("OCRSUM_OUTPUT_MODE", "detailed")
		defer os.Unsetenv("OCRSUM_OUTPUT_MODE")
		os.Setenv("OCRSUM_OUTPUT_FALLBACK_LANGUAGE", "ja")
		defer os.Unsetenv("OCRSUM_OUTPUT_FALLBACK_LANGUAGE")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Output.Mode != "detailed" {
			t.Errorf("mode = %q, expected env override detailed", cfg.Output.Mode)
		}
		if cfg.Output.FallbackLanguage != "ja" {
			t.Errorf("fallback_language = %q, expected env override ja", cfg.Output.FallbackLanguage)
		}
	})
}

func TestManager_OnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("output:\n  mode: simple\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 2 {
		t.Errorf("expected 2 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("output:\n  mode: simple\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Output.Mode
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("output:\n  mode: simple\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if mode := mgr.Get().Output.Mode; mode != "simple" {
		t.Errorf("initial mode mismatch: expected simple, got %s", mode)
	}

	var callbackCount atomic.Int32
	var lastMode atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastMode.Store(cfg.Output.Mode)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("output:\n  mode: detailed\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	if mode := mgr.Get().Output.Mode; mode != "detailed" {
		t.Errorf("config not updated: expected detailed, got %s", mode)
	}

	if v := lastMode.Load(); v != "detailed" {
		t.Errorf("callback received wrong value: expected detailed, got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# ocrsum configuration") {
		t.Error("written config missing comment header")
	}
	for _, section := range []string{"vision:", "storage:", "output:", "files:", "summary:", "security:"} {
		if !strings.Contains(content, section) {
			t.Errorf("written config missing %q section", section)
		}
	}
	if !strings.Contains(content, "${VISION_API_KEY}") {
		t.Error("written config should keep env var placeholders unresolved")
	}

	// The written file must load back with the same effective values.
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to reload written config: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Output.MinConfidence != 0.7 {
		t.Errorf("round-trip min_confidence = %v, expected 0.7", cfg.Output.MinConfidence)
	}
	if cfg.Vision.PollInterval != 5*time.Second {
		t.Errorf("round-trip poll_interval = %v, expected 5s", cfg.Vision.PollInterval)
	}
	if len(cfg.Vision.LanguageHints) != 2 {
		t.Errorf("round-trip language_hints = %v", cfg.Vision.LanguageHints)
	}
}
