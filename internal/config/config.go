package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile falls back to ./config.yaml or ~/.ocrsum/config.yaml.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	cm.setDefaults()

	// Environment variables with OCRSUM_ prefix, nested keys joined
	// with underscores (OCRSUM_OUTPUT_MODE -> output.mode).
	cm.v.SetEnvPrefix("OCRSUM")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.ocrsum")
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults seeds every leaf key so environment overrides are picked
// up during Unmarshal even without a config file.
func (cm *Manager) setDefaults() {
	d := DefaultConfig()

	cm.v.SetDefault("vision.endpoint", d.Vision.Endpoint)
	cm.v.SetDefault("vision.api_key", d.Vision.APIKey)
	cm.v.SetDefault("vision.batch_size", d.Vision.BatchSize)
	cm.v.SetDefault("vision.timeout", d.Vision.Timeout)
	cm.v.SetDefault("vision.poll_interval", d.Vision.PollInterval)
	cm.v.SetDefault("vision.poll_attempts", d.Vision.PollAttempts)
	cm.v.SetDefault("vision.language_hints", d.Vision.LanguageHints)
	cm.v.SetDefault("vision.cleanup_output", d.Vision.CleanupOutput)

	cm.v.SetDefault("storage.provider", d.Storage.Provider)
	cm.v.SetDefault("storage.endpoint", d.Storage.Endpoint)
	cm.v.SetDefault("storage.access_key", d.Storage.AccessKey)
	cm.v.SetDefault("storage.secret_key", d.Storage.SecretKey)
	cm.v.SetDefault("storage.bucket", d.Storage.Bucket)
	cm.v.SetDefault("storage.prefix", d.Storage.Prefix)
	cm.v.SetDefault("storage.region", d.Storage.Region)
	cm.v.SetDefault("storage.use_ssl", d.Storage.UseSSL)
	cm.v.SetDefault("storage.uri_scheme", d.Storage.URIScheme)
	cm.v.SetDefault("storage.local_root", d.Storage.LocalRoot)

	cm.v.SetDefault("output.mode", d.Output.Mode)
	cm.v.SetDefault("output.min_confidence", d.Output.MinConfidence)
	cm.v.SetDefault("output.include_confidence", d.Output.IncludeConfidence)
	cm.v.SetDefault("output.include_bounding_boxes", d.Output.IncludeBoundingBoxes)
	cm.v.SetDefault("output.include_word_level", d.Output.IncludeWordLevel)
	cm.v.SetDefault("output.fallback_language", d.Output.FallbackLanguage)

	cm.v.SetDefault("files.allowed_extensions", d.Files.AllowedExtensions)
	cm.v.SetDefault("files.max_file_size", d.Files.MaxFileSize)

	cm.v.SetDefault("summary.enabled", d.Summary.Enabled)
	cm.v.SetDefault("summary.model", d.Summary.Model)
	cm.v.SetDefault("summary.api_key", d.Summary.APIKey)
	cm.v.SetDefault("summary.max_output_tokens", d.Summary.MaxOutputTokens)
	cm.v.SetDefault("summary.max_chars_per_page", d.Summary.MaxCharsPerPage)
	cm.v.SetDefault("summary.languages", d.Summary.Languages)

	cm.v.SetDefault("security.enable_audit_logs", d.Security.EnableAuditLogs)
	cm.v.SetDefault("security.delete_after_processing", d.Security.DeleteAfterProcessing)
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ocrsum configuration
# API keys use ${ENV_VAR} syntax to reference environment variables.
# Set these in your shell:
#   export VISION_API_KEY=xxx STORAGE_ACCESS_KEY=xxx STORAGE_SECRET_KEY=xxx
#   export OPENAI_API_KEY=xxx   # only needed when summary.enabled is true

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
