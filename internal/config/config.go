// Package config holds all pagecraft configuration. Config is loaded from a
// YAML file and then overridden from the environment, mirroring how deployments
// inject credentials without touching files on disk.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pagecraft configuration.
type Config struct {
	// LLM configures the text-generation collaborator.
	LLM LLMConfig `yaml:"llm"`

	// Images configures the target resolver and source router.
	Images ImagesConfig `yaml:"images"`

	// Generate configures the orchestrator.
	Generate GenerateConfig `yaml:"generate"`

	// Store configures the attempt audit store.
	Store StoreConfig `yaml:"store"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generation client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ImagesConfig configures the image resolver and router. The stock/generation
// thresholds are empirically tuned values, not invariants; keep them here so
// they can change per deployment without a rebuild.
type ImagesConfig struct {
	// MaxPlans is the hard cap on unresolved image targets per document.
	// Exceeding it refuses generation outright.
	MaxPlans int `yaml:"max_plans"`

	// StockMaxWords is the prompt word count above which a lifestyle prompt
	// routes to generation instead of stock search.
	StockMaxWords int `yaml:"stock_max_words"`

	// StockMaxCommas is the comma count above which a lifestyle prompt
	// routes to generation instead of stock search.
	StockMaxCommas int `yaml:"stock_max_commas"`
}

// GenerateConfig configures the draft orchestrator.
type GenerateConfig struct {
	// MaxDroppedRecorded caps how many dropped sections are recorded per report.
	MaxDroppedRecorded int `yaml:"max_dropped_recorded"`
}

// StoreConfig configures the SQLite attempt audit store.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  "120s",
		},
		Images: ImagesConfig{
			MaxPlans:       40,
			StockMaxWords:  16,
			StockMaxCommas: 2,
		},
		Generate: GenerateConfig{
			MaxDroppedRecorded: 20,
		},
		Store: StoreConfig{
			Path: "pagecraft_attempts.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, falling back to defaults for absent
// fields, then applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from PAGECRAFT_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("PAGECRAFT_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("PAGECRAFT_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("PAGECRAFT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("PAGECRAFT_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("PAGECRAFT_IMAGES_MAX_PLANS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Images.MaxPlans = n
		}
	}
	if v := os.Getenv("PAGECRAFT_STORE_PATH"); v != "" {
		c.Store.Path = v
		c.Store.Enabled = true
	}
	if v := os.Getenv("PAGECRAFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Images.MaxPlans <= 0 {
		return fmt.Errorf("images.max_plans must be positive, got %d", c.Images.MaxPlans)
	}
	if c.Images.StockMaxWords <= 0 {
		return fmt.Errorf("images.stock_max_words must be positive, got %d", c.Images.StockMaxWords)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	return nil
}

// LLMTimeout parses the configured LLM timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}
