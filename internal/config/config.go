package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const appDir = "podcast-briefing"

// Configuration validation errors.
var (
	ErrUnknownProvider    = errors.New("ai.provider must be 'anthropic' or 'ollama'")
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrInvalidPerPage     = errors.New("raindrop.per_page must be between 1 and 50")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrUnknownShow        = errors.New("show is not configured")
)

type Config struct {
	AI         AIConfig          `yaml:"ai"`
	Raindrop   RaindropConfig    `yaml:"raindrop"`
	Extractor  ExtractorConfig   `yaml:"extractor"`
	Summarizer SummarizerConfig  `yaml:"summarizer"`
	Database   DatabaseConfig    `yaml:"database"`
	Stories    StoriesConfig     `yaml:"stories"`
	Logging    LoggingConfig     `yaml:"logging"`
	Shows      []models.ShowInfo `yaml:"shows"`
	Feeds      []FeedConfig      `yaml:"feeds"`
}

type AIConfig struct {
	Provider         string `yaml:"provider"`
	Endpoint         string `yaml:"endpoint"`
	Version          string `yaml:"version"`
	SummaryModel     string `yaml:"summary_model"`
	ClusterModel     string `yaml:"cluster_model"`
	SummaryMaxTokens int    `yaml:"summary_max_tokens"`
	ClusterMaxTokens int    `yaml:"cluster_max_tokens"`
	OllamaHost       string `yaml:"ollama_host"`
	OllamaModel      string `yaml:"ollama_model"`
}

type RaindropConfig struct {
	BaseURL   string        `yaml:"base_url"`
	PerPage   int           `yaml:"per_page"`
	PageDelay time.Duration `yaml:"page_delay"`
}

type ExtractorConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	Concurrency    int           `yaml:"concurrency"`
	UserAgent      string        `yaml:"user_agent"`
	MinLength      int           `yaml:"min_length"`
	FirefoxCookies bool          `yaml:"firefox_cookies"`
}

type SummarizerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Pause       time.Duration `yaml:"pause"`
	MaxChars    int           `yaml:"max_chars"`
}

type DatabaseConfig struct {
	Path      string        `yaml:"path"`
	Disable   bool          `yaml:"disable"`
	Retention time.Duration `yaml:"retention"`
}

type StoriesConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type FeedConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Provider:         "anthropic",
			Endpoint:         "https://api.anthropic.com/v1/messages",
			Version:          "2023-06-01",
			SummaryModel:     "claude-3-5-haiku-20241022",
			ClusterModel:     "claude-haiku-4-5-20251001",
			SummaryMaxTokens: 768,
			ClusterMaxTokens: 2048,
			OllamaHost:       "http://localhost:11434",
		},
		Raindrop: RaindropConfig{
			BaseURL:   "https://api.raindrop.io/rest/v1",
			PerPage:   50,
			PageDelay: 500 * time.Millisecond,
		},
		Extractor: ExtractorConfig{
			Timeout:     30 * time.Second,
			Concurrency: 10,
			UserAgent:   "Mozilla/5.0 (compatible; PodcastBriefing/1.0)",
			MinLength:   100,
		},
		Summarizer: SummarizerConfig{
			Concurrency: 2,
			Pause:       500 * time.Millisecond,
			MaxChars:    10000,
		},
		Database: DatabaseConfig{
			Path:      filepath.Join(dataDir(), "cache.db"),
			Retention: 30 * 24 * time.Hour,
		},
		Stories:  StoriesConfig{Dir: filepath.Join(dataDir(), "stories")},
		Logging:  LoggingConfig{Level: "info"},
		Shows: []models.ShowInfo{
			{Name: "This Week in Tech", Slug: "twit", Tag: "TWiT"},
			{Name: "MacBreak Weekly", Slug: "mbw", Tag: "MBW"},
			{Name: "Intelligent Machines", Slug: "im", Tag: "IM"},
		},
	}
}

// Load reads configuration from path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Stories.Dir = expandPath(cfg.Stories.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "anthropic", "ollama":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.AI.Provider)
	}

	if c.Extractor.Concurrency < 1 {
		return fmt.Errorf("extractor: %w", ErrInvalidConcurrency)
	}
	if c.Summarizer.Concurrency < 1 {
		return fmt.Errorf("summarizer: %w", ErrInvalidConcurrency)
	}
	if c.Raindrop.PerPage < 1 || c.Raindrop.PerPage > 50 {
		return ErrInvalidPerPage
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// Show finds a configured show by slug or tag, case-insensitively.
func (c *Config) Show(name string) (models.ShowInfo, error) {
	for _, s := range c.Shows {
		if strings.EqualFold(s.Slug, name) || strings.EqualFold(s.Tag, name) {
			return s, nil
		}
	}
	return models.ShowInfo{}, fmt.Errorf("%w: %s", ErrUnknownShow, name)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Dir returns the per-user configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appDir)
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultCredentialsPath returns the env-style credentials file path.
func DefaultCredentialsPath() string {
	return filepath.Join(Dir(), ".env")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(home, ".local", "share", appDir)
}
