package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Renderer  RendererConfig            `json:"renderer" yaml:"renderer"`
	Archive   ArchiveConfig             `json:"archive" yaml:"archive"`
}

type AppConfig struct {
	Name string `json:"name" yaml:"name"`
	Addr string `json:"addr" yaml:"addr"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type RendererConfig struct {
	MaxRetries          int     `json:"max_retries" yaml:"max_retries"`
	CallTimeoutSeconds  float64 `json:"call_timeout_seconds" yaml:"call_timeout_seconds"`
	RelaxationPassLimit int     `json:"relaxation_pass_limit" yaml:"relaxation_pass_limit"`
}

type ArchiveConfig struct {
	Path          string `json:"path" yaml:"path"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
}

// defaults returns a config pre-seeded with defaults; decoding a file on top
// only overwrites the keys the file actually sets.
func defaults() Config {
	return Config{
		App: AppConfig{
			Name: "stepflow",
			Addr: ":8080",
		},
		Renderer: RendererConfig{
			MaxRetries:          2,
			CallTimeoutSeconds:  30,
			RelaxationPassLimit: 0, // 0 = one pass per plan intent
		},
		Archive: ArchiveConfig{
			Path:          "renders.db",
			RetentionDays: 30,
		},
	}
}

func LoadConfig(path string) *Config {
	cfg, err := loadConfig(path)
	if err != nil {
		log.Fatalf("failed to load config file: %v", err)
	}
	return cfg
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// CallTimeout returns the per-call reasoning timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Renderer.CallTimeoutSeconds * float64(time.Second))
}

// Retention returns the archive retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Archive.RetentionDays) * 24 * time.Hour
}
