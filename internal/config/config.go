package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Gateway Gateway       `yaml:"gateway"`
	Audio   AudioConfig   `yaml:"audio"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// Gateway contains inference gateway configuration. The API key is never
// read from the file; it comes from the GEMINI_API_KEY environment
// variable.
type Gateway struct {
	Endpoint      string `yaml:"endpoint"`
	AnalyzeModel  string `yaml:"analyze_model"`
	SpeechModel   string `yaml:"speech_model"`
	Voice         string `yaml:"voice"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// AudioConfig contains audio pipeline parameters
type AudioConfig struct {
	CaptureSampleRate  int `yaml:"capture_sample_rate"`  // Hz, microphone side
	PlaybackSampleRate int `yaml:"playback_sample_rate"` // Hz, synthesized speech side
	Channels           int `yaml:"channels"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// HTTPConfig contains monitoring HTTP API configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EnvAPIKey is the environment variable carrying the inference credential.
const EnvAPIKey = "GEMINI_API_KEY"

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// APIKey returns the inference credential from the environment, or "" when
// it is absent. Absence is a per-call gateway failure, not a startup error.
func APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates gateway configuration
func (g *Gateway) Validate() error {
	if g.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if g.AnalyzeModel == "" {
		return fmt.Errorf("analyze_model cannot be empty")
	}

	if g.SpeechModel == "" {
		return fmt.Errorf("speech_model cannot be empty")
	}

	if g.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", g.Timeout)
	}

	if g.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", g.MaxConcurrent)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.CaptureSampleRate < 8000 || a.CaptureSampleRate > 48000 {
		return fmt.Errorf("capture_sample_rate must be between 8000 and 48000 Hz, got %d", a.CaptureSampleRate)
	}

	if a.PlaybackSampleRate != 24000 {
		return fmt.Errorf("playback_sample_rate must be 24000 Hz (synthesized speech format), got %d", a.PlaybackSampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the gateway timeout as a time.Duration
func (g *Gateway) GetTimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}
