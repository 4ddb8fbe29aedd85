package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Gateway: Gateway{
			Endpoint:      "https://generativelanguage.googleapis.com/v1beta",
			AnalyzeModel:  "gemini-2.5-flash",
			SpeechModel:   "gemini-2.5-flash-preview-tts",
			Voice:         "Zephyr",
			Timeout:       30,
			MaxConcurrent: 4,
		},
		Audio: AudioConfig{
			CaptureSampleRate:  16000,
			PlaybackSampleRate: 24000,
			Channels:           1,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "empty gateway endpoint",
			mutate: func(c *Config) {
				c.Gateway.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "empty analyze model",
			mutate: func(c *Config) {
				c.Gateway.AnalyzeModel = ""
			},
			expectError: true,
			errorMsg:    "analyze_model cannot be empty",
		},
		{
			name: "zero gateway timeout",
			mutate: func(c *Config) {
				c.Gateway.Timeout = 0
			},
			expectError: true,
			errorMsg:    "timeout must be at least 1 second",
		},
		{
			name: "capture sample rate too low",
			mutate: func(c *Config) {
				c.Audio.CaptureSampleRate = 4000
			},
			expectError: true,
			errorMsg:    "capture_sample_rate must be between 8000 and 48000",
		},
		{
			name: "wrong playback sample rate",
			mutate: func(c *Config) {
				c.Audio.PlaybackSampleRate = 44100
			},
			expectError: true,
			errorMsg:    "playback_sample_rate must be 24000 Hz",
		},
		{
			name: "stereo channels rejected",
			mutate: func(c *Config) {
				c.Audio.Channels = 2
			},
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name: "empty data dir",
			mutate: func(c *Config) {
				c.Storage.DataDir = ""
			},
			expectError: true,
			errorMsg:    "data_dir cannot be empty",
		},
		{
			name: "invalid http port when enabled",
			mutate: func(c *Config) {
				c.HTTP.Port = 70000
			},
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http settings ignored when disabled",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
				c.HTTP.Address = ""
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError: true,
			errorMsg:    "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
gateway:
  endpoint: "https://generativelanguage.googleapis.com/v1beta"
  analyze_model: "gemini-2.5-flash"
  speech_model: "gemini-2.5-flash-preview-tts"
  voice: "Zephyr"
  timeout: 30
  max_concurrent: 4
audio:
  capture_sample_rate: 16000
  playback_sample_rate: 24000
  channels: 1
storage:
  data_dir: "./data"
http:
  enabled: false
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
gateway:
  endpoint: "https://example.com"
  timeout: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
gateway:
  analyze_model: "gemini-2.5-flash"
  # missing endpoint
`,
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "test-credential")
	if got := APIKey(); got != "test-credential" {
		t.Errorf("Expected 'test-credential', got '%s'", got)
	}

	t.Setenv(EnvAPIKey, "")
	if got := APIKey(); got != "" {
		t.Errorf("Expected empty key, got '%s'", got)
	}
}

func TestDurationHelpers(t *testing.T) {
	gateway := Gateway{Timeout: 30}

	if gateway.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", gateway.GetTimeoutDuration())
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
