// Package config loads client configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full client configuration.
type Config struct {
	Server struct {
		APIBaseURL string `yaml:"api_base_url"`
		WSBaseURL  string `yaml:"ws_base_url"`
	} `yaml:"server"`

	Session struct {
		// Path of the saved-session descriptor file.
		Path string `yaml:"path"`
	} `yaml:"session"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Harness struct {
		Addr        string `yaml:"addr"`
		NATSURL     string `yaml:"nats_url"`
		RoundLength int    `yaml:"round_length_seconds"`
	} `yaml:"harness"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.APIBaseURL = getEnv("IMPOSTOR_API_URL", "http://localhost:8000")
	cfg.Server.WSBaseURL = getEnv("IMPOSTOR_WS_URL", "ws://localhost:8000")
	cfg.Session.Path = getEnv("IMPOSTOR_SESSION_PATH", defaultSessionPath())
	cfg.Log.Level = getEnv("IMPOSTOR_LOG_LEVEL", "info")
	cfg.Harness.Addr = getEnv("IMPOSTOR_HARNESS_ADDR", ":8000")
	cfg.Harness.NATSURL = getEnv("IMPOSTOR_NATS_URL", "")
	cfg.Harness.RoundLength = getEnvAsInt("IMPOSTOR_ROUND_LENGTH", 300)
	return cfg
}

// Load reads the YAML file at path on top of environment defaults. A missing
// file is not an error; everything then comes from env vars and defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "impostor_session.json"
	}
	return filepath.Join(dir, "impostor", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
