package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/tailscale/hujson"
)

type Config struct {
	Port        string `json:"port"`
	DatabaseURL string `json:"database_url"`
	PrefsPath   string `json:"prefs_path"`
	WorkerCount int    `json:"worker_count"`
	EventBuffer int    `json:"event_buffer"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		DatabaseURL: "taskflow.db",
		PrefsPath:   "user_preferences.json",
		WorkerCount: 3,
		EventBuffer: 64,
	}
}

// Load builds the configuration from defaults, then the optional config
// file (JSON with comments allowed), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.PrefsPath = getEnv("PREFS_PATH", cfg.PrefsPath)

	var err error
	if cfg.WorkerCount, err = getEnvInt("WORKER_COUNT", cfg.WorkerCount); err != nil {
		return Config{}, err
	}
	if cfg.EventBuffer, err = getEnvInt("EVENT_BUFFER", cfg.EventBuffer); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: port is required")
	case c.DatabaseURL == "":
		return errors.New("config: database_url is required")
	case c.PrefsPath == "":
		return errors.New("config: prefs_path is required")
	case c.WorkerCount < 1:
		return fmt.Errorf("config: worker_count must be positive, got %d", c.WorkerCount)
	case c.EventBuffer < 1:
		return fmt.Errorf("config: event_buffer must be positive, got %d", c.EventBuffer)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	data, err = hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
