package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers for the persisted principal.
const (
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	API struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Trivia struct {
		URL string `yaml:"url"`
	} `yaml:"trivia"`
	Storage struct {
		Driver    string `yaml:"driver"`
		Path      string `yaml:"path"`
		Namespace string `yaml:"namespace"`
	} `yaml:"storage"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
}

// Default is the configuration used when no file exists.
func Default() Config {
	cfg := Config{}
	cfg.API.URL = "http://localhost:8000"
	cfg.API.Timeout = "10s"
	cfg.Storage.Driver = DriverSQLite
	cfg.Server.Port = "8080"
	cfg.Quiz.TTL = "5m"
	return cfg
}

// Load reads YAML config from path over the defaults. A missing file yields the defaults.
// QUIZ_API_URL, when set, overrides the API url.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if url := os.Getenv("QUIZ_API_URL"); url != "" {
		cfg.API.URL = url
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
