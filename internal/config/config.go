package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Sync      SyncConfig      `yaml:"sync"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig selects how the server is exposed: "stdio" for a single
// local client or "http" for the streamable HTTP endpoint.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig controls bearer-token authentication for the HTTP transport.
// A bootstrap token, when set, is registered for the bootstrap tenant at
// startup so a fresh deployment has one working credential.
type AuthConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BootstrapToken  string `yaml:"bootstrap_token"`
	BootstrapTenant string `yaml:"bootstrap_tenant"`
}

// SyncConfig tunes the write coordinator. Values are milliseconds; zero
// means the built-in default.
type SyncConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
	CooldownMS int `yaml:"cooldown_ms"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "planweave.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
	}

	if path := os.Getenv("PLANWEAVE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("PLANWEAVE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PLANWEAVE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PLANWEAVE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("PLANWEAVE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PLANWEAVE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("PLANWEAVE_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if auth := os.Getenv("PLANWEAVE_AUTH_ENABLED"); auth != "" {
		enabled, err := strconv.ParseBool(auth)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PLANWEAVE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if token := os.Getenv("PLANWEAVE_AUTH_BOOTSTRAP_TOKEN"); token != "" {
		cfg.Auth.BootstrapToken = token
	}
	if tenant := os.Getenv("PLANWEAVE_AUTH_BOOTSTRAP_TENANT"); tenant != "" {
		cfg.Auth.BootstrapTenant = tenant
	}
	if ms := os.Getenv("PLANWEAVE_SYNC_DEBOUNCE_MS"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PLANWEAVE_SYNC_DEBOUNCE_MS: %w", err)
		}
		cfg.Sync.DebounceMS = v
	}
	if ms := os.Getenv("PLANWEAVE_SYNC_COOLDOWN_MS"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PLANWEAVE_SYNC_COOLDOWN_MS: %w", err)
		}
		cfg.Sync.CooldownMS = v
	}

	if cfg.Transport.Mode != "stdio" && cfg.Transport.Mode != "http" {
		return Config{}, fmt.Errorf("invalid transport mode %q", cfg.Transport.Mode)
	}
	if cfg.Auth.BootstrapToken != "" && cfg.Auth.BootstrapTenant == "" {
		return Config{}, fmt.Errorf("auth.bootstrap_tenant is required when auth.bootstrap_token is set")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
