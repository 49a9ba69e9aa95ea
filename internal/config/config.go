// Package config holds the application's file configuration and on-disk
// paths. Runtime state that the gallery front-end can change lives in the
// database settings row instead; this file covers only what must be known
// before the database is open.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the file-backed configuration, loaded from config.yaml in the
// application config dir with EPS_* environment overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Eagle   EagleConfig   `mapstructure:"eagle"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig configures the gallery HTTP server.
type ServerConfig struct {
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`
}

// ClientConfig configures the front-end the config endpoint describes.
type ClientConfig struct {
	Port     int    `mapstructure:"port"`
	Theme    string `mapstructure:"theme"`
	ThemeDir string `mapstructure:"theme_dir"`
	Color    string `mapstructure:"color"`
}

// EagleConfig locates the local Eagle application API.
type EagleConfig struct {
	URL string `mapstructure:"url"`
}

// SyncConfig tunes the watcher and sync behavior.
type SyncConfig struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	AutoSync         bool          `mapstructure:"auto_sync"`
	StartDiffLibrary bool          `mapstructure:"start_diff_library"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	logPath, _ := DefaultLogPath()
	themeDir, _ := DefaultThemeDir()
	return &Config{
		Server: ServerConfig{
			IP:   "127.0.0.1",
			Port: 61121,
		},
		Client: ClientConfig{
			Port:     61122,
			Theme:    "default",
			ThemeDir: themeDir,
			Color:    "#0ea5e9",
		},
		Eagle: EagleConfig{
			URL: "http://127.0.0.1:41595",
		},
		Sync: SyncConfig{
			Debounce: time.Second,
			AutoSync: false,
		},
		Logging: LoggingConfig{
			File:  logPath,
			Level: "INFO",
		},
	}
}

// Load reads config.yaml from the application config dir, falling back to
// defaults when the file is absent.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("EPS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
