package config

import (
	"os"
	"path/filepath"
)

const AppName = "eagle-pics-server"

var dirOverride string

// SetDir overrides the config directory for the rest of the process.
func SetDir(dir string) { dirOverride = dir }

func Dir() (string, error) {
	if dirOverride != "" {
		return dirOverride, nil
	}
	if env := os.Getenv("EPS_CONFIG_DIR"); env != "" {
		return env, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func DBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "library.db"), nil
}

func DefaultLogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "eps.log"), nil
}

func DefaultThemeDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "themes"), nil
}
