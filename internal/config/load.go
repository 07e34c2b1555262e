package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvConfig = "ERINN_CONFIG" // config file path, below -config
	EnvData   = "ERINN_DATA"   // client data folder, below -data
)

// Load loads configuration with priority: defaults < file < environment < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides.
func applyEnv(cfg *Config) {
	if root := os.Getenv(EnvData); root != "" {
		cfg.Data.Root = root
	}
}

// findConfigFile returns the first existing candidate: the working
// directory, then the user config directory.
func findConfigFile() string {
	candidates := []string{
		"./erinn.yaml",
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Erinn")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Erinn")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "erinn")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "erinn")
	}
}

// loadFromFile merges a YAML file over cfg. Keys absent from the file keep
// their current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
