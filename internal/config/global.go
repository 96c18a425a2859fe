package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "fidx"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// EnvAPIKey overrides s2.api_key.
	EnvAPIKey = "S2_API_KEY"
	// EnvDataDir overrides paths.data_dir.
	EnvDataDir = "FIDX_DATA_DIR"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *Config

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/fidx/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file, applies
// environment overrides and caches the result.
// A missing file yields the defaults (not an error).
func LoadGlobalConfig() (*Config, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		return nil, err
	}

	globalConfigCache = cfg
	return cfg, nil
}

// LoadFile loads configuration from path over the defaults and applies
// environment overrides. It does not touch the cache.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.Paths.DataDir = ExpandPath(cfg.Paths.DataDir)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.S2.APIKey = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.Paths.DataDir = v
	}
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetS2APIKey returns the Semantic Scholar API key from global config.
func GetS2APIKey() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return os.Getenv(EnvAPIKey)
	}
	return cfg.S2.APIKey
}

// HelpfulConfigMessage explains where the config file lives.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`Tip: Create %s to override defaults:
  mkdir -p %s
  printf 'paths:\n  data_dir: /path/to/data\n' > %s

%s and %s override the API key and the data directory.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvAPIKey, EnvDataDir)
}
