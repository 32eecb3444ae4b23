package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the in-memory representation of ~/.medclass/medclass.yaml.
type Config struct {
	CatalogPath    string  `yaml:"catalog_path"`
	CacheDir       string  `yaml:"cache_dir"`
	MaxResults     int     `yaml:"max_results"`
	MinQueryLen    int     `yaml:"min_query_len"`
	MinScore       float64 `yaml:"min_score"`
	Workers        int     `yaml:"workers,omitempty"`
	LogLevel       string  `yaml:"log_level,omitempty"`
	QueryCacheSize int     `yaml:"query_cache_size,omitempty"`
}

// Environment keys that override the config file.
const (
	EnvCatalog  = "MEDCLASS_CATALOG"
	EnvCacheDir = "MEDCLASS_CACHE_DIR"
	EnvLogLevel = "MEDCLASS_LOG_LEVEL"
)

// HomeDir returns the absolute path to ~/.medclass/.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".medclass"), nil
}

// ConfigPath returns the absolute path to ~/.medclass/medclass.yaml.
func ConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "medclass.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() (*Config, error) {
	dir, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		CatalogPath:    filepath.Join(dir, "data", "22.csv"),
		CacheDir:       filepath.Join(dir, "cache"),
		MaxResults:     10,
		MinQueryLen:    2,
		MinScore:       0.3,
		LogLevel:       "warn",
		QueryCacheSize: 256,
	}, nil
}

// Load reads ~/.medclass/medclass.yaml. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, filling unset fields from DefaultConfig
// and applying environment overrides. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update applies fn to the config stored at path and saves it. Environment
// and .env overrides are not applied, so they never end up in the file.
func Update(path string, fn func(*Config)) error {
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	fn(cfg)
	if err := cfg.normalize(); err != nil {
		return err
	}
	return Save(path, cfg)
}

// readFile returns DefaultConfig overlaid with the YAML at path, if any.
func readFile(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvCatalog, &c.CatalogPath},
		{EnvCacheDir, &c.CacheDir},
		{EnvLogLevel, &c.LogLevel},
	}
	for _, o := range overrides {
		v, err := GetConfigValue(o.key)
		if err != nil {
			return err
		}
		if v != "" {
			*o.dst = v
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	// Expand ~ at load time.
	if c.CatalogPath, err = ExpandPath(c.CatalogPath); err != nil {
		return err
	}
	if c.CacheDir, err = ExpandPath(c.CacheDir); err != nil {
		return err
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.MinQueryLen < 0 {
		return fmt.Errorf("min_query_len must not be negative, got %d", c.MinQueryLen)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be within [0,1], got %v", c.MinScore)
	}
	if c.QueryCacheSize < 0 {
		return fmt.Errorf("query_cache_size must not be negative, got %d", c.QueryCacheSize)
	}
	return nil
}

// Save marshals cfg and writes it to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
