package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fsnap.
type Config struct {
	BaseDir     string         `toml:"base_dir"`
	LogDir      string         `toml:"log_dir"`
	CatalogPath string         `toml:"catalog_path"`
	Progress    ProgressConfig `toml:"progress"`
	Apply       ApplyConfig    `toml:"apply"`
}

// ProgressConfig controls the terminal progress indicator.
type ProgressConfig struct {
	Enabled bool `toml:"enabled"`
}

// ApplyConfig holds patch-application settings.
type ApplyConfig struct {
	// VerifySource re-hashes bytes read from the data source during patch
	// and fails on divergence from the diff's fingerprints.
	VerifySource bool `toml:"verify_source"`
}

// NewConfig creates a Config with defaults derived from baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:     baseDir,
		LogDir:      filepath.Join(baseDir, "log"),
		CatalogPath: filepath.Join(baseDir, "catalog.db"),
		Progress:    ProgressConfig{Enabled: true},
	}
}

// Read decodes a Config from the provided reader.
func Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init initializes a new config file at the specified path. It refuses to
// clobber an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
