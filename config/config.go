package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the evfmap tool.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" toml:"scan"`
	Mapping MappingConfig `yaml:"mapping" toml:"mapping"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Debug   DebugConfig   `yaml:"debug" toml:"debug"`
}

// ScanConfig holds listing discovery configuration.
type ScanConfig struct {
	Includes []string `yaml:"includes" toml:"includes"`
	Excludes []string `yaml:"excludes" toml:"excludes"`
	Workers  int      `yaml:"workers" toml:"workers"` // 0 = GOMAXPROCS
}

// MappingConfig holds source map replay configuration.
type MappingConfig struct {
	// ChainUnits replays each unit after the first on top of the previous unit's
	// line table, as the SQL precompiler flow expects.
	ChainUnits bool `yaml:"chain_units" toml:"chain_units"`
}

// OutputConfig holds rendering configuration.
type OutputConfig struct {
	Format       string `yaml:"format" toml:"format"` // "text", "json", "yaml"
	Color        string `yaml:"color" toml:"color"`   // "auto", "always", "never"
	MinSeverity  int    `yaml:"min_severity" toml:"min_severity"`
	FailSeverity int    `yaml:"fail_severity" toml:"fail_severity"` // 0 = never fail
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" toml:"enabled"`
	MemoryEntries int           `yaml:"memory_entries" toml:"memory_entries"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" toml:"memory_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "text", "json"
}

// DebugConfig holds consistency checks that are off by default.
type DebugConfig struct {
	VerifyOffsets bool `yaml:"verify_offsets" toml:"verify_offsets"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Includes: []string{"**/*.evfevent", "**/*.EVFEVENT", "**/*.evf"},
			Excludes: []string{"**/.git/**", "**/.evfmap/**", "**/node_modules/**"},
			Workers:  0,
		},
		Mapping: MappingConfig{
			ChainUnits: false,
		},
		Output: OutputConfig{
			Format:       "text",
			Color:        "auto",
			MinSeverity:  0,
			FailSeverity: 0,
		},
		Cache: CacheConfig{
			Enabled:       true,
			MemoryEntries: 256,
			MemoryTTL:     10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML or TOML file, chosen by extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for evfmap.yaml,
// evfmap.toml, then .evfmap/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	candidates := []string{
		filepath.Join(dir, "evfmap.yaml"),
		filepath.Join(dir, "evfmap.toml"),
		filepath.Join(dir, ".evfmap", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML or TOML file, chosen by extension.
func (c *Config) Save(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// StateDir returns the directory holding evfmap state for dir.
func StateDir(dir string) string {
	return filepath.Join(dir, ".evfmap")
}

// CacheDBPath returns the path to the result cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(StateDir(dir), "cache.db")
}

// EnsureStateDir ensures the .evfmap directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(StateDir(dir), 0755)
}
