package ctx

import (
	"fmt"
	"os"

	"github.com/cuemby/edo/internal/elog"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration loaded from .edo/config.yaml (or
// defaults when absent), the teacher's own pattern of a single top-level
// config struct decoded with yaml.v3 (pkg/config in the teacher).
type Config struct {
	LogLevel    elog.Level `yaml:"log_level"`
	JSON        bool       `yaml:"json"`
	WorkDir     string     `yaml:"work_dir"`
	StorageDir  string     `yaml:"storage_dir"`
	BatchSize   int        `yaml:"batch_size"`
	Interactive bool       `yaml:"interactive"`
}

// DefaultConfig returns the configuration used when no config file is
// present: a local-only setup rooted under .edo in the current directory.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   elog.InfoLevel,
		WorkDir:    ".edo/work",
		StorageDir: ".edo/storage",
		BatchSize:  8,
	}
}

// LoadConfig reads and decodes a YAML config file, filling unset fields
// with DefaultConfig's values. A missing file is not an error — it returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("ctx: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ctx: parsing config %s: %w", path, err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = ".edo/work"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = ".edo/storage"
	}
	return cfg, nil
}
