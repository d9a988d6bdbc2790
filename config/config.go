package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultQueryTimeoutSec    = 15
	DefaultActivateTimeoutSec = 30
	DefaultScanIntervalSec    = 5
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Config holds the panel settings.
type Config struct {
	Bus   BusConfig   `yaml:"bus"`
	Panel PanelConfig `yaml:"panel"`
	Log   LogConfig   `yaml:"log"`
}

// BusConfig bounds calls to NetworkManager.
type BusConfig struct {
	QueryTimeoutSec    int `yaml:"query_timeout_sec"`
	ActivateTimeoutSec int `yaml:"activate_timeout_sec"`
}

type PanelConfig struct {
	ShowLabel         *bool `yaml:"show_label"`
	ShowNotifications *bool `yaml:"show_notifications"`
	ScanIntervalSec   int   `yaml:"scan_interval_sec"`
	Transparency      int   `yaml:"transparency"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func (b BusConfig) QueryTimeout() time.Duration {
	return time.Duration(b.QueryTimeoutSec) * time.Second
}

func (b BusConfig) ActivateTimeout() time.Duration {
	return time.Duration(b.ActivateTimeoutSec) * time.Second
}

func (p PanelConfig) ScanInterval() time.Duration {
	return time.Duration(p.ScanIntervalSec) * time.Second
}

func (p PanelConfig) Label() bool { return p.ShowLabel == nil || *p.ShowLabel }

func (p PanelConfig) Notifications() bool {
	return p.ShowNotifications == nil || *p.ShowNotifications
}

// DefaultPath is $XDG_CONFIG_HOME/nmpanel/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "nmpanel", "config.yaml")
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Config{}
		ApplyDefaults(&cfg)
		return cfg, nil
	}
	return cfg, err
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values the panel cannot run with.
func Validate(cfg Config) error {
	if cfg.Bus.QueryTimeoutSec <= 0 {
		return fmt.Errorf("bus.query_timeout_sec must be positive")
	}
	if cfg.Bus.ActivateTimeoutSec <= 0 {
		return fmt.Errorf("bus.activate_timeout_sec must be positive")
	}
	if cfg.Panel.ScanIntervalSec < 1 {
		return fmt.Errorf("panel.scan_interval_sec must be at least 1")
	}
	if cfg.Panel.Transparency < 0 || cfg.Panel.Transparency > 100 {
		return fmt.Errorf("panel.transparency must be between 0 and 100")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not text or json", cfg.Log.Format)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Bus.QueryTimeoutSec == 0 {
		cfg.Bus.QueryTimeoutSec = DefaultQueryTimeoutSec
	}
	if cfg.Bus.ActivateTimeoutSec == 0 {
		cfg.Bus.ActivateTimeoutSec = DefaultActivateTimeoutSec
	}
	if cfg.Panel.ShowLabel == nil {
		v := true
		cfg.Panel.ShowLabel = &v
	}
	if cfg.Panel.ShowNotifications == nil {
		v := true
		cfg.Panel.ShowNotifications = &v
	}
	if cfg.Panel.ScanIntervalSec == 0 {
		cfg.Panel.ScanIntervalSec = DefaultScanIntervalSec
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
