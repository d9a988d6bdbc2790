package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Bus.QueryTimeout() != 15*time.Second || cfg.Bus.ActivateTimeout() != 30*time.Second {
		t.Fatalf("bus=%+v", cfg.Bus)
	}
	if cfg.Panel.ScanInterval() != 5*time.Second {
		t.Fatalf("scan_interval_sec=%d", cfg.Panel.ScanIntervalSec)
	}
	if !cfg.Panel.Label() || !cfg.Panel.Notifications() {
		t.Fatalf("panel toggles not defaulted on: %+v", cfg.Panel)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("log=%+v", cfg.Log)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_KeepsExplicitFalse(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "panel:\n  show_label: false\n  transparency: 40\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Panel.Label() || !cfg.Panel.Notifications() {
		t.Fatalf("panel=%+v", cfg.Panel)
	}
	if cfg.Panel.Transparency != 40 || cfg.Log.Level != "debug" || cfg.Bus.QueryTimeoutSec != DefaultQueryTimeoutSec {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Panel.ScanIntervalSec != DefaultScanIntervalSec {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bus: [1, 2"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"query timeout", func(c *Config) { c.Bus.QueryTimeoutSec = -1 }},
		{"activate timeout", func(c *Config) { c.Bus.ActivateTimeoutSec = -5 }},
		{"scan interval", func(c *Config) { c.Panel.ScanIntervalSec = -1 }},
		{"transparency", func(c *Config) { c.Panel.Transparency = 101 }},
		{"level", func(c *Config) { c.Log.Level = "verbose" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSave_Writes0600(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Save(path, Config{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil || cfg.Bus.ActivateTimeoutSec != DefaultActivateTimeoutSec {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}
}
