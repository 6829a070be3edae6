// Package config handles loading and saving opscost configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/opscost/config.yaml
//
// Command-line flags override every value read here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/opscost/pkg/engine"
)

// DataConfig selects where the dataset is loaded from.
type DataConfig struct {
	Path string `yaml:"path,omitempty"` // Dataset file (.json or .db); skips discovery
	Dir  string `yaml:"dir,omitempty"`  // Directory searched for datasets
}

// DefaultsConfig seeds the initial selection.
type DefaultsConfig struct {
	MetricFamily   string   `yaml:"metric_family,omitempty"`
	MetricFamilies []string `yaml:"metric_families,omitempty"` // Tabs shown even without data
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	ShowDetails *bool `yaml:"show_details,omitempty"`
	BarWidth    int   `yaml:"bar_width,omitempty"` // Terminal cells of a 100% bar
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // svg or png
}

// Config is the top-level configuration for opscost.
type Config struct {
	Data     DataConfig     `yaml:"data,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	UI       UIConfig       `yaml:"ui,omitempty"`
	Export   ExportConfig   `yaml:"export,omitempty"`
}

// Bar width bounds accepted from the config file.
const (
	MinBarWidth     = 10
	MaxBarWidth     = 120
	DefaultBarWidth = 40
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			BarWidth: DefaultBarWidth,
		},
		Export: ExportConfig{
			Dir:    "opscost-export",
			Format: "svg",
		},
	}
}

// ConfigDir returns the XDG config directory for opscost.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "opscost")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "opscost")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// normalize expands paths, lower-cases metric families and checks ranges.
func (c *Config) normalize() error {
	c.Data.Path = expandHome(c.Data.Path)
	c.Data.Dir = expandHome(c.Data.Dir)
	c.Export.Dir = expandHome(c.Export.Dir)

	c.Defaults.MetricFamily = strings.ToLower(strings.TrimSpace(c.Defaults.MetricFamily))
	for i, f := range c.Defaults.MetricFamilies {
		c.Defaults.MetricFamilies[i] = strings.ToLower(strings.TrimSpace(f))
	}

	if c.UI.BarWidth == 0 {
		c.UI.BarWidth = DefaultBarWidth
	}
	if c.UI.BarWidth < MinBarWidth || c.UI.BarWidth > MaxBarWidth {
		return fmt.Errorf("ui.bar_width %d out of range [%d, %d]", c.UI.BarWidth, MinBarWidth, MaxBarWidth)
	}

	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	switch c.Export.Format {
	case "":
		c.Export.Format = "svg"
	case "svg", "png":
	default:
		return fmt.Errorf("export.format %q must be svg or png", c.Export.Format)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DetailsVisible reports whether the detail pane starts open (default true).
func (c Config) DetailsVisible() bool {
	return c.UI.ShowDetails == nil || *c.UI.ShowDetails
}

// EngineOptions maps the defaults section onto session options.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		DefaultMetricFamily: c.Defaults.MetricFamily,
		MetricFamilies:      append([]string(nil), c.Defaults.MetricFamilies...),
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
