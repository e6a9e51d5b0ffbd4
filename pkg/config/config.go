// Package config handles loading and saving tg configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/threatgraph/config.yaml
//   - Data:    ~/.local/share/threatgraph/ (snapshots)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const appDir = "threatgraph"

// Margins surround the scene inside the host surface.
type Margins struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// SceneConfig is the fixed logical size of the rendered scene.
type SceneConfig struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
	Margin Margins `yaml:"margin"`
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	LinkDistance   float64       `yaml:"link_distance" validate:"gt=0"`
	AttackCharge   float64       `yaml:"attack_charge" validate:"lt=0"`
	SubGraphCharge float64       `yaml:"sub_graph_charge" validate:"lt=0"`
	AlphaMin       float64       `yaml:"alpha_min" validate:"gt=0,lt=1"`
	VelocityDecay  float64       `yaml:"velocity_decay" validate:"gte=0,lte=1"`
	TickInterval   time.Duration `yaml:"tick_interval" validate:"gt=0"`
}

// ZoomConfig bounds the viewport scale.
type ZoomConfig struct {
	MinScale          float64 `yaml:"min_scale" validate:"gt=0"`
	MaxScale          float64 `yaml:"max_scale" validate:"gtfield=MinScale"`
	InFactor          float64 `yaml:"in_factor" validate:"gt=1"`
	OutFactor         float64 `yaml:"out_factor" validate:"gt=0,lt=1"`
	BoundaryThreshold float64 `yaml:"boundary_threshold" validate:"gt=0"`
}

// UIConfig holds interactive preferences.
type UIConfig struct {
	DefaultMode  string  `yaml:"default_mode,omitempty" validate:"omitempty,oneof=activity_thread attack_graph sub_attack_graph"`
	TooltipWidth float64 `yaml:"tooltip_width" validate:"gt=0"`
	Watch        bool    `yaml:"watch,omitempty"`
	FullLabels   bool    `yaml:"full_labels,omitempty"`
}

// ExportConfig controls snapshot output.
type ExportConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Config is the top-level configuration for tg.
type Config struct {
	Scene  SceneConfig  `yaml:"scene"`
	Layout LayoutConfig `yaml:"layout"`
	Zoom   ZoomConfig   `yaml:"zoom"`
	UI     UIConfig     `yaml:"ui,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Scene: SceneConfig{
			Width:  1300,
			Height: 650,
			Margin: Margins{Top: 45, Right: 30, Bottom: 30, Left: 60},
		},
		Layout: LayoutConfig{
			LinkDistance:   60,
			AttackCharge:   -30,
			SubGraphCharge: -100,
			AlphaMin:       0.001,
			VelocityDecay:  0.4,
			TickInterval:   16 * time.Millisecond,
		},
		Zoom: ZoomConfig{
			MinScale:          0.05,
			MaxScale:          10000,
			InFactor:          1.2,
			OutFactor:         0.8,
			BoundaryThreshold: 388,
		},
		UI: UIConfig{
			DefaultMode:  "attack_graph",
			TooltipWidth: 300,
		},
	}
}

// ConfigDir returns the XDG config directory for tg.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDir)
}

// DataDir returns the XDG data directory for tg.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appDir)
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

// LoadFrom reads config from a specific path. Keys absent from the file keep
// their defaults. Returns DefaultConfig if the file doesn't exist.
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
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}

	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	return cfg, nil
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

var validate = validator.New()

// Validate checks value ranges.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s %s", e.Namespace(), e.Tag(), e.Param()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SnapshotDir is where exports go when no explicit path is given.
func (c Config) SnapshotDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	if dir := DataDir(); dir != "" {
		return filepath.Join(dir, "snapshots")
	}
	return "."
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
