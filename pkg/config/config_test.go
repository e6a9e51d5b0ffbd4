package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scene.Width != 1300 || cfg.Scene.Height != 650 {
		t.Errorf("expected 1300x650 scene, got %vx%v", cfg.Scene.Width, cfg.Scene.Height)
	}
	if cfg.Scene.Margin != (Margins{Top: 45, Right: 30, Bottom: 30, Left: 60}) {
		t.Errorf("unexpected margins %+v", cfg.Scene.Margin)
	}
	if cfg.Layout.LinkDistance != 60 {
		t.Errorf("expected link distance 60, got %v", cfg.Layout.LinkDistance)
	}
	if cfg.Zoom.BoundaryThreshold != 388 {
		t.Errorf("expected boundary threshold 388, got %v", cfg.Zoom.BoundaryThreshold)
	}
	if cfg.UI.TooltipWidth != 300 {
		t.Errorf("expected tooltip width 300, got %v", cfg.UI.TooltipWidth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.DefaultMode != "attack_graph" {
		t.Errorf("expected default config, got mode %q", cfg.UI.DefaultMode)
	}
}

func TestLoadFrom_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
layout:
  link_distance: 80
  tick_interval: 33ms
ui:
  default_mode: activity_thread
  watch: true
export:
  dir: ~/snaps
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Layout.LinkDistance != 80 {
		t.Errorf("expected link distance 80, got %v", cfg.Layout.LinkDistance)
	}
	if cfg.Layout.TickInterval != 33*time.Millisecond {
		t.Errorf("expected 33ms tick, got %v", cfg.Layout.TickInterval)
	}
	if cfg.Layout.AttackCharge != -30 {
		t.Errorf("unset key lost its default: %v", cfg.Layout.AttackCharge)
	}
	if cfg.UI.DefaultMode != "activity_thread" || !cfg.UI.Watch {
		t.Errorf("ui section not applied: %+v", cfg.UI)
	}
	if strings.HasPrefix(cfg.Export.Dir, "~") {
		t.Errorf("export dir not expanded: %q", cfg.Export.Dir)
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"negative_width", "scene:\n  width: -1\n", "Width"},
		{"repulsive_charge", "layout:\n  attack_charge: 5\n", "AttackCharge"},
		{"bad_mode", "ui:\n  default_mode: sideways\n", "DefaultMode"},
		{"inverted_extent", "zoom:\n  min_scale: 5\n  max_scale: 1\n", "MaxScale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scene: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Zoom.MaxScale = 500
	cfg.UI.FullLabels = true
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Zoom.MaxScale != 500 || !loaded.UI.FullLabels {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if loaded.Layout.TickInterval != cfg.Layout.TickInterval {
		t.Errorf("tick interval = %v, want %v", loaded.Layout.TickInterval, cfg.Layout.TickInterval)
	}
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigPath(); got != "/tmp/xdg/threatgraph/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
}

func TestSnapshotDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	cfg := DefaultConfig()
	if got := cfg.SnapshotDir(); got != "/tmp/data/threatgraph/snapshots" {
		t.Errorf("SnapshotDir = %q", got)
	}
	cfg.Export.Dir = "/out"
	if got := cfg.SnapshotDir(); got != "/out" {
		t.Errorf("SnapshotDir override = %q", got)
	}
}
