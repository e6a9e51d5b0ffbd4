// Package hooks runs user commands around snapshot exports.
// Hooks are configured in .tg/hooks.yaml next to the bundle and run before
// any file is rendered (pre-export) and after all files are written
// (post-export).
package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PreExport runs before rendering. Failure cancels the export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after every file is written. Failure is reported but
	// the files stay.
	PostExport HookPhase = "post-export"
)

// On-error policies.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout applies to hooks without a timeout.
const DefaultTimeout = 30 * time.Second

// ConfigPath is the hooks file relative to the project directory.
var ConfigPath = filepath.Join(".tg", "hooks.yaml")

// Timeout is a hook time limit. In YAML it is a Go duration ("5s", "1m30s")
// or a bare number of seconds.
type Timeout time.Duration

func (t *Timeout) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timeout must be a scalar", node.Line)
	}
	if d, err := time.ParseDuration(node.Value); err == nil {
		*t = Timeout(d)
		return nil
	}
	secs, err := strconv.ParseFloat(node.Value, 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("line %d: invalid timeout %q", node.Line, node.Value)
	}
	*t = Timeout(secs * float64(time.Second))
	return nil
}

// Hook is one command bound to a phase.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"` // run with sh -c
	Timeout Timeout           `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"` // values are expanded against the process env
	OnError string            `yaml:"on_error,omitempty"`
}

// Limit is the hook's timeout as a duration.
func (h Hook) Limit() time.Duration { return time.Duration(h.Timeout) }

// Config is the parsed hooks file.
type Config struct {
	PreExport  []Hook `yaml:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty"`
}

// file is the on-disk layout: everything sits under a top-level "hooks" key.
type file struct {
	Hooks Config `yaml:"hooks"`
}

// For returns the hooks of phase, or nil for an unknown phase.
func (c *Config) For(phase HookPhase) []Hook {
	if c == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return c.PreExport
	case PostExport:
		return c.PostExport
	}
	return nil
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.PreExport)+len(c.PostExport) == 0
}

// Load reads the hooks file of dir (the working directory when empty). A
// missing file yields an empty config. Problems that do not stop loading,
// such as blank commands, are returned as warnings.
func Load(dir string) (*Config, []string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		dir = wd
	}
	path := filepath.Join(dir, ConfigPath)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading hooks config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a hooks file and fills defaults. name labels errors.
func Parse(name string, data []byte) (*Config, []string, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	var warnings []string
	cfg := &Config{}
	cfg.PreExport = withDefaults(f.Hooks.PreExport, PreExport, OnErrorFail, &warnings)
	cfg.PostExport = withDefaults(f.Hooks.PostExport, PostExport, OnErrorContinue, &warnings)
	return cfg, warnings, nil
}

// withDefaults drops hooks without a command and fills name, timeout and
// on_error. An unknown on_error falls back to fail.
func withDefaults(in []Hook, phase HookPhase, onError string, warnings *[]string) []Hook {
	out := make([]Hook, 0, len(in))
	for i, h := range in {
		label := fmt.Sprintf("%s-%d", phase, i+1)
		if strings.TrimSpace(h.Command) == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s: no command, skipped", label))
			continue
		}
		if h.Name == "" {
			h.Name = label
		}
		if h.Timeout <= 0 {
			h.Timeout = Timeout(DefaultTimeout)
		}
		switch h.OnError {
		case "":
			h.OnError = onError
		case OnErrorFail, OnErrorContinue:
		default:
			*warnings = append(*warnings, fmt.Sprintf("%s: on_error %q is not %q or %q, using %q",
				h.Name, h.OnError, OnErrorFail, OnErrorContinue, OnErrorFail))
			h.OnError = OnErrorFail
		}
		out = append(out, h)
	}
	return out
}
