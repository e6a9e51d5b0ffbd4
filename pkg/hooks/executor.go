package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
)

// maxSummaryStderr caps the stderr excerpt in Summary.
const maxSummaryStderr = 200

// ExportContext describes the export a hook runs around. It reaches the
// command as TG_* environment variables.
type ExportContext struct {
	OutputDir string    // TG_EXPORT_DIR
	Paths     []string  // TG_EXPORT_PATHS, list-separator joined; empty before export
	Modes     []string  // TG_EXPORT_MODES, comma separated mode tokens
	Formats   []string  // TG_EXPORT_FORMATS, comma separated
	Bundle    string    // TG_BUNDLE_PATH
	NodeCount int       // TG_NODE_COUNT: objects bound in the attack graph
	Timestamp time.Time // TG_TIMESTAMP (RFC3339)
}

// ToEnv converts export context to environment variables
func (c ExportContext) ToEnv() []string {
	return []string{
		"TG_EXPORT_DIR=" + c.OutputDir,
		"TG_EXPORT_PATHS=" + strings.Join(c.Paths, string(os.PathListSeparator)),
		"TG_EXPORT_MODES=" + strings.Join(c.Modes, ","),
		"TG_EXPORT_FORMATS=" + strings.Join(c.Formats, ","),
		"TG_BUNDLE_PATH=" + c.Bundle,
		"TG_NODE_COUNT=" + strconv.Itoa(c.NodeCount),
		"TG_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// HookResult records one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Executor runs the hooks of one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []HookResult
}

// NewExecutor creates an executor for config. A nil config runs nothing.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// SetContext replaces the export context, e.g. to add the written paths
// before the post-export phase.
func (e *Executor) SetContext(ctx ExportContext) {
	e.context = ctx
}

// RunPreExport runs pre-export hooks in order, stopping at the first
// failure whose policy is fail.
func (e *Executor) RunPreExport() error {
	for _, hook := range e.config.PreExport {
		res := e.run(hook, PreExport)
		if !res.Success && hook.OnError != OnErrorContinue {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook. Failures with policy fail are
// collected and returned together after all hooks ran.
func (e *Executor) RunPostExport() error {
	var errs []error
	for _, hook := range e.config.PostExport {
		res := e.run(hook, PostExport)
		if !res.Success && hook.OnError == OnErrorFail {
			errs = append(errs, fmt.Errorf("post-export hook %q failed: %w", hook.Name, res.Error))
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) run(hook Hook, phase HookPhase) HookResult {
	timeout := hook.Limit()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := HookResult{
		Hook:     hook,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
		Error:    err,
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.Success = false
		res.Error = fmt.Errorf("timed out after %s", timeout)
	}
	debug.Log("hooks: %s %q success=%v in %s", phase, hook.Name, res.Success, res.Duration)
	e.results = append(e.results, res)
	return res
}

// Results returns every recorded run in execution order.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summary describes the runs for the terminal, or "" when nothing ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "  %s %s: %v\n", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, "    stderr: %s\n", truncate(r.Stderr, maxSummaryStderr))
		}
	}
	head := fmt.Sprintf("hooks: %d succeeded, %d failed\n", ok, failed)
	return head + b.String()
}

// RunHooks loads the hooks of projectDir and returns an executor, or nil
// when hooks are disabled or none are configured.
func RunHooks(projectDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	cfg, warnings, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		debug.Log("hooks: %s", w)
	}
	if cfg.Empty() {
		return nil, nil
	}
	return NewExecutor(cfg, ctx), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
