package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/vanderheijden86/threatgraph/internal/datasource"
	_ "github.com/vanderheijden86/threatgraph/internal/ttyguard"
	"github.com/vanderheijden86/threatgraph/pkg/config"
	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/export"
	"github.com/vanderheijden86/threatgraph/pkg/hooks"
	"github.com/vanderheijden86/threatgraph/pkg/metrics"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/ui"
	"github.com/vanderheijden86/threatgraph/pkg/version"
	"github.com/vanderheijden86/threatgraph/pkg/view"
	"github.com/vanderheijden86/threatgraph/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", "", "Config file (default: ~/.config/threatgraph/config.yaml)")
	modeFlag := flag.String("mode", "", "Initial view: attack_graph, activity_thread")
	exportDir := flag.String("export", "", "Write snapshots to this directory and exit")
	formatFlag := flag.String("format", "svg", "Snapshot formats for --export: svg,png,sqlite")
	allModes := flag.Bool("all-modes", false, "With --export, snapshot every top-level view")
	settle := flag.Int("settle", 0, "With --export, cap layout steps before capture (0 = run to rest)")
	watchFlag := flag.Bool("watch", false, "Reload when the bundle file changes")
	tzFlag := flag.String("tz", "", "Time zone for the activity axis (IANA name, default local)")
	metricsFlag := flag.Bool("metrics", false, "Print timing metrics on exit")
	debugFlag := flag.Bool("debug", false, "Log to stderr (same as TG_DEBUG=1)")
	noHooks := flag.Bool("no-hooks", false, "With --export, skip .tg/hooks.yaml")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: tg [options] [bundle.json | directory]")
		fmt.Println("\nExplore a STIX threat bundle as an attack graph, activity thread or sub-graph.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("tg %s\n", version.Version)
		os.Exit(0)
	}

	if *debugFlag {
		debug.SetEnabled(true)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	tz := time.Local
	if *tzFlag != "" {
		tz, err = time.LoadLocation(*tzFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: unknown time zone %q: %v\n", *tzFlag, err)
			os.Exit(2)
		}
	}

	raw, src, err := datasource.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bundle: %v\n", err)
		os.Exit(1)
	}
	debug.Log("tg: using %s", src)

	if *metricsFlag {
		defer printMetrics(os.Stderr)
	}

	if *exportDir != "" {
		formats, err := parseFormats(*formatFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		modes, err := parseModes(*modeFlag, *allModes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		paths, err := exportSnapshots(ctx, exportRequest{
			Config:  cfg,
			Raw:     raw,
			Modes:   modes,
			Formats: formats,
			Dir:     *exportDir,
			Steps:   *settle,
			Zone:    tz,
			Bundle:  src.Path,
			HookDir: hookDir(src.Path, *noHooks),
		})
		for _, p := range paths {
			fmt.Println(p)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: stdout is not a terminal; use --export to write snapshots")
		os.Exit(2)
	}

	renderer, err := detail.NewRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(40))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctrl := view.New(view.Options{
		Config:   cfg,
		Location: view.NewMemoryLocation(*modeFlag),
		Detail:   renderer,
		TimeZone: tz,
	})
	// A bad bundle is shown in the status line rather than aborting.
	_ = ctrl.Load(raw)

	var w *watcher.Watcher
	if *watchFlag || cfg.UI.Watch {
		w, err = watcher.NewWatcher(src.Path, watcher.WithOnError(func(err error) {
			debug.Log("tg: watch %s: %v", src.Path, err)
		}))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: live reload disabled: %v\n", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	m := ui.New(ctrl, ui.Options{Source: src, Watcher: w})
	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running threatgraph: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// exportRequest describes a headless snapshot run.
type exportRequest struct {
	Config  config.Config
	Raw     []byte
	Modes   []model.Mode
	Formats []export.Format
	Dir     string
	Steps   int
	Zone    *time.Location
	Bundle  string
	HookDir string // directory holding .tg/hooks.yaml; empty runs no hooks
}

// hookDir is the directory whose .tg/hooks.yaml applies to bundle.
func hookDir(bundle string, disabled bool) string {
	if disabled || bundle == "" {
		return ""
	}
	return filepath.Dir(bundle)
}

// exportSnapshots mounts each mode in turn, runs its layout to rest and
// writes the captured frames in parallel. It returns the written paths.
func exportSnapshots(ctx context.Context, req exportRequest) ([]string, error) {
	ctrl := view.New(view.Options{Config: req.Config, TimeZone: req.Zone})
	if err := ctrl.Load(req.Raw); err != nil {
		return nil, err
	}
	if st := ctrl.Status(); st.Kind == view.StatusWarning {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", st.Text)
	}

	hookCtx := hooks.ExportContext{
		OutputDir: req.Dir,
		Bundle:    req.Bundle,
		Timestamp: time.Now(),
	}
	if g := ctrl.State().Bound; g != nil {
		hookCtx.NodeCount = len(g.Nodes)
	}
	for _, m := range req.Modes {
		hookCtx.Modes = append(hookCtx.Modes, m.Token())
	}
	for _, f := range req.Formats {
		hookCtx.Formats = append(hookCtx.Formats, string(f))
	}
	var exec *hooks.Executor
	if req.HookDir != "" {
		var err error
		if exec, err = hooks.RunHooks(req.HookDir, hookCtx, false); err != nil {
			return nil, err
		}
	}
	if exec != nil {
		defer func() {
			if s := exec.Summary(); s != "" {
				fmt.Fprint(os.Stderr, s)
			}
		}()
		if err := exec.RunPreExport(); err != nil {
			return nil, err
		}
	}

	var jobs []export.Job
	for _, mode := range req.Modes {
		if err := ctrl.Navigate(mode); err != nil {
			return nil, fmt.Errorf("mount %s: %w", mode, err)
		}
		ctrl.Settle(req.Steps)
		jobs = append(jobs, export.JobsFor(req.Dir, export.Capture(ctrl), req.Formats...)...)
	}
	ctrl.Teardown()

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.Path
	}
	if err := export.RenderBatch(ctx, jobs, runtime.NumCPU()); err != nil {
		return nil, err
	}
	if exec != nil {
		hookCtx.Paths = paths
		exec.SetContext(hookCtx)
		if err := exec.RunPostExport(); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

func parseFormats(s string) ([]export.Format, error) {
	var out []export.Format
	seen := make(map[export.Format]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := export.ParseFormat(part, "")
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no snapshot format given")
	}
	return out, nil
}

// parseModes picks the views to export. The sub-graph needs a selected node,
// so it can only be reached interactively.
func parseModes(token string, all bool) ([]model.Mode, error) {
	if all {
		return []model.Mode{model.AttackGraph, model.ActivityThread}, nil
	}
	if token == "" {
		return []model.Mode{model.AttackGraph}, nil
	}
	mode, ok := model.ParseMode(token)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", token)
	}
	if mode == model.SubGraph {
		return nil, errors.New("the sub-graph view needs a selected node and cannot be exported headless")
	}
	return []model.Mode{mode}, nil
}

func printMetrics(w io.Writer) {
	stats := metrics.AllTimingStats()
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(w, "%-16s %8s %10s %10s %10s\n", "metric", "count", "avg ms", "max ms", "total ms")
	for _, s := range stats {
		fmt.Fprintf(w, "%-16s %8d %10.3f %10.3f %10.1f\n", s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TG_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TG_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
