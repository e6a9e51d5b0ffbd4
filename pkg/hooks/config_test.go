package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	tg := filepath.Join(dir, ".tg")
	if err := os.MkdirAll(tg, 0o755); err != nil {
		t.Fatalf("mkdir .tg: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tg, "hooks.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}
}

func TestExportContextToEnv(t *testing.T) {
	ctx := ExportContext{
		OutputDir: "/tmp/out",
		Paths:     []string{"/tmp/out/attack_graph.svg", "/tmp/out/attack_graph.png"},
		Modes:     []string{"attack_graph"},
		Formats:   []string{"svg", "png"},
		Bundle:    "/data/bundle.json",
		NodeCount: 42,
		Timestamp: time.Date(2025, 11, 30, 10, 30, 0, 0, time.UTC),
	}

	env := make(map[string]string)
	for _, e := range ctx.ToEnv() {
		k, v, _ := strings.Cut(e, "=")
		env[k] = v
	}

	expected := map[string]string{
		"TG_EXPORT_DIR":     "/tmp/out",
		"TG_EXPORT_PATHS":   "/tmp/out/attack_graph.svg" + string(os.PathListSeparator) + "/tmp/out/attack_graph.png",
		"TG_EXPORT_MODES":   "attack_graph",
		"TG_EXPORT_FORMATS": "svg,png",
		"TG_BUNDLE_PATH":    "/data/bundle.json",
		"TG_NODE_COUNT":     "42",
		"TG_TIMESTAMP":      "2025-11-30T10:30:00Z",
	}
	for k, want := range expected {
		if got := env[k]; got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestLoadNoConfig(t *testing.T) {
	cfg, warnings, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error for missing config, got: %v", err)
	}
	if !cfg.Empty() || len(warnings) != 0 {
		t.Errorf("expected empty config, got %+v warnings %v", cfg, warnings)
	}
}

func TestLoadWithValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	writeHooksFile(t, tmpDir, `
hooks:
  pre-export:
    - name: validate
      command: echo "validating"
      timeout: 5s
  post-export:
    - name: publish
      command: echo "done"
      timeout: 10
      env:
        CUSTOM_VAR: custom_value
`)

	cfg, _, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Empty() {
		t.Error("expected hooks to be loaded")
	}

	pre := cfg.For(PreExport)
	if len(pre) != 1 {
		t.Fatalf("expected 1 pre-export hook, got %d", len(pre))
	}
	if pre[0].Name != "validate" || pre[0].Limit() != 5*time.Second || pre[0].OnError != OnErrorFail {
		t.Errorf("pre-export hook = %+v", pre[0])
	}

	post := cfg.For(PostExport)
	if len(post) != 1 {
		t.Fatalf("expected 1 post-export hook, got %d", len(post))
	}
	if post[0].Limit() != 10*time.Second {
		t.Errorf("bare seconds timeout = %v, want 10s", post[0].Limit())
	}
	if post[0].OnError != OnErrorContinue {
		t.Errorf("expected on_error continue for post-export, got %s", post[0].OnError)
	}
	if post[0].Env["CUSTOM_VAR"] != "custom_value" {
		t.Errorf("expected CUSTOM_VAR env, got %v", post[0].Env)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeHooksFile(t, tmpDir, "hooks:\n  pre-export:\n    - name: [invalid yaml\n")

	if _, _, err := Load(tmpDir); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestParseDefaultsAndWarnings(t *testing.T) {
	cfg, warnings, err := Parse("hooks.yaml", []byte(`
hooks:
  pre-export:
    - name: empty
      command: ""
    - command: echo one
      on_error: sometimes
  post-export:
    - command: "   "
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pre := cfg.For(PreExport)
	if len(pre) != 1 {
		t.Fatalf("expected empty commands skipped, got %d pre hooks", len(pre))
	}
	if pre[0].Name != "pre-export-2" || pre[0].Limit() != DefaultTimeout || pre[0].OnError != OnErrorFail {
		t.Errorf("defaults not applied: %+v", pre[0])
	}
	if len(cfg.For(PostExport)) != 0 {
		t.Error("blank post-export command should be skipped")
	}
	if len(warnings) != 3 {
		t.Errorf("warnings = %d (%v), want 3", len(warnings), warnings)
	}
}

func TestConfigForUnknownPhase(t *testing.T) {
	cfg := &Config{PreExport: []Hook{{Name: "test", Command: "echo ok"}}}
	if hooks := cfg.For(HookPhase("unknown")); hooks != nil {
		t.Fatalf("expected nil for unknown phase, got %#v", hooks)
	}
	var none *Config
	if !none.Empty() || none.For(PreExport) != nil {
		t.Fatal("nil config should be empty")
	}
}

func TestLoadEmptyDirUsesCWD(t *testing.T) {
	tmp := t.TempDir()
	writeHooksFile(t, tmp, "hooks:\n  post-export:\n    - command: echo ok\n")
	t.Chdir(tmp)

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Empty() {
		t.Fatalf("expected hooks loaded via cwd")
	}
}

func TestHookUnmarshalYAMLInvalidTimeout(t *testing.T) {
	var h Hook
	if err := yaml.Unmarshal([]byte("name: bad\ntimeout: nope\ncommand: echo hi\n"), &h); err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if err := yaml.Unmarshal([]byte("name: bad\ntimeout: -3\ncommand: echo hi\n"), &h); err == nil {
		t.Fatal("expected error for negative seconds")
	}
}
