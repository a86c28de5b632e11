package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"dss/config"
	"dss/state"
	"dss/style"
)

const themeDef = `name: Main Theme
rules:
  - selectors: [body]
    set: { margin: 0, fontFamily: sans-serif }
  - selectors: [.dark]
    set: { background: black }
    when: { var: theme, equals: dark }
`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Build.OutputDir = t.TempDir()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	return ctx, env
}

func writeDef(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write %s: %v", name, err)
	}
	return path
}

func TestProcess_WritesDerivedFile(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeDef(t, "theme.yaml", themeDef)

	if err := process(ctx, []string{src}, "", false, nil, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(env.Cfg.Build.OutputDir, "main-theme.css"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	want := "/* Main Theme: generated by dss dev */\n" +
		"body { margin: 0; font-family: sans-serif; }\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_Stdout(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Build.HeaderTemplate = ""
	src := writeDef(t, "theme.yaml", themeDef)

	var out bytes.Buffer
	if err := process(ctx, []string{src}, StdoutName, true, &out, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got, want := out.String(), "body { margin: 0; font-family: sans-serif; }\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestProcess_Defines(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Build.HeaderTemplate = ""
	src := writeDef(t, "theme.yaml", themeDef)
	if err := env.Define("theme=dark"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := process(ctx, []string{src}, StdoutName, false, &out, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if !strings.Contains(out.String(), ".dark { background: black; }\n") {
		t.Errorf("conditional rule missing:\n%s", out.String())
	}
}

func TestProcess_CombinesSources(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Build.HeaderTemplate = "/* {{ .Name }} from {{ join \",\" .Sources }} */"
	first := writeDef(t, "first.yaml", "rules:\n  - selectors: [a]\n    set: { color: red }\n")
	second := writeDef(t, "second.yaml", "name: other\nrules:\n  - selectors: [b]\n    set: { color: blue }\n")

	var out bytes.Buffer
	if err := process(ctx, []string{first, second}, StdoutName, false, &out, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	want := "/* first from first.yaml,second.yaml */\n" +
		"a { color: red; }\nb { color: blue; }\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := writeDef(t, "theme.yaml", themeDef)
	dst := filepath.Join(t.TempDir(), "nested", "out.css")

	if err := process(ctx, []string{src}, dst, false, nil, env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := process(ctx, []string{src}, dst, false, nil, env, env.Log); err == nil {
		t.Error("process() expected error for existing destination")
	}
	env.Overwrite = true
	if err := process(ctx, []string{src}, dst, false, nil, env, env.Log); err != nil {
		t.Errorf("process() with overwrite error = %v", err)
	}
}

func TestProcess_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)

	tests := []struct {
		name string
		srcs []string
		is   error
	}{
		{"missing file", []string{filepath.Join(t.TempDir(), "none.yaml")}, nil},
		{"unknown format", []string{writeDef(t, "a.json", "{}")}, nil},
		{"invalid color", []string{writeDef(t, "c.yaml", "rules:\n  - selectors: [a]\n    colors:\n      - { property: color, value: \"#xyz\" }\n")}, style.ErrUnsupportedColorFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := process(ctx, tt.srcs, StdoutName, false, new(bytes.Buffer), env, env.Log)
			if err == nil {
				t.Fatal("process() expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("process() error = %v, want %v", err, tt.is)
			}
		})
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	src := writeDef(t, "theme.yaml", themeDef)
	if err := process(cancelled, []string{src}, StdoutName, false, new(bytes.Buffer), env, env.Log); !errors.Is(err, context.Canceled) {
		t.Errorf("process() with cancelled context error = %v", err)
	}
}

func TestProcess_Report(t *testing.T) {
	ctx, env := setupTestEnv(t)
	rptConf := config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}
	rpt, err := rptConf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt
	src := writeDef(t, "theme.yaml", themeDef)

	if err := process(ctx, []string{src}, StdoutName, false, new(bytes.Buffer), env, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fi, err := os.Stat(rptConf.Destination); err != nil || fi.Size() == 0 {
		t.Errorf("report not written: %v", err)
	}
}

func TestDumpTree(t *testing.T) {
	_, env := setupTestEnv(t)
	src := writeDef(t, "theme.yaml", "rules:\n  - selectors: [nav]\n    set: { margin: 0 }\n    hover: { color: red }\n")

	var out bytes.Buffer
	if err := dumpTree(src, &out, env, env.Log); err != nil {
		t.Fatalf("dumpTree() error = %v", err)
	}
	if !strings.Contains(out.String(), "Rule nav\n") || !strings.Contains(out.String(), "Rule nav:hover\n") {
		t.Errorf("tree = %q", out.String())
	}
}

func TestBuildFileName(t *testing.T) {
	env := &state.LocalEnv{Cfg: &config.Config{}}
	env.Cfg.Build.OutputDir = "out"

	tests := []struct {
		name          string
		transliterate bool
		want          string
	}{
		{"Main Theme!", true, "main-theme.css"},
		{"Main Theme", false, "Main Theme.css"},
		{"a/b", false, "ab.css"},
		{".hidden", false, "hidden.css"},
		{"  ", false, "stylesheet.css"},
	}
	for _, tt := range tests {
		env.Cfg.Build.FileNameTransliterate = tt.transliterate
		if got := buildFileName(tt.name, env); got != tt.want {
			t.Errorf("buildFileName(%q, %v) = %q, want %q", tt.name, tt.transliterate, got, tt.want)
		}
	}
	if got, want := outputPath("x", "", env), filepath.Join("out", "x.css"); got != want {
		t.Errorf("outputPath() = %q, want %q", got, want)
	}
	if got := outputPath("x", "custom.css", env); got != "custom.css" {
		t.Errorf("outputPath() = %q, want custom.css", got)
	}
}

func TestExpandHeader(t *testing.T) {
	values := HeaderValues{Name: "site", Sources: []string{"a.yaml"}, Version: "1.0", Hash: "abc"}

	got, err := expandHeader("/* {{ .Name }} {{ .Version }} {{ .Hash }} {{ len .Sources }} */", values)
	if err != nil {
		t.Fatalf("expandHeader() error = %v", err)
	}
	if want := "/* site 1.0 abc 1 */\n"; got != want {
		t.Errorf("expandHeader() = %q, want %q", got, want)
	}
	if got, err := expandHeader("  ", values); err != nil || got != "" {
		t.Errorf("expandHeader(blank) = %q, %v", got, err)
	}
	if _, err := expandHeader("{{ .Name ", values); err == nil {
		t.Error("expandHeader() expected parse error")
	}
	if _, err := expandHeader("{{ .Missing }}", values); err == nil {
		t.Error("expandHeader() expected execution error")
	}
}

func TestNewHeaderValues(t *testing.T) {
	v := newHeaderValues("n", []string{"/x/a.yaml", "b.toml"}, "a { b: c; }\n")
	if diff := cmp.Diff([]string{"a.yaml", "b.toml"}, v.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}
	if len(v.Hash) != 12 {
		t.Errorf("Hash = %q, want 12 hex digits", v.Hash)
	}
	if v.Hash == newHeaderValues("n", nil, "other").Hash {
		t.Error("Hash does not depend on content")
	}
}
