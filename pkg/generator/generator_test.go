package generator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgen/pkg/cache"
	"github.com/matzehuels/depsgen/pkg/config"
	derrors "github.com/matzehuels/depsgen/pkg/errors"
	"github.com/matzehuels/depsgen/pkg/observability"
)

const testLock = `version = 3

[[package]]
name = "itoa"
version = "1.0.11"

[[package]]
name = "myapp"
version = "0.1.0"
dependencies = ["serde", "serde_json"]

[[package]]
name = "serde"
version = "1.0.203"

[[package]]
name = "serde_json"
version = "1.0.117"
dependencies = ["itoa", "serde"]
`

const testTemplate = `// {{root.name}}
//{}{{#each dependencies}}
{{name}} {{version}}
//{}{{/each}}
`

const wantOutput = `// myapp

serde 1.0.203

serde_json 1.0.117

itoa 1.0.11

`

// setup writes Cargo.lock and src/deps.template.rs into a temp dir and
// returns a config pointing at them.
func setup(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.LockPath = filepath.Join(dir, "Cargo.lock")
	cfg.TemplatePath = filepath.Join(dir, "src", "deps.template.rs")
	if err := os.WriteFile(cfg.LockPath, []byte(testLock), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.TemplatePath, []byte(testTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, log.New(io.Discard))
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(nil, nil)
	if r.Cache == nil || r.Logger == nil {
		t.Fatal("NewRunner should fill in nil cache and logger")
	}
	if _, ok := r.Cache.(cache.NullCache); !ok {
		t.Errorf("Cache = %T, want NullCache", r.Cache)
	}
}

func TestOutput_InlineWithoutTarget(t *testing.T) {
	cfg := setup(t)
	cfg.Template = "{{#each dependencies}}{{name}} {{/each}}"

	res, err := quietRunner(nil).Output(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if res.Target != "" {
		t.Errorf("Target = %q, want empty", res.Target)
	}
	if res.Output != "serde serde_json itoa " {
		t.Errorf("Output = %q", res.Output)
	}

	if _, err := quietRunner(nil).Generate(context.Background(), cfg); !derrors.Is(err, derrors.ErrCodeInvalidConfig) {
		t.Errorf("Generate error = %v, want %s", err, derrors.ErrCodeInvalidConfig)
	}
}

func TestOutput(t *testing.T) {
	cfg := setup(t)

	res, err := quietRunner(nil).Output(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if res.Output != wantOutput {
		t.Errorf("Output =\n%q\nwant\n%q", res.Output, wantOutput)
	}
	if res.Root.Name != "myapp" {
		t.Errorf("Root = %q", res.Root.Name)
	}

	var names []string
	for _, p := range res.Packages {
		names = append(names, p.Name)
	}
	if want := []string{"serde", "serde_json", "itoa"}; !slices.Equal(names, want) {
		t.Errorf("Packages = %v, want %v", names, want)
	}
	if res.Stats.NodeCount != 4 || res.Stats.EdgeCount != 4 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if filepath.Base(res.Target) != "deps.rs" {
		t.Errorf("Target = %q", res.Target)
	}
}

func TestOutput_Options(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "max depth one",
			mutate: func(c *config.Config) { c.Template = "{{#each dependencies}}{{name}};{{/each}}"; c.MaxDepth = 1 },
			want:   "serde;serde_json;",
		},
		{
			name:   "include root",
			mutate: func(c *config.Config) { c.Template = "{{#each dependencies}}{{name}};{{/each}}"; c.IncludeRoot = true },
			want:   "myapp;serde;serde_json;itoa;",
		},
		{
			name:   "custom post replace",
			mutate: func(c *config.Config) { c.Template = "{{root.name}}-X"; c.PostSearch = "-X"; c.PostReplace = "!" },
			want:   "myapp!",
		},
		{
			name:   "post processing disabled",
			mutate: func(c *config.Config) { c.Template = "//{}{{root.version}}"; c.PostSearch = "" },
			want:   "//{}0.1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t)
			cfg.TargetPath = filepath.Join(filepath.Dir(cfg.LockPath), "out.txt")
			tt.mutate(&cfg)

			res, err := quietRunner(nil).Output(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Output: %v", err)
			}
			if res.Output != tt.want {
				t.Errorf("Output = %q, want %q", res.Output, tt.want)
			}
		})
	}
}

func TestOutput_Errors(t *testing.T) {
	tests := []struct {
		name string
		lock string
		tmpl string
		want derrors.Code
	}{
		{"malformed lock", "[[package]\nname=", "", derrors.ErrCodeInvalidLockfile},
		{"empty lock", "version = 3\n", "", derrors.ErrCodeNoRoot},
		{"missing dependency", "[[package]]\nname = \"a\"\ndependencies = [\"ghost\"]\n", "", derrors.ErrCodeDependencyNotFound},
		{"bad template", testLock, "{{#each dependencies}}", derrors.ErrCodeTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t)
			if err := os.WriteFile(cfg.LockPath, []byte(tt.lock), 0644); err != nil {
				t.Fatal(err)
			}
			if tt.tmpl != "" {
				if err := os.WriteFile(cfg.TemplatePath, []byte(tt.tmpl), 0644); err != nil {
					t.Fatal(err)
				}
			}

			_, err := quietRunner(nil).Output(context.Background(), cfg)
			if !derrors.Is(err, tt.want) {
				t.Errorf("Output() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestOutput_MissingLock(t *testing.T) {
	cfg := setup(t)
	cfg.LockPath = filepath.Join(t.TempDir(), "Cargo.lock")

	_, err := quietRunner(nil).Output(context.Background(), cfg)
	if !derrors.Is(err, derrors.ErrCodeInvalidLockfile) {
		t.Errorf("Output() error = %v, want %s", err, derrors.ErrCodeInvalidLockfile)
	}
}

func TestOutput_Canceled(t *testing.T) {
	cfg := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := quietRunner(nil).Output(ctx, cfg); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestOutput_Cache(t *testing.T) {
	cfg := setup(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(fc)
	ctx := context.Background()

	first, err := r.Output(ctx, cfg)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if first.CacheHit {
		t.Error("first run should miss the cache")
	}

	second, err := r.Output(ctx, cfg)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !second.CacheHit {
		t.Error("second run should hit the cache")
	}
	if second.Output != first.Output || len(second.Packages) != len(first.Packages) {
		t.Error("cached result differs from computed result")
	}
	if second.Target != first.Target {
		t.Errorf("Target = %q, want %q", second.Target, first.Target)
	}

	cfg.MaxDepth = 1
	third, err := r.Output(ctx, cfg)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if third.CacheHit {
		t.Error("changed options should miss the cache")
	}
}

func TestGenerate(t *testing.T) {
	cfg := setup(t)
	r := quietRunner(nil)
	ctx := context.Background()

	res, err := r.Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Skipped {
		t.Fatal("first Generate should not be skipped")
	}
	data, err := os.ReadFile(res.Target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != wantOutput {
		t.Errorf("target content =\n%s", data)
	}

	// Target is now newer than the lock file.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(cfg.LockPath, old, old); err != nil {
		t.Fatal(err)
	}
	res, err = r.Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Skipped {
		t.Error("Generate should skip an up to date target")
	}

	cfg.Force = true
	res, err = r.Generate(ctx, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Skipped {
		t.Error("Force should regenerate")
	}
}

func TestGenerate_CreatesParentDir(t *testing.T) {
	cfg := setup(t)
	cfg.TargetPath = filepath.Join(t.TempDir(), "nested", "dir", "deps.rs")

	if _, err := quietRunner(nil).Generate(context.Background(), cfg); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := os.Stat(cfg.TargetPath); err != nil {
		t.Errorf("target not written: %v", err)
	}
}

func TestShouldGenerate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		lockTime   time.Time
		targetTime time.Time // zero: target absent
		force      bool
		want       bool
	}{
		{"target missing", now, time.Time{}, false, true},
		{"lock newer", now, now.Add(-time.Hour), false, true},
		{"target newer", now.Add(-time.Hour), now, false, false},
		{"force", now.Add(-time.Hour), now, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t)
			cfg.Force = tt.force
			if err := os.Chtimes(cfg.LockPath, tt.lockTime, tt.lockTime); err != nil {
				t.Fatal(err)
			}
			target, _ := cfg.Target()
			if !tt.targetTime.IsZero() {
				if err := os.WriteFile(target, nil, 0644); err != nil {
					t.Fatal(err)
				}
				if err := os.Chtimes(target, tt.targetTime, tt.targetTime); err != nil {
					t.Fatal(err)
				}
			}

			got, err := quietRunner(nil).ShouldGenerate(cfg)
			if err != nil {
				t.Fatalf("ShouldGenerate: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldGenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldGenerate_MissingLock(t *testing.T) {
	cfg := setup(t)
	target, _ := cfg.Target()
	if err := os.WriteFile(target, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(cfg.LockPath); err != nil {
		t.Fatal(err)
	}

	if _, err := quietRunner(nil).ShouldGenerate(cfg); err == nil {
		t.Error("expected error for missing lock file")
	}
}

type recordingHooks struct {
	observability.NoopGenerateHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnLoad(context.Context, string, int, time.Duration, error) { h.record("load") }
func (h *recordingHooks) OnBuild(context.Context, int, int, time.Duration, error)   { h.record("build") }
func (h *recordingHooks) OnFlatten(context.Context, int, time.Duration, error)      { h.record("flatten") }
func (h *recordingHooks) OnRender(context.Context, int, time.Duration, error)       { h.record("render") }
func (h *recordingHooks) OnWrite(context.Context, string, int, error)               { h.record("write") }

func TestGenerate_Hooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetGenerateHooks(hooks)
	defer observability.Reset()

	cfg := setup(t)
	if _, err := quietRunner(nil).Generate(context.Background(), cfg); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{"load", "build", "flatten", "render", "write"}
	if !slices.Equal(hooks.events, want) {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
