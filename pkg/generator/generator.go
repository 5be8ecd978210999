// Package generator runs the complete lock file → source file pipeline.
//
// A run loads Cargo.lock, reconstructs the dependency graph, flattens it
// into a deterministic order and renders the configured template over the
// result:
//
//	load → build → flatten → render → post-process → write
//
// [Runner.Generate] skips the run entirely when the output file is newer
// than the lock file, mirroring how build scripts are expected to behave.
// Rendered output is cached through [cache.Cache], so re-running against an
// unchanged lock file and template is cheap even when the freshness check
// says otherwise.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgen/pkg/cache"
	"github.com/matzehuels/depsgen/pkg/config"
	derrors "github.com/matzehuels/depsgen/pkg/errors"
	"github.com/matzehuels/depsgen/pkg/graph"
	"github.com/matzehuels/depsgen/pkg/lockfile"
	"github.com/matzehuels/depsgen/pkg/observability"
	"github.com/matzehuels/depsgen/pkg/render"
)

// Result is the outcome of a generator run.
type Result struct {
	// Target is the output file path. Output leaves it empty when no
	// output path is configured and none can be derived from the template.
	Target string

	// Output is the rendered and post-processed text.
	Output string

	// Root is the selected root package.
	Root graph.Package

	// Packages is the flattened dependency list handed to the template.
	Packages []graph.Package

	// Unresolved lists dependency references dropped under SkipUnresolved.
	Unresolved []graph.Unresolved

	// Skipped is set when Generate found the target up to date.
	Skipped bool

	// CacheHit is set when Output came from the render cache.
	CacheHit bool

	Stats Stats
}

// Stats contains timing and size information.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	LoadTime    time.Duration
	BuildTime   time.Duration
	FlattenTime time.Duration
	RenderTime  time.Duration
}

// Runner executes generator runs with caching.
//
// The Runner holds no per-run state, so one Runner can serve concurrent
// runs with different configurations.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil logger
// falls back to log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// ShouldGenerate reports whether the target must be (re)generated: always
// with Force, when the target does not exist, or when the lock file was
// modified after the target.
func (r *Runner) ShouldGenerate(cfg config.Config) (bool, error) {
	if cfg.Force {
		return true, nil
	}
	target, err := cfg.Target()
	if err != nil {
		return false, err
	}

	lockInfo, err := os.Stat(cfg.LockPath)
	if err != nil {
		return false, derrors.Wrap(derrors.ErrCodeInvalidLockfile, err, "stat %s", cfg.LockPath)
	}
	targetInfo, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, derrors.Wrap(derrors.ErrCodeInvalidPath, err, "stat %s", target)
	}
	return lockInfo.ModTime().After(targetInfo.ModTime()), nil
}

// Generate regenerates the target file when ShouldGenerate says so.
func (r *Runner) Generate(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}

	ok, err := r.ShouldGenerate(cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.Logger.Debug("output is up to date", "target", target, "lock", cfg.LockPath)
		return &Result{Target: target, Skipped: true}, nil
	}

	res, err := r.Output(ctx, cfg)
	if err != nil {
		return nil, err
	}

	err = writeFile(target, []byte(res.Output))
	observability.Generate().OnWrite(ctx, target, len(res.Output), err)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidPath, err, "write %s", target)
	}
	r.Logger.Info("generated", "target", target, "dependencies", len(res.Packages), "cached", res.CacheHit)
	return res, nil
}

// Output renders the configured template over the lock file without
// writing anything. An inline template needs no output path here; the
// Result's Target is then empty.
func (r *Runner) Output(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var target string
	if t, err := cfg.Target(); err == nil {
		target = t
	}

	text, err := cfg.TemplateText()
	if err != nil {
		return nil, err
	}

	loadStart := time.Now()
	lockData, err := os.ReadFile(cfg.LockPath)
	if err != nil {
		err = derrors.Wrap(derrors.ErrCodeInvalidLockfile, err, "read %s", cfg.LockPath)
		observability.Generate().OnLoad(ctx, cfg.LockPath, 0, time.Since(loadStart), err)
		return nil, err
	}

	key := cache.RenderKey(lockData, text, cache.RenderKeyOpts{
		Build:       cfg.BuildOptions(),
		Flatten:     cfg.FlattenOptions(),
		PostSearch:  cfg.PostSearch,
		PostReplace: cfg.PostReplace,
	})
	if res, ok := r.cached(ctx, key); ok {
		res.Target = target
		r.Logger.Debug("render cache hit", "lock", cfg.LockPath)
		return res, nil
	}

	lf, err := lockfile.Parse(bytes.NewReader(lockData))
	loadTime := time.Since(loadStart)
	if err != nil {
		observability.Generate().OnLoad(ctx, cfg.LockPath, 0, loadTime, err)
		return nil, err
	}
	pkgs := lf.Packages()
	observability.Generate().OnLoad(ctx, cfg.LockPath, len(pkgs), loadTime, nil)
	r.Logger.Debug("loaded lock file", "path", cfg.LockPath, "version", lf.Version, "packages", len(pkgs), "duration", loadTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildStart := time.Now()
	g, err := graph.Build(pkgs, cfg.BuildOptions())
	buildTime := time.Since(buildStart)
	if err != nil {
		observability.Generate().OnBuild(ctx, 0, 0, buildTime, err)
		return nil, err
	}
	observability.Generate().OnBuild(ctx, g.Len(), g.EdgeCount(), buildTime, nil)
	r.Logger.Debug("built graph", "nodes", g.Len(), "edges", g.EdgeCount(), "root", g.RootPackage().Name)
	for _, u := range g.Unresolved() {
		r.Logger.Debug("skipped unresolved dependency", "from", u.From, "name", u.Name)
	}

	flattenStart := time.Now()
	flat, err := graph.Flatten(g, cfg.FlattenOptions())
	flattenTime := time.Since(flattenStart)
	observability.Generate().OnFlatten(ctx, len(flat), flattenTime, err)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderStart := time.Now()
	out, err := render.Render(text, render.Data{Root: g.RootPackage(), Dependencies: flat})
	if err == nil {
		out = render.PostProcess(out, cfg.PostSearch, cfg.PostReplace)
	}
	renderTime := time.Since(renderStart)
	observability.Generate().OnRender(ctx, len(out), renderTime, err)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Target:     target,
		Output:     out,
		Root:       g.RootPackage(),
		Packages:   flat,
		Unresolved: g.Unresolved(),
		Stats: Stats{
			NodeCount:   g.Len(),
			EdgeCount:   g.EdgeCount(),
			LoadTime:    loadTime,
			BuildTime:   buildTime,
			FlattenTime: flattenTime,
			RenderTime:  renderTime,
		},
	}
	r.store(ctx, key, res)
	return res, nil
}

// cachedRender is the persisted form of a render.
type cachedRender struct {
	Output     string             `json:"output"`
	Root       graph.Package      `json:"root"`
	Packages   []graph.Package    `json:"packages"`
	Unresolved []graph.Unresolved `json:"unresolved,omitempty"`
	NodeCount  int                `json:"node_count"`
	EdgeCount  int                `json:"edge_count"`
}

func (r *Runner) cached(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "render")
		return nil, false
	}
	var c cachedRender
	if err := json.Unmarshal(data, &c); err != nil {
		observability.Cache().OnCacheMiss(ctx, "render")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "render")
	return &Result{
		Output:     c.Output,
		Root:       c.Root,
		Packages:   c.Packages,
		Unresolved: c.Unresolved,
		CacheHit:   true,
		Stats:      Stats{NodeCount: c.NodeCount, EdgeCount: c.EdgeCount},
	}, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(cachedRender{
		Output:     res.Output,
		Root:       res.Root,
		Packages:   res.Packages,
		Unresolved: res.Unresolved,
		NodeCount:  res.Stats.NodeCount,
		EdgeCount:  res.Stats.EdgeCount,
	})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err != nil {
		r.Logger.Debug("render cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "render", len(data))
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
