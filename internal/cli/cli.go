// Package cli implements the depsgen command-line interface.
package cli

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgen/pkg/buildinfo"
	"github.com/matzehuels/depsgen/pkg/cache"
	"github.com/matzehuels/depsgen/pkg/config"
	"github.com/matzehuels/depsgen/pkg/generator"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "depsgen"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "depsgen renders source files from Cargo.lock",
		Long: `depsgen reads the resolved dependency set from Cargo.lock, orders it
deterministically starting at the workspace root, and renders a Handlebars
template over the result. Typical uses are license tables, "about" screens
and build metadata compiled into the binary.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a generator runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*generator.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return generator.NewRunner(cache, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/depsgen/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Configuration
// =============================================================================

// configFlags binds the flags shared by every command that reads a lock
// file. Values land in cfg; resolveConfig later copies only the flags the
// user actually set.
func configFlags(cmd *cobra.Command, cfg *config.Config, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", "", "config file (default: ./"+config.DefaultFile+" when present)")
	cmd.Flags().StringVarP(&cfg.LockPath, "lock", "l", cfg.LockPath, "lock file to read")
	cmd.Flags().BoolVar(&cfg.IncludeRoot, "include-root", cfg.IncludeRoot, "include the root package in the output")
	cmd.Flags().IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum dependency depth (0: unlimited)")
	cmd.Flags().BoolVar(&cfg.Strict, "strict", cfg.Strict, "fail when more than one package is unreferenced")
	cmd.Flags().BoolVar(&cfg.SkipUnresolved, "skip-unresolved", cfg.SkipUnresolved, "ignore dependencies missing from the lock file")
}

// overrides lists the flags that set config fields, applied in order.
// "template" clears inline text and must run before "template-text" so the
// inline template wins when both are given.
var overrides = []struct {
	flag  string
	apply func(dst *config.Config, src config.Config)
}{
	{"lock", func(d *config.Config, s config.Config) { d.LockPath = s.LockPath }},
	{"include-root", func(d *config.Config, s config.Config) { d.IncludeRoot = s.IncludeRoot }},
	{"max-depth", func(d *config.Config, s config.Config) { d.MaxDepth = s.MaxDepth }},
	{"strict", func(d *config.Config, s config.Config) { d.Strict = s.Strict }},
	{"skip-unresolved", func(d *config.Config, s config.Config) { d.SkipUnresolved = s.SkipUnresolved }},
	{"template", func(d *config.Config, s config.Config) { d.TemplatePath = s.TemplatePath; d.Template = "" }},
	{"template-text", func(d *config.Config, s config.Config) { d.Template = s.Template }},
	{"output", func(d *config.Config, s config.Config) { d.TargetPath = s.TargetPath }},
	{"post-search", func(d *config.Config, s config.Config) { d.PostSearch = s.PostSearch }},
	{"post-replace", func(d *config.Config, s config.Config) { d.PostReplace = s.PostReplace }},
	{"force", func(d *config.Config, s config.Config) { d.Force = s.Force }},
}

// resolveConfig layers defaults, the config file and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command, path string, flags config.Config) (config.Config, error) {
	logger := loggerFromContext(cmd.Context())
	cfg := config.Default()

	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	if path != "" {
		loaded, err := config.Load(path, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		logger.Debug("loaded config", "path", path)
	}

	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f != nil && f.Changed {
			o.apply(&cfg, flags)
		}
	}
	return cfg, cfg.Validate()
}
