// Package config holds the generator configuration.
//
// A [Config] is built from [Default], optionally overlaid with a TOML file
// ([Load], usually depsgen.toml next to Cargo.lock) and finally with
// command-line flags. The core packages never read files or the
// environment themselves; everything they need arrives through Config.
//
// Example depsgen.toml:
//
//	template      = "src/licenses.template.rs"
//	lock          = "Cargo.lock"
//	output        = "src/licenses.rs"
//	include_root  = false
//	max_depth     = 1
//	post_search   = "//{}"
//	post_replace  = ""
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
	"github.com/matzehuels/depsgen/pkg/graph"
	"github.com/matzehuels/depsgen/pkg/lockfile"
)

const (
	// DefaultTemplatePath is the template read when none is configured.
	DefaultTemplatePath = "src/deps.template.rs"

	// DefaultPostSearch is stripped from rendered output by default, so
	// templates can hide block tags behind a line comment.
	DefaultPostSearch = "//{}"

	// TemplateMarker is removed from the template file name to derive the
	// output path when none is given.
	TemplateMarker = ".template."

	// DefaultFile is the config file picked up when present.
	DefaultFile = "depsgen.toml"
)

// Config is the complete generator configuration.
type Config struct {
	// Template is inline template text. When set, TemplatePath is ignored
	// and TargetPath must be given.
	Template     string `toml:"template_text"`
	TemplatePath string `toml:"template"`
	LockPath     string `toml:"lock"`
	TargetPath   string `toml:"output"`

	// PostSearch is replaced by PostReplace in the rendered output.
	// Empty disables post-processing.
	PostSearch  string `toml:"post_search"`
	PostReplace string `toml:"post_replace"`

	IncludeRoot    bool `toml:"include_root"`
	MaxDepth       int  `toml:"max_depth"`
	Strict         bool `toml:"strict"`
	SkipUnresolved bool `toml:"skip_unresolved"`

	// Force regenerates even when the output is newer than the lock file.
	Force bool `toml:"force"`
}

// Default returns the configuration used when nothing is specified:
// src/deps.template.rs rendered to src/deps.rs from Cargo.lock, root
// excluded, unbounded depth, "//{}" stripped.
func Default() Config {
	return Config{
		TemplatePath: DefaultTemplatePath,
		LockPath:     lockfile.DefaultPath,
		PostSearch:   DefaultPostSearch,
	}
}

// Load overlays the TOML file at path onto base.
// Keys absent from the file keep their value from base.
func Load(path string, base Config) (Config, error) {
	cfg := base
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, derrors.Wrap(derrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, derrors.Wrap(derrors.ErrCodeInvalidConfig, err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, derrors.New(derrors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return derrors.New(derrors.ErrCodeInvalidConfig, "max depth must not be negative: %d", c.MaxDepth)
	}
	if c.LockPath == "" {
		return derrors.New(derrors.ErrCodeInvalidConfig, "lock file path is empty")
	}
	if err := derrors.ValidatePath(c.LockPath); err != nil {
		return err
	}
	if c.Template == "" && c.TemplatePath == "" {
		return derrors.New(derrors.ErrCodeInvalidConfig, "no template given")
	}
	if c.TargetPath != "" {
		if err := derrors.ValidatePath(c.TargetPath); err != nil {
			return err
		}
	}
	return nil
}

// Target returns the output path, deriving it from TemplatePath when
// TargetPath is empty ("src/deps.template.rs" becomes "src/deps.rs").
func (c Config) Target() (string, error) {
	if c.TargetPath != "" {
		return c.TargetPath, nil
	}
	if c.Template != "" || c.TemplatePath == "" {
		return "", derrors.New(derrors.ErrCodeInvalidConfig, "can't guess output file: set an output path for inline templates")
	}
	if !strings.Contains(c.TemplatePath, TemplateMarker) {
		return "", derrors.New(derrors.ErrCodeInvalidConfig,
			"when output is not specified, the template file name must contain %q: %s", TemplateMarker, c.TemplatePath)
	}
	return strings.ReplaceAll(c.TemplatePath, TemplateMarker, "."), nil
}

// TemplateText returns the inline template or the template file's content.
func (c Config) TemplateText() (string, error) {
	if c.Template != "" {
		return c.Template, nil
	}
	data, err := os.ReadFile(c.TemplatePath)
	if err != nil {
		return "", derrors.Wrap(derrors.ErrCodeTemplate, err, "read template %s", c.TemplatePath)
	}
	return string(data), nil
}

// BuildOptions returns the graph construction switches.
func (c Config) BuildOptions() graph.BuildOptions {
	return graph.BuildOptions{Strict: c.Strict, SkipUnresolved: c.SkipUnresolved}
}

// FlattenOptions returns the traversal switches.
func (c Config) FlattenOptions() graph.FlattenOptions {
	return graph.FlattenOptions{IncludeRoot: c.IncludeRoot, MaxDepth: c.MaxDepth}
}
