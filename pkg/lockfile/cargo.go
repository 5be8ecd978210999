// Package lockfile reads Cargo.lock files into the flat package list
// consumed by [graph.Build].
//
// Cargo.lock already contains the full, resolved transitive closure of a
// build: one [[package]] table per crate with its exact version and the
// crates it depends on. No registry is contacted.
//
// Dependency entries come in three shapes depending on how ambiguous the
// name is within the lock file:
//
//	"serde"
//	"serde 1.0.200"
//	"serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)"
//
// All three reduce to the bare crate name.
//
// [graph.Build]: github.com/matzehuels/depsgen/pkg/graph.Build
package lockfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
	"github.com/matzehuels/depsgen/pkg/graph"
)

// DefaultPath is the lock file read when none is configured.
const DefaultPath = "Cargo.lock"

// registrySource prefixes the source of crates fetched from a registry.
const registrySource = "registry+"

// Lockfile is a decoded Cargo.lock.
type Lockfile struct {
	Version int           // Lock file format version (0 when absent, i.e. v1)
	Entries []LockPackage // [[package]] tables in file order
}

// LockPackage is one [[package]] table.
type LockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

type lockFile struct {
	Version  int           `toml:"version"`
	Packages []LockPackage `toml:"package"`
}

// Load reads and parses the lock file at path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidLockfile, err, "read %s", path)
	}
	lf, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lf, nil
}

// Parse decodes a Cargo.lock document from r.
func Parse(r io.Reader) (*Lockfile, error) {
	var lock lockFile
	if _, err := toml.NewDecoder(r).Decode(&lock); err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidLockfile, err, "decode lock file")
	}

	for i, p := range lock.Packages {
		validate := derrors.ValidatePackageName
		if strings.HasPrefix(p.Source, registrySource) {
			validate = derrors.ValidateCratesPackageName
		}
		if err := validate(p.Name); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeInvalidLockfile, err, "package #%d", i+1)
		}
		for _, dep := range p.Dependencies {
			if DependencyName(dep) == "" {
				return nil, derrors.New(derrors.ErrCodeInvalidLockfile, "package %s: empty dependency entry", p.Name)
			}
		}
	}

	return &Lockfile{Version: lock.Version, Entries: lock.Packages}, nil
}

// Packages converts the lock file entries into graph input, preserving file
// order and each package's declared dependency order.
func (l *Lockfile) Packages() []graph.Package {
	out := make([]graph.Package, len(l.Entries))
	for i, p := range l.Entries {
		deps := make([]string, len(p.Dependencies))
		for j, d := range p.Dependencies {
			deps[j] = DependencyName(d)
		}
		out[i] = graph.Package{
			Name:         p.Name,
			Version:      p.Version,
			Source:       p.Source,
			Checksum:     p.Checksum,
			Dependencies: deps,
		}
	}
	return out
}

// DependencyName extracts the crate name from a dependency entry.
func DependencyName(entry string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(entry), " ")
	return name
}
