package graph

import (
	"slices"
	"strings"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
)

// Package is one resolved entry of a lock file.
// The graph copies packages on Build and never modifies them.
type Package struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Source       string   `json:"source,omitempty"`
	Checksum     string   `json:"checksum,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"` // Declared dependency names, in order
}

// Node is an arena entry wrapping one package.
type Node struct {
	Package Package
	// Deps holds arena indices of the resolved dependencies, in the order
	// the package declared them.
	Deps []int
	// RefCount is the number of edges pointing at this node.
	RefCount int
}

// Unresolved records a declared dependency that matched no package.
// Only populated when [BuildOptions.SkipUnresolved] is set.
type Unresolved struct {
	From string // Declaring package
	Name string // Missing dependency name
}

// BuildOptions configures graph construction.
type BuildOptions struct {
	// Strict rejects inputs with more than one unreferenced package.
	Strict bool
	// SkipUnresolved drops dependency names that match no package instead
	// of failing with DEPENDENCY_NOT_FOUND.
	SkipUnresolved bool
}

// Graph is the dependency graph of one lock file.
// Nodes live in a single slice ordered by package name; edges are indices
// into that slice.
type Graph struct {
	nodes      []Node
	index      map[string]int
	root       int
	unresolved []Unresolved
}

// Build reconstructs the dependency graph of pkgs and selects its root.
//
// It fails with DUPLICATE_PACKAGE when two packages share a name,
// DEPENDENCY_NOT_FOUND when a declared dependency names no package, and
// NO_ROOT when pkgs is empty or every package is referenced. With
// opts.Strict, more than one unreferenced package fails with
// AMBIGUOUS_ROOT.
func Build(pkgs []Package, opts BuildOptions) (*Graph, error) {
	sorted := slices.Clone(pkgs)
	slices.SortStableFunc(sorted, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })

	g := &Graph{
		nodes: make([]Node, len(sorted)),
		index: make(map[string]int, len(sorted)),
		root:  -1,
	}
	for i, p := range sorted {
		if _, dup := g.index[p.Name]; dup {
			return nil, derrors.New(derrors.ErrCodeDuplicatePackage, "duplicate package: %s", p.Name)
		}
		p.Dependencies = slices.Clone(p.Dependencies)
		g.nodes[i] = Node{Package: p}
		g.index[p.Name] = i
	}

	if err := g.link(opts); err != nil {
		return nil, err
	}
	if err := g.selectRoot(opts); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) link(opts BuildOptions) error {
	for i := range g.nodes {
		n := &g.nodes[i]
		for _, name := range n.Package.Dependencies {
			dep, ok := g.index[name]
			if !ok {
				if opts.SkipUnresolved {
					g.unresolved = append(g.unresolved, Unresolved{From: n.Package.Name, Name: name})
					continue
				}
				return derrors.New(derrors.ErrCodeDependencyNotFound, "dependency not found: %s", name)
			}
			g.nodes[dep].RefCount++
			n.Deps = append(n.Deps, dep)
		}
	}
	return nil
}

// selectRoot keeps the last unreferenced node in name order.
func (g *Graph) selectRoot(opts BuildOptions) error {
	roots := g.Roots()
	if len(roots) == 0 {
		return derrors.New(derrors.ErrCodeNoRoot, "no root package")
	}
	if opts.Strict && len(roots) > 1 {
		names := make([]string, len(roots))
		for i, r := range roots {
			names[i] = g.nodes[r].Package.Name
		}
		return derrors.New(derrors.ErrCodeAmbiguousRoot, "multiple root packages: %s", strings.Join(names, ", "))
	}
	g.root = roots[len(roots)-1]
	return nil
}

// Root returns the arena index of the root node.
func (g *Graph) Root() int { return g.root }

// RootPackage returns the package at the root of the graph.
func (g *Graph) RootPackage() Package { return g.nodes[g.root].Package }

// Roots returns the arena indices of all unreferenced nodes, in name order.
// The last one is the root; the others are unreachable from it.
func (g *Graph) Roots() []int {
	var roots []int
	for i, n := range g.nodes {
		if n.RefCount == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of resolved dependency edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.Deps)
	}
	return count
}

// Node returns the node at arena index i.
// The returned value shares its Deps slice with the graph and must not be
// modified.
func (g *Graph) Node(i int) Node { return g.nodes[i] }

// Lookup returns the arena index of the package with the given name.
func (g *Graph) Lookup(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Nodes returns a copy of the arena in name order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		n.Deps = slices.Clone(n.Deps)
		nodes[i] = n
	}
	return nodes
}

// Unresolved returns the dependency names dropped during Build.
func (g *Graph) Unresolved() []Unresolved { return slices.Clone(g.unresolved) }
