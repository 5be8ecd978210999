package graph

import (
	"strings"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
)

// FlattenOptions configures the traversal performed by [Flatten].
type FlattenOptions struct {
	// IncludeRoot emits the root package as the first entry.
	IncludeRoot bool
	// MaxDepth is the deepest level emitted, counting the root's direct
	// dependencies as level 1. Zero means unbounded.
	MaxDepth int
}

// Flatten walks g depth-first from its root and returns the packages in
// pre-order, each at most once. The result is a new slice on every call.
//
// Flatten fails with CYCLE_DETECTED if the walk reaches a node that is
// already on the current path.
func Flatten(g *Graph, opts FlattenOptions) ([]Package, error) {
	w := &walker{
		g:       g,
		opts:    opts,
		emitted: make([]bool, len(g.nodes)),
		onPath:  make([]bool, len(g.nodes)),
		out:     make([]Package, 0, len(g.nodes)),
	}
	if err := w.visit(g.root, 0); err != nil {
		return nil, err
	}
	return w.out, nil
}

type walker struct {
	g       *Graph
	opts    FlattenOptions
	emitted []bool
	onPath  []bool
	path    []int
	out     []Package
}

func (w *walker) visit(i, depth int) error {
	if w.opts.MaxDepth > 0 && depth > w.opts.MaxDepth {
		return nil
	}
	if w.onPath[i] {
		return w.cycle(i)
	}
	if w.emitted[i] {
		return nil
	}

	n := &w.g.nodes[i]
	if depth > 0 || w.opts.IncludeRoot {
		w.emitted[i] = true
		w.out = append(w.out, n.Package)
	}

	w.onPath[i] = true
	w.path = append(w.path, i)
	for _, dep := range n.Deps {
		if err := w.visit(dep, depth+1); err != nil {
			return err
		}
	}
	w.path = w.path[:len(w.path)-1]
	w.onPath[i] = false
	return nil
}

func (w *walker) cycle(i int) error {
	var names []string
	for j := len(w.path) - 1; j >= 0; j-- {
		if w.path[j] == i {
			for _, k := range w.path[j:] {
				names = append(names, w.g.nodes[k].Package.Name)
			}
			break
		}
	}
	names = append(names, w.g.nodes[i].Package.Name)
	return derrors.New(derrors.ErrCodeCycleDetected, "cycle detected: %s", strings.Join(names, " -> "))
}
