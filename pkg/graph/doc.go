// Package graph reconstructs a dependency tree from a flat, already-resolved
// package list and flattens it into the order consumed by templates.
//
// # Overview
//
// Lock files list every package of a build once, each with the names of its
// direct dependencies. Nothing in the file says which package is the one
// being built. This package recovers that structure in two steps:
//
//  1. [Build] creates one [Node] per [Package] in an arena sorted by name,
//     resolves every declared dependency name to an arena index, counts
//     incoming references, and picks the root: the node nothing else
//     depends on.
//  2. [Flatten] walks the graph depth-first from the root and returns a
//     deduplicated, optionally depth-limited sequence of packages.
//
// # Root Selection
//
// The root is the last node, in name order, whose reference count is zero.
// When a lock file contains several unreferenced packages (workspaces,
// leftover entries) only that last one is used and the others are not
// reachable from it, so they never show up in [Flatten] output. Set
// [BuildOptions.Strict] to reject such inputs with AMBIGUOUS_ROOT instead.
//
// # Package Names
//
// Packages are keyed by name alone. Cargo.lock lists a crate once per
// resolved version, so a build that pulls in two versions of the same
// crate fails in [Build] with DUPLICATE_PACKAGE.
//
// # Flattening
//
// The walk is a pre-order traversal: a package is emitted before its
// dependencies, siblings keep the order they were declared in, and a
// package reachable through several parents is emitted once, at its first
// occurrence. The root itself is emitted only with
// [FlattenOptions.IncludeRoot]. [FlattenOptions.MaxDepth] bounds the walk;
// a depth of 1 yields the direct dependencies of the root only.
//
// The walk also tracks the nodes on the current path. A lock file that
// declares a reference cycle fails with CYCLE_DETECTED instead of
// recursing until the stack is exhausted.
//
// # Example
//
//	g, err := graph.Build([]graph.Package{
//	    {Name: "app", Dependencies: []string{"log", "serde"}},
//	    {Name: "log", Dependencies: []string{"serde"}},
//	    {Name: "serde"},
//	}, graph.BuildOptions{})
//	if err != nil {
//	    return err
//	}
//	pkgs, err := graph.Flatten(g, graph.FlattenOptions{})
//	// pkgs: log, serde
//
// # Concurrency
//
// A [Graph] is not modified after [Build] returns. [Flatten] keeps all of
// its state local to the call, so one graph can be flattened from several
// goroutines at once.
package graph
