package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/depsgen/pkg/graph"
)

type document struct {
	Root       string       `json:"root"`
	Nodes      []node       `json:"nodes"`
	Edges      []edge       `json:"edges"`
	Unresolved []unresolved `json:"unresolved,omitempty"`
}

type node struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Source   string `json:"source,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	RefCount int    `json:"ref_count"`
	Root     bool   `json:"root,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type unresolved struct {
	From string `json:"from"`
	Name string `json:"name"`
}

// WriteJSON encodes g as indented JSON and writes it to w.
func WriteJSON(g *graph.Graph, w io.Writer) error {
	nodes := g.Nodes()
	out := document{
		Root:  g.RootPackage().Name,
		Nodes: make([]node, len(nodes)),
		Edges: make([]edge, 0, g.EdgeCount()),
	}

	for i, n := range nodes {
		out.Nodes[i] = node{
			Name:     n.Package.Name,
			Version:  n.Package.Version,
			Source:   n.Package.Source,
			Checksum: n.Package.Checksum,
			RefCount: n.RefCount,
			Root:     i == g.Root(),
		}
		for _, d := range n.Deps {
			out.Edges = append(out.Edges, edge{From: n.Package.Name, To: nodes[d].Package.Name})
		}
	}
	for _, u := range g.Unresolved() {
		out.Unresolved = append(out.Unresolved, unresolved{From: u.From, Name: u.Name})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// ReadJSON decodes a document written by [WriteJSON] into packages.
// Each package's dependencies are rebuilt from the edge list in order;
// unresolved references are restored as dependencies too.
func ReadJSON(r io.Reader) ([]graph.Package, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	index := make(map[string]int, len(doc.Nodes))
	pkgs := make([]graph.Package, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if _, dup := index[n.Name]; dup {
			return nil, fmt.Errorf("node %s: duplicate name", n.Name)
		}
		index[n.Name] = i
		pkgs[i] = graph.Package{Name: n.Name, Version: n.Version, Source: n.Source, Checksum: n.Checksum}
	}

	for _, e := range doc.Edges {
		i, ok := index[e.From]
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown node %s", e.From, e.To, e.From)
		}
		if _, ok := index[e.To]; !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown node %s", e.From, e.To, e.To)
		}
		pkgs[i].Dependencies = append(pkgs[i].Dependencies, e.To)
	}
	for _, u := range doc.Unresolved {
		i, ok := index[u.From]
		if !ok {
			return nil, fmt.Errorf("unresolved %s->%s: unknown node %s", u.From, u.Name, u.From)
		}
		pkgs[i].Dependencies = append(pkgs[i].Dependencies, u.Name)
	}
	return pkgs, nil
}
