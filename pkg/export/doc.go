// Package export writes a reconstructed dependency graph in formats other
// tools can consume.
//
// # JSON Format
//
// [WriteJSON] emits the graph as a single object:
//
//	{
//	  "root": "myapp",
//	  "nodes": [
//	    {"name": "itoa", "version": "1.0.11", "ref_count": 1},
//	    {"name": "myapp", "version": "0.1.0", "ref_count": 0, "root": true},
//	    {"name": "serde_json", "version": "1.0.117", "ref_count": 1}
//	  ],
//	  "edges": [
//	    {"from": "myapp", "to": "serde_json"},
//	    {"from": "serde_json", "to": "itoa"}
//	  ]
//	}
//
// Nodes appear in graph order (sorted by name); edges follow each node's
// declared dependency order, including repeated declarations. [ReadJSON]
// converts such a document back into [graph.Package] values, so an export
// can be fed to [graph.Build] again.
//
// # DOT and SVG
//
// [ToDOT] produces a Graphviz digraph with the root highlighted. [RenderSVG]
// lays it out with the embedded Graphviz build from go-graphviz; no system
// Graphviz install is needed.
package export
