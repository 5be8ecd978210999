// Package render executes Handlebars templates over a flattened dependency
// list.
//
// Templates see a single context object:
//
//	{
//	  "root":         {name, version, source, checksum, dependencies},
//	  "dependencies": [{name, version, source, checksum, dependencies}, ...]
//	}
//
// where the inner "dependencies" is the list of declared dependency names.
// Values are HTML-escaped as in any Handlebars implementation; use triple
// braces ({{{name}}}) for raw output.
//
// Generated sources usually need the template to stay valid code before
// rendering, so helper markers such as "//{}" are placed in front of block
// tags and stripped afterwards with [PostProcess].
package render

import (
	"strings"

	"github.com/aymerick/raymond"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
	"github.com/matzehuels/depsgen/pkg/graph"
)

// Data is the input of a template run.
type Data struct {
	Root         graph.Package
	Dependencies []graph.Package
}

// Context projects data into the map handed to the template engine.
func Context(data Data) map[string]any {
	deps := make([]map[string]any, len(data.Dependencies))
	for i, p := range data.Dependencies {
		deps[i] = packageContext(p)
	}
	return map[string]any{
		"root":         packageContext(data.Root),
		"dependencies": deps,
	}
}

func packageContext(p graph.Package) map[string]any {
	deps := p.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return map[string]any{
		"name":         p.Name,
		"version":      p.Version,
		"source":       p.Source,
		"checksum":     p.Checksum,
		"dependencies": deps,
	}
}

// Template is a parsed template that can be executed repeatedly.
type Template struct {
	tpl *raymond.Template
}

// Parse compiles source, failing with TEMPLATE_ERROR on syntax errors.
func Parse(source string) (*Template, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeTemplate, err, "parse template")
	}
	return &Template{tpl: tpl}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data Data) (string, error) {
	out, err := t.tpl.Exec(Context(data))
	if err != nil {
		return "", derrors.Wrap(derrors.ErrCodeTemplate, err, "execute template")
	}
	return out, nil
}

// Render parses source and executes it with data.
func Render(source string, data Data) (string, error) {
	t, err := Parse(source)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

// PostProcess replaces every occurrence of search with replace.
// An empty search leaves out unchanged.
func PostProcess(out, search, replace string) string {
	if search == "" {
		return out
	}
	return strings.ReplaceAll(out, search, replace)
}
