package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	derrors "github.com/matzehuels/depsgen/pkg/errors"
)

func names(pkgs []Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}

func mustBuild(t *testing.T, pkgs []Package) *Graph {
	t.Helper()
	g, err := Build(pkgs, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestFlatten_Scenario(t *testing.T) {
	g := mustBuild(t, scenario())

	tests := []struct {
		name string
		opts FlattenOptions
		want []string
	}{
		{"defaults", FlattenOptions{}, []string{"B", "C"}},
		{"include root", FlattenOptions{IncludeRoot: true}, []string{"A", "B", "C"}},
		{"depth 1", FlattenOptions{MaxDepth: 1}, []string{"B", "C"}},
		{"depth 1 with root", FlattenOptions{MaxDepth: 1, IncludeRoot: true}, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Flatten(g, tt.opts)
			if err != nil {
				t.Fatalf("Flatten: %v", err)
			}
			if got := names(out); !slices.Equal(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func chain() []Package {
	// app -> web -> http -> bytes
	//     -> log
	return []Package{
		pkg("app", "web", "log"),
		pkg("web", "http"),
		pkg("http", "bytes"),
		pkg("bytes"),
		pkg("log"),
	}
}

func TestFlatten_MaxDepth(t *testing.T) {
	g := mustBuild(t, chain())

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"web", "http", "bytes", "log"}},
		{1, []string{"web", "log"}},
		{2, []string{"web", "http", "log"}},
		{3, []string{"web", "http", "bytes", "log"}},
		{10, []string{"web", "http", "bytes", "log"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth=%d", tt.depth), func(t *testing.T) {
			out, err := Flatten(g, FlattenOptions{MaxDepth: tt.depth})
			if err != nil {
				t.Fatalf("Flatten: %v", err)
			}
			if got := names(out); !slices.Equal(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_RootIsFirstWhenIncluded(t *testing.T) {
	g := mustBuild(t, chain())
	out, err := Flatten(g, FlattenOptions{IncludeRoot: true})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(out) == 0 || out[0].Name != "app" {
		t.Errorf("first = %v, want app", names(out))
	}
}

func TestFlatten_NeverIncludesRootByDefault(t *testing.T) {
	g := mustBuild(t, chain())
	out, err := Flatten(g, FlattenOptions{})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if slices.Contains(names(out), "app") {
		t.Errorf("Flatten() = %v, root must be excluded", names(out))
	}
}

func TestFlatten_Diamond(t *testing.T) {
	// Shared leaf reached from three parents is emitted once, under the
	// first parent that reaches it.
	g := mustBuild(t, []Package{
		pkg("app", "a", "b", "c"),
		pkg("a", "leaf"),
		pkg("b", "leaf"),
		pkg("c", "leaf", "b"),
		pkg("leaf"),
	})

	out, err := Flatten(g, FlattenOptions{})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	want := []string{"a", "leaf", "b", "c"}
	if got := names(out); !slices.Equal(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestFlatten_NoDuplicates(t *testing.T) {
	// Wide fan-in: every package depends on every later package.
	var pkgs []Package
	const n = 12
	for i := range n {
		var deps []string
		for j := i + 1; j < n; j++ {
			deps = append(deps, fmt.Sprintf("p%02d", j))
		}
		pkgs = append(pkgs, pkg(fmt.Sprintf("p%02d", i), deps...))
	}
	g := mustBuild(t, pkgs)

	out, err := Flatten(g, FlattenOptions{IncludeRoot: true})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(out) != n {
		t.Fatalf("len = %d, want %d", len(out), n)
	}
	seen := make(map[string]bool)
	for _, p := range out {
		if seen[p.Name] {
			t.Errorf("%s emitted twice", p.Name)
		}
		seen[p.Name] = true
	}
}

func TestFlatten_Idempotent(t *testing.T) {
	g := mustBuild(t, chain())
	opts := FlattenOptions{IncludeRoot: true, MaxDepth: 3}

	first, err := Flatten(g, opts)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	second, err := Flatten(g, opts)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if !slices.Equal(names(first), names(second)) {
		t.Errorf("first = %v, second = %v", names(first), names(second))
	}

	// Results are independent slices.
	first[0].Name = "changed"
	if second[0].Name == "changed" {
		t.Error("Flatten results share backing storage")
	}
}

func TestFlatten_Concurrent(t *testing.T) {
	g := mustBuild(t, chain())
	want := []string{"web", "http", "bytes", "log"}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := Flatten(g, FlattenOptions{})
			if err != nil {
				errs <- err.Error()
				return
			}
			if got := names(out); !slices.Equal(got, want) {
				errs <- strings.Join(got, ",")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent Flatten: %s", e)
	}
}

func TestFlatten_CycleDetected(t *testing.T) {
	// app is the only unreferenced node; a <-> b form a cycle below it.
	g := mustBuild(t, []Package{
		pkg("app", "a"),
		pkg("a", "b"),
		pkg("b", "a"),
	})

	_, err := Flatten(g, FlattenOptions{})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !derrors.Is(err, derrors.ErrCodeCycleDetected) {
		t.Fatalf("error = %v, want %s", err, derrors.ErrCodeCycleDetected)
	}
	if msg := derrors.UserMessage(err); msg != "cycle detected: a -> b -> a" {
		t.Errorf("message = %q", msg)
	}
}

func TestFlatten_CycleBeyondMaxDepthIgnored(t *testing.T) {
	g := mustBuild(t, []Package{
		pkg("app", "a"),
		pkg("a", "b"),
		pkg("b", "a"),
	})

	out, err := Flatten(g, FlattenOptions{MaxDepth: 2})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if got := names(out); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Flatten() = %v, want [a b]", got)
	}
}

func TestFlatten_SingleNode(t *testing.T) {
	g := mustBuild(t, []Package{pkg("solo")})

	out, err := Flatten(g, FlattenOptions{})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Flatten() = %v, want empty", names(out))
	}

	out, err = Flatten(g, FlattenOptions{IncludeRoot: true})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if got := names(out); !slices.Equal(got, []string{"solo"}) {
		t.Errorf("Flatten() = %v, want [solo]", got)
	}
}
