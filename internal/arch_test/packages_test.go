// Package arch_test checks how scoreline's internal packages fit together.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

const internalPrefix = "github.com/papapumpkin/scoreline/internal/"

// pkg is one parsed internal package, test files excluded.
type pkg struct {
	name  string
	fset  *token.FileSet
	files map[string]*ast.File
}

// imports returns the internal packages pkg imports, sorted.
func (p *pkg) imports() []string {
	seen := make(map[string]bool)
	for _, f := range p.files {
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err == nil && strings.HasPrefix(path, internalPrefix) {
				seen[strings.TrimPrefix(path, internalPrefix)] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// loadInternal parses every package under internal/ except this one. The
// test runs with its own directory as working directory.
func loadInternal(t *testing.T) map[string]*pkg {
	t.Helper()
	root := ".."
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read internal: %v", err)
	}
	out := make(map[string]*pkg)
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		p := &pkg{name: e.Name(), fset: token.NewFileSet(), files: make(map[string]*ast.File)}
		dir := filepath.Join(root, e.Name())
		srcs, err := filepath.Glob(filepath.Join(dir, "*.go"))
		if err != nil {
			t.Fatalf("glob %s: %v", dir, err)
		}
		for _, src := range srcs {
			if strings.HasSuffix(src, "_test.go") {
				continue
			}
			f, err := parser.ParseFile(p.fset, src, nil, parser.ParseComments)
			if err != nil {
				t.Fatalf("parse %s: %v", src, err)
			}
			p.files[filepath.Base(src)] = f
		}
		if len(p.files) > 0 {
			out[p.name] = p
		}
	}
	if len(out) == 0 {
		t.Fatal("no internal packages found")
	}
	return out
}

func TestLoadInternal(t *testing.T) {
	t.Parallel()
	pkgs := loadInternal(t)

	for _, name := range []string{"dag", "selection", "engine", "dataset", "view", "dashboard", "server"} {
		if _, ok := pkgs[name]; !ok {
			t.Errorf("package %s not loaded", name)
		}
	}
	if _, ok := pkgs["arch_test"]; ok {
		t.Error("arch_test must not check itself")
	}
	got := pkgs["view"].imports()
	want := []string{"dataset", "selection"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("view imports %v, want %v", got, want)
	}
}
