// Package testutil holds helpers for tests that pin package layering.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Imports maps each import path used by the non-test Go files in dir to the
// files importing it.
func Imports(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	out := make(map[string][]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			p := strings.Trim(imp.Path.Value, `"`)
			out[p] = append(out[p], name)
		}
	}
	return out, nil
}

// Violations lists "path (in file)" for every import forbidden matches.
func Violations(dir string, forbidden func(string) bool) ([]string, error) {
	imports, err := Imports(dir)
	if err != nil {
		return nil, err
	}
	var viols []string
	for p, files := range imports {
		if forbidden(p) {
			viols = append(viols, p+" (in "+strings.Join(files, ", ")+")")
		}
	}
	sort.Strings(viols)
	return viols, nil
}

// AssertNoImports fails t when a non-test file in dir imports a path that
// forbidden matches.
func AssertNoImports(t testing.TB, dir string, forbidden func(string) bool, reason string) {
	t.Helper()
	viols, err := Violations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports in %s (%s):\n%s", dir, reason, strings.Join(viols, "\n"))
	}
}

// Prefixed matches import paths equal to or below any of prefixes.
func Prefixed(prefixes ...string) func(string) bool {
	return func(p string) bool {
		for _, pre := range prefixes {
			if p == pre || strings.HasPrefix(p, pre+"/") {
				return true
			}
		}
		return false
	}
}
