package discover

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func relPaths(files []FileInfo) []string {
	result := make([]string, len(files))
	for i, f := range files {
		result[i] = f.RelPath
	}
	return result
}

func TestDiscoverExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/app.ts", "export {};")
	writeFile(t, dir, "src/view.tsx", "export {};")
	writeFile(t, dir, "src/util.js", "module.exports = {};")
	writeFile(t, dir, "README.md", "# readme")
	writeFile(t, dir, "main.go", "package main")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 source files, got %v", relPaths(files))
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("expected absolute path, got %q", f.Path)
		}
		if strings.Contains(f.RelPath, `\`) {
			t.Errorf("rel path not slash-separated: %q", f.RelPath)
		}
	}
}

func TestDiscoverIgnoresBuildDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/app.ts", "export {};")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {};")
	writeFile(t, dir, "dist/bundle.js", "x")
	writeFile(t, dir, ".git/hooks/pre-commit.js", "x")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "src/app.ts" {
		t.Errorf("expected only src/app.ts, got %v", relPaths(files))
	}
}

func TestDiscoverHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n*.min.js\n")
	writeFile(t, dir, "src/app.ts", "export {};")
	writeFile(t, dir, "generated/api.ts", "export {};")
	writeFile(t, dir, "src/app.min.js", "x")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "src/app.ts" {
		t.Errorf("expected only src/app.ts, got %v", relPaths(files))
	}
}

func TestDiscoverGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/app.ts", "export {};")
	writeFile(t, dir, "src/app.test.ts", "export {};")
	writeFile(t, dir, "scripts/tool.ts", "export {};")

	files, err := Discover(context.Background(), dir, &Options{
		Include: []string{"src/**"},
		Exclude: []string{"**/*.test.ts"},
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "src/app.ts" {
		t.Errorf("expected only src/app.ts, got %v", relPaths(files))
	}
}

func TestDiscoverMaxFileSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.ts", "export {};")
	writeFile(t, dir, "big.ts", strings.Repeat("x", 256))

	files, err := Discover(context.Background(), dir, &Options{MaxFileSize: 100})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "small.ts" {
		t.Errorf("expected only small.ts, got %v", relPaths(files))
	}
}
