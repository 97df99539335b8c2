// Package discover walks a repository root and returns the source files
// eligible for indexing, honoring built-in ignore sets, .gitignore rules,
// and configured include/exclude globs.
package discover

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// ignoreDirs are directory names always skipped during discovery.
var ignoreDirs = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".idea": true,
	".next": true, ".nyc_output": true, ".pnpm-store": true, ".svn": true,
	".turbo": true, ".venv": true, ".vscode": true, ".yarn": true,
	"__pycache__": true, "bower_components": true, "build": true,
	"coverage": true, "dist": true, "node_modules": true, "out": true,
	"target": true, "tmp": true, "vendor": true,
}

// sourceExtensions are the file extensions the bundled parser understands.
var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
}

// FileInfo is one discovered source file. Size and ModTime are captured
// during the walk so change detection needs no second stat pass.
type FileInfo struct {
	Path    string // absolute path
	RelPath string // relative to repo root, slash-separated
	Size    int64
	ModTime time.Time
}

// Options configures discovery.
type Options struct {
	Include []string // doublestar globs; empty means everything
	Exclude []string // doublestar globs applied after Include
	// MaxFileSize skips files larger than this many bytes (0: 1 MiB default).
	MaxFileSize int64
}

const defaultMaxFileSize = 1 << 20

// Discover walks repoPath and returns eligible source files. A .gitignore in
// the repo root is honored when present.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	var ignore gitignore.GitIgnore
	if _, statErr := os.Stat(filepath.Join(repoPath, ".gitignore")); statErr == nil {
		ignore, _ = gitignore.NewFromFile(filepath.Join(repoPath, ".gitignore"))
	}

	var files []FileInfo
	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable entry: skip, don't abort the walk
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(repoPath, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if ignoreDirs[info.Name()] || isIgnored(ignore, path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if info.Size() > maxSize {
			return nil
		}
		if isIgnored(ignore, path, false) {
			return nil
		}
		if !matchGlobs(rel, opts.Include, true) || matchGlobs(rel, opts.Exclude, false) {
			return nil
		}

		files = append(files, FileInfo{Path: path, RelPath: rel, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isIgnored consults the .gitignore matcher, if any.
func isIgnored(ignore gitignore.GitIgnore, path string, isDir bool) bool {
	if ignore == nil {
		return false
	}
	match := ignore.Absolute(path, isDir)
	return match != nil && match.Ignore()
}

// matchGlobs reports whether rel matches any of the given doublestar
// patterns. emptyResult is returned when the pattern list is empty.
func matchGlobs(rel string, patterns []string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
