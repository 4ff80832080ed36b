package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPatterns select schema documents.
var DefaultPatterns = []string{"**/*.dbml"}

// DefaultIgnore skips workspace state and dependency trees.
var DefaultIgnore = []string{".schemasync/**", ".git/**", "node_modules/**"}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Matcher decides which slash-separated relative paths are schema files.
// A pattern starting with "**/" also matches files at the root.
type Matcher struct {
	include []compiledPattern
	ignore  []compiledPattern
}

// NewMatcher compiles include and ignore patterns.
func NewMatcher(include, ignore []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if m.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	return m, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})

		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			g, err := glob.Compile(simplified, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			out = append(out, compiledPattern{pattern: simplified, glob: g})
		}
	}
	return out, nil
}

// Match reports whether relPath is included and not ignored.
func (m *Matcher) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if m.Ignored(relPath) {
		return false
	}
	return matchAny(m.include, relPath)
}

// Ignored reports whether relPath, or a directory at relPath, is ignored.
func (m *Matcher) Ignored(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	return matchAny(m.ignore, relPath) || matchAny(m.ignore, relPath+"/**")
}

func matchAny(patterns []compiledPattern, path string) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	return false
}

// Discover walks root and returns the schema files m matches, in walk order.
func Discover(root string, m *Matcher) ([]string, error) {
	files := []string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel != "." && m.Ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if m.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
