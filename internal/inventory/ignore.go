package inventory

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFile is the per-site ignore file read from the content root.
const IgnoreFile = ".folioignore"

// defaultIgnorePatterns are always applied regardless of config or .folioignore.
var defaultIgnorePatterns = []string{".*", "Thumbs.db"}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
	dirOnly   bool // trailing "/": only directories match
	negate    bool // leading "!": a match re-includes the path
}

// IgnoreMatcher checks content paths against a set of ignore patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the full path relative to the content root.
// As in .gitignore, a trailing '/' restricts a pattern to directories and a
// leading '!' re-includes what earlier patterns excluded; the last matching
// pattern decides.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var p ignorePattern
		if rest, ok := strings.CutPrefix(raw, "!"); ok {
			p.negate = true
			raw = rest
		}
		if rest, ok := strings.CutSuffix(raw, "/"); ok {
			p.dirOnly = true
			raw = rest
		}
		if raw == "" {
			continue
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the entry at relativePath should be skipped.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := basename
		if p.matchPath {
			target = normalized
		}
		matched, err := filepath.Match(p.pattern, target)
		if err != nil || !matched {
			// Bad patterns never match.
			continue
		}
		ignored = !p.negate
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
