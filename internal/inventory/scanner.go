package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"folio/internal/cms"
)

// Scanner lists model directories on the real filesystem.
type Scanner struct {
	root      string
	extension string
	ignore    *IgnoreMatcher
}

// NewScanner creates a Scanner for a content root. extension is the
// content file extension without the dot. The ignore patterns are
// combined with the defaults and the root's .folioignore file.
func NewScanner(root, extension string, patterns []string) (*Scanner, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil, err
	}

	all := append([]string{}, defaultIgnorePatterns...)
	all = append(all, patterns...)
	all = append(all, fromFile...)

	if extension == "" {
		extension = "txt"
	}
	return &Scanner{
		root:      root,
		extension: strings.TrimPrefix(extension, "."),
		ignore:    NewIgnoreMatcher(all),
	}, nil
}

// Scan lists the child directories and asset files of dir. Directories
// starting with "_" (such as _drafts) are not children. A missing
// directory yields an empty listing.
func (s *Scanner) Scan(dir string) (*cms.Listing, error) {
	listing := &cms.Listing{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return listing, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	ext := "." + s.extension
	var contentFiles, assets []string

	for _, entry := range entries {
		name := entry.Name()
		if s.ignore.Match(s.relative(filepath.Join(dir, name)), entry.IsDir()) {
			continue
		}

		if entry.IsDir() {
			if strings.HasPrefix(name, "_") {
				continue
			}
			slug, num := parseDirname(name)
			listing.Children = append(listing.Children, cms.ChildEntry{
				Dirname: name,
				Slug:    slug,
				Num:     num,
				Root:    filepath.Join(dir, name),
			})
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(name, ext) {
			contentFiles = append(contentFiles, name)
		} else {
			assets = append(assets, name)
		}
	}

	for _, a := range assets {
		listing.Files = append(listing.Files, cms.FileEntry{
			Filename: a,
			Root:     filepath.Join(dir, a),
		})
	}
	listing.Template = templateOf(contentFiles, assets, ext)

	sortChildren(listing.Children)
	return listing, nil
}

func (s *Scanner) relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

// parseDirname splits "{num}_{slug}" into its parts. A name without a
// numeric prefix is an unlisted slug.
func parseDirname(name string) (string, *int) {
	prefix, rest, ok := strings.Cut(name, "_")
	if !ok || rest == "" {
		return name, nil
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 {
		return name, nil
	}
	return rest, &n
}

// templateOf returns the stem of the first content file that is not the
// meta file of an asset. Language codes are stripped: "article.en.txt"
// has the template "article".
func templateOf(contentFiles, assets []string, ext string) string {
	sort.Strings(contentFiles)
	for _, name := range contentFiles {
		if isMeta(name, assets) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		template, _, _ := strings.Cut(stem, ".")
		return template
	}
	return ""
}

func isMeta(name string, assets []string) bool {
	for _, a := range assets {
		if strings.HasPrefix(name, a+".") {
			return true
		}
	}
	return false
}

// sortChildren puts listed pages first by number, then the rest by name.
func sortChildren(children []cms.ChildEntry) {
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]
		switch {
		case a.Num != nil && b.Num != nil:
			if *a.Num != *b.Num {
				return *a.Num < *b.Num
			}
			return a.Dirname < b.Dirname
		case a.Num != nil:
			return true
		case b.Num != nil:
			return false
		default:
			return a.Dirname < b.Dirname
		}
	})
}

// Compile-time check that Scanner implements cms.Inventory.
var _ cms.Inventory = (*Scanner)(nil)
