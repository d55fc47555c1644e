// Package txt reads and writes the flat content-file format used for every
// model: one "Key: value" block per field, blocks separated by a line of
// four dashes.
//
//	Title: Hello
//
//	----
//
//	Text:
//
//	A longer value
//	spanning lines
package txt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const separator = "\n\n----\n\n"

var (
	splitter = regexp.MustCompile(`\n----[ \t]*\n*`)
	escaped  = regexp.MustCompile(`(?m)^\\----`)
	needsEsc = regexp.MustCompile(`(?m)^----`)
)

// Decode parses content-file text into a field map. Field names are
// lowercased and spaces or dashes become underscores.
func Decode(s string) map[string]string {
	data := make(map[string]string)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimPrefix(s, "\ufeff")
	if strings.TrimSpace(s) == "" {
		return data
	}

	for _, block := range splitter.Split("\n"+s, -1) {
		pos := strings.Index(block, ":")
		if pos < 0 {
			continue
		}
		key := NormalizeKey(block[:pos])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(block[pos+1:])
		data[key] = escaped.ReplaceAllString(value, "----")
	}

	return data
}

// Encode serializes a field map. Empty values are omitted, title comes
// first and the remaining fields follow in key order so output is stable.
func Encode(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "title" || keys[j] == "title" {
			return keys[i] == "title"
		}
		return keys[i] < keys[j]
	})

	blocks := make([]string, 0, len(keys))
	for _, k := range keys {
		v := needsEsc.ReplaceAllString(strings.TrimSpace(data[k]), `\----`)
		if strings.Contains(v, "\n") {
			blocks = append(blocks, fieldName(k)+":\n\n"+v)
		} else {
			blocks = append(blocks, fieldName(k)+": "+v)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, separator) + "\n"
}

// NormalizeKey turns a raw field name into its canonical lowercase form.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	return strings.ToLower(key)
}

// fieldName renders a canonical key the way it appears in files: "page_title" -> "Page_title".
func fieldName(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// Read loads and decodes a content file. A missing file yields an empty
// map and no error, so freshly created models read as empty.
func Read(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading content file: %w", err)
	}
	return Decode(string(b)), nil
}

// Write encodes data and replaces the file at path atomically
// (temp file in the same directory, then rename).
func Write(path string, data map[string]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating content directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(Encode(data)); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
