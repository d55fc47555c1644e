package cms

import (
	"maps"
	"os"
)

// ContentTranslation is the stored content of one model in one language.
// The content file is read on first access.
type ContentTranslation struct {
	code      string
	path      string
	isDefault bool
	data      Data
}

// Code returns the language code, "" in single-language mode.
func (t *ContentTranslation) Code() string { return t.code }

// IsDefault reports whether this is the default-language translation.
func (t *ContentTranslation) IsDefault() bool { return t.isDefault }

// ContentFile returns the path of the backing content file.
func (t *ContentTranslation) ContentFile() string { return t.path }

// Exists reports whether the content file is present on disk.
func (t *ContentTranslation) Exists() bool {
	_, err := os.Stat(t.path)
	return err == nil
}

// Content returns this language's stored fields without any fallback.
func (t *ContentTranslation) Content() (Data, error) {
	if t.data == nil {
		data, err := readData(t.path)
		if err != nil {
			return nil, err
		}
		t.data = data
	}
	return maps.Clone(t.data), nil
}

// Slug returns the translated slug stored in this translation, if any.
func (t *ContentTranslation) Slug() string {
	data, err := t.Content()
	if err != nil {
		return ""
	}
	return data["slug"]
}

// Translations is the per-model set of translations, one per configured
// language, in configuration order.
type Translations struct {
	items []*ContentTranslation
}

// Find returns the translation for a language code, or nil.
func (ts *Translations) Find(code string) *ContentTranslation {
	for _, t := range ts.items {
		if t.code == code {
			return t
		}
	}
	return nil
}

// Default returns the default-language translation.
func (ts *Translations) Default() *ContentTranslation {
	for _, t := range ts.items {
		if t.isDefault {
			return t
		}
	}
	return nil
}

// All returns every translation in order.
func (ts *Translations) All() []*ContentTranslation {
	return ts.items
}

// Len returns the number of translations.
func (ts *Translations) Len() int { return len(ts.items) }
