package cms

import (
	"fmt"
	"os"
	"path/filepath"

	"folio/internal/txt"
)

// contentState holds the lazily resolved content of a model instance.
// Clones start with a fresh state so they never see stale reads.
type contentState struct {
	content      *Content
	contentLang  string
	translations *Translations
}

func readData(path string) (Data, error) {
	data, err := txt.Read(path)
	if err != nil {
		return nil, err
	}
	return Data(data), nil
}

// contentFile returns {dir}/{stem}[.{code}].{ext} for a model.
func contentFile(m Model, code string) string {
	name := m.contentFileName()
	if code != "" {
		name += "." + code
	}
	return filepath.Join(m.contentFileDirectory(), name+"."+m.App().opts.ContentExtension)
}

// translationsOf builds the translation set of m on first use.
func translationsOf(m Model) *Translations {
	st := m.state()
	if st.translations != nil {
		return st.translations
	}

	app := m.App()
	ts := &Translations{}
	if !app.MultiLanguage() {
		ts.items = []*ContentTranslation{{path: contentFile(m, ""), isDefault: true}}
	} else {
		def := app.DefaultLanguage()
		for _, lang := range app.Languages() {
			ts.items = append(ts.items, &ContentTranslation{
				code:      lang.Code,
				path:      contentFile(m, lang.Code),
				isDefault: lang == def,
			})
		}
	}
	st.translations = ts
	return ts
}

// contentOf resolves the content of m. An empty code means the current
// language; only that result is cached on the model. Non-default
// languages are merged over the default language.
func contentOf(m Model, code string) (*Content, error) {
	app := m.App()
	st := m.state()

	if !app.MultiLanguage() {
		if st.content == nil {
			data, err := translationsOf(m).Default().Content()
			if err != nil {
				return nil, err
			}
			st.content = NewContent(data)
		}
		return st.content, nil
	}

	explicit := code != ""
	if !explicit {
		code = app.Language().Code
		if st.content != nil && st.contentLang == code {
			return st.content, nil
		}
	}

	t := translationsOf(m).Find(code)
	if t == nil {
		return nil, invalidArgument("language.notFound", map[string]any{"code": code})
	}

	data, err := t.Content()
	if err != nil {
		return nil, err
	}
	if !t.IsDefault() {
		def, err := translationsOf(m).Default().Content()
		if err != nil {
			return nil, err
		}
		data = mergeData(def, data)
	}

	c := NewContent(data)
	if !explicit {
		st.content = c
		st.contentLang = code
	}
	return c, nil
}

// saveContent writes data into the translation for code ("" = current
// language). Non-default translations never store untranslatable fields
// or the uuid.
func saveContent(m Model, data Data, code string, overwrite bool) error {
	app := m.App()

	var t *ContentTranslation
	if !app.MultiLanguage() {
		t = translationsOf(m).Default()
	} else {
		if code == "" {
			code = app.Language().Code
		}
		t = translationsOf(m).Find(code)
		if t == nil {
			return invalidArgument("language.notFound", map[string]any{"code": code})
		}
	}

	unlock := app.lockPath(t.path)
	defer unlock()

	var next Data
	if t.IsDefault() {
		current, err := t.Content()
		if err != nil {
			return err
		}
		next = NewContent(current).Update(data, overwrite).Data()
	} else {
		current, err := contentOf(m, code)
		if err != nil {
			return err
		}
		next = current.Update(data, overwrite).Data()

		bp, err := m.blueprint()
		if err != nil {
			return err
		}
		for _, name := range bp.Untranslatable() {
			delete(next, txt.NormalizeKey(name))
		}
		delete(next, "uuid")
	}

	if err := txt.Write(t.path, next); err != nil {
		return fmt.Errorf("saving content of %s %q: %w", m.Kind(), m.ID(), err)
	}

	t.data = next
	m.state().content = nil
	return nil
}

// removeContentFiles deletes every translation file of m.
func removeContentFiles(m Model) error {
	for _, t := range translationsOf(m).All() {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing content file: %w", err)
		}
	}
	return nil
}
