package cms

import "fmt"

// Kind names a model type. It doubles as the hook event prefix and the
// UUID scheme.
type Kind string

const (
	KindSite Kind = "site"
	KindPage Kind = "page"
	KindFile Kind = "file"
	KindUser Kind = "user"
)

// Model is a content-bearing entity: the site, a page, a file or a user.
// The set of implementations is closed.
type Model interface {
	Kind() Kind

	// ID is the path-like id of the model: "" for the site, the page path
	// for pages, "{parent id}/{filename}" for files, the account id for
	// users.
	ID() string

	App() *App

	// Content returns the content in the current language.
	Content() (*Content, error)

	// ContentIn returns the content in the given language.
	ContentIn(code string) (*Content, error)

	Translations() *Translations

	// UUID returns the identifier of the model, creating and storing one
	// if it has none yet.
	UUID() (*UUID, error)

	contentFileDirectory() string
	contentFileName() string
	state() *contentState
	blueprint() (*Blueprint, error)
	validate(action string, args Args) error
	afterArgs(action string, st ModelState) Args
}

// FilesParent is a model that owns asset files.
type FilesParent interface {
	Model
	Files() (Files, error)
	root() string
	purge()
}

// ModelState is the before and after of one committed action. Old is the
// first argument after the before hook, not necessarily the receiver.
type ModelState struct {
	Old any
	New any
}

// storedUUID returns the uuid field of the default-language content
// without creating one.
func storedUUID(m Model) (string, error) {
	data, err := translationsOf(m).Default().Content()
	if err != nil {
		return "", err
	}
	return data["uuid"], nil
}

// Title returns the title field of m, falling back to its id.
func Title(m Model) string {
	c, err := m.Content()
	if err == nil && c.Has("title") {
		return c.Get("title")
	}
	return m.ID()
}

func modelString(m Model) string {
	return fmt.Sprintf("%s %q", m.Kind(), m.ID())
}
