package cms

import (
	"iter"
	"strings"
)

// Schemes that identify a model kind. Block and struct identifiers point
// into field values and are never resolved to a model here.
const (
	SchemeSite   = "site"
	SchemePage   = "page"
	SchemeFile   = "file"
	SchemeUser   = "user"
	SchemeBlock  = "block"
	SchemeStruct = "struct"
)

var knownSchemes = map[string]bool{
	SchemeSite: true, SchemePage: true, SchemeFile: true,
	SchemeUser: true, SchemeBlock: true, SchemeStruct: true,
}

// UUID is a location-independent model identifier of the form
// "{scheme}://{id}". The id of pages and files is stored in the
// default-language content; site and user identifiers are derived.
type UUID struct {
	app    *App
	scheme string
	id     string
	path   string
	model  Model
}

// ParseUUID parses "scheme://id[/path]".
func ParseUUID(app *App, s string) (*UUID, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || !knownSchemes[scheme] {
		return nil, invalidArgument("uuid.invalid", map[string]any{"uuid": s})
	}
	id, path, _ := strings.Cut(rest, "/")
	if id == "" && scheme != SchemeSite {
		return nil, invalidArgument("uuid.invalid", map[string]any{"uuid": s})
	}
	return &UUID{app: app, scheme: scheme, id: id, path: path}, nil
}

// uuidFor builds the identifier of m, writing a new one into the
// default-language content of pages and files that have none yet.
func uuidFor(m Model) (*UUID, error) {
	u := &UUID{app: m.App(), scheme: string(m.Kind()), model: m}
	switch m.Kind() {
	case KindSite:
		return u, nil
	case KindUser:
		u.id = m.ID()
		return u, nil
	}

	id, err := storedUUID(m)
	if err != nil {
		return nil, err
	}
	if id == "" {
		if id, err = createUUID(m); err != nil {
			return nil, err
		}
	}
	u.id = id
	return u, nil
}

// createUUID generates a new id and stores it as the system actor, since
// identity assignment must succeed whatever the current actor may edit.
func createUUID(m Model) (string, error) {
	app := m.App()
	id := app.idgen.New()
	err := app.Impersonate(func() error {
		return saveContent(m, Data{"uuid": id}, app.defaultCode(), false)
	})
	if err != nil {
		return "", err
	}
	app.logger.Debug("uuid created", "model", modelString(m), "uuid", id)
	return id, nil
}

// String returns the identifier in "scheme://id" form.
func (u *UUID) String() string {
	s := u.scheme + "://" + u.id
	if u.path != "" {
		s += "/" + u.path
	}
	return s
}

// Scheme returns the scheme, e.g. "page".
func (u *UUID) Scheme() string { return u.scheme }

// ID returns the opaque part of the identifier.
func (u *UUID) ID() string { return u.id }

// Key returns the cache key "{scheme}/{first two chars}/{rest}". The
// two-character segment shards file-based caches into subdirectories.
func (u *UUID) Key() string {
	id := u.id
	if len(id) <= 2 {
		return u.scheme + "/" + id
	}
	return u.scheme + "/" + id[:2] + "/" + id[2:]
}

func (u *UUID) cacheable() bool {
	return u.scheme == SchemePage || u.scheme == SchemeFile
}

// Model resolves the identifier. A miss returns nil, nil.
//
// Cache hits are verified: when the cached model no longer carries this
// id the entry is dropped and the lookup continues with a full index scan.
func (u *UUID) Model() (Model, error) {
	if u.model != nil {
		return u.model, nil
	}

	switch u.scheme {
	case SchemeSite:
		UUIDLookupsTotal.WithLabelValues(u.scheme, "direct").Inc()
		return u.remember(u.app.Site()), nil
	case SchemeUser:
		UUIDLookupsTotal.WithLabelValues(u.scheme, "direct").Inc()
		users, err := u.app.Users()
		if err != nil {
			return nil, err
		}
		if user := users.Find(u.id); user != nil {
			return u.remember(user), nil
		}
		return nil, nil
	case SchemeBlock, SchemeStruct:
		return nil, nil
	}

	m, err := u.fromCache()
	if err != nil || m != nil {
		return m, err
	}

	m, err = u.fromIndex()
	if err != nil {
		return nil, err
	}
	if m == nil {
		UUIDLookupsTotal.WithLabelValues(u.scheme, "miss").Inc()
		return nil, nil
	}
	UUIDLookupsTotal.WithLabelValues(u.scheme, "index").Inc()

	u.remember(m)
	if err := u.Populate(); err != nil {
		u.app.logger.Warn("uuid cache populate failed", "uuid", u.String(), "error", err)
	}
	return m, nil
}

func (u *UUID) remember(m Model) Model {
	u.model = m
	return m
}

func (u *UUID) fromCache() (Model, error) {
	value, ok, err := u.app.uuidCache.Get(u.Key())
	if err != nil {
		u.app.logger.Warn("uuid cache read failed", "key", u.Key(), "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	m, err := u.resolveCached(value)
	if err != nil {
		return nil, err
	}
	if m != nil {
		stored, err := storedUUID(m)
		if err != nil {
			return nil, err
		}
		if stored == u.id {
			UUIDLookupsTotal.WithLabelValues(u.scheme, "cache").Inc()
			return u.remember(m), nil
		}
	}

	UUIDLookupsTotal.WithLabelValues(u.scheme, "stale").Inc()
	u.app.logger.Debug("stale uuid cache entry", "key", u.Key(), "value", value)
	if err := u.app.uuidCache.Remove(u.Key()); err != nil {
		return nil, err
	}
	return nil, nil
}

// resolveCached turns a cache value back into a model: a page id for
// pages, "{parent uuid}/{filename}" for files.
func (u *UUID) resolveCached(value string) (Model, error) {
	if u.scheme == SchemePage {
		p, err := u.app.Page(value)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	}

	i := strings.LastIndex(value, "/")
	if i < 0 {
		return nil, nil
	}
	parentRef, filename := value[:i], value[i+1:]
	parentUUID, err := ParseUUID(u.app, parentRef)
	if err != nil {
		return nil, nil
	}
	parent, err := parentUUID.Model()
	if err != nil || parent == nil {
		return nil, err
	}
	fp, ok := parent.(FilesParent)
	if !ok {
		return nil, nil
	}
	files, err := fp.Files()
	if err != nil {
		return nil, err
	}
	if f := files.Find(filename); f != nil {
		return f, nil
	}
	return nil, nil
}

// fromIndex scans every model of the scheme's kind for a stored uuid
// equal to this one.
func (u *UUID) fromIndex() (Model, error) {
	var seq iter.Seq2[Model, error]
	switch u.scheme {
	case SchemePage:
		seq = pagesAsModels(u.app.Site().Index())
	case SchemeFile:
		seq = allFiles(u.app)
	default:
		return nil, nil
	}

	for m, err := range seq {
		if err != nil {
			return nil, err
		}
		id, err := storedUUID(m)
		if err != nil {
			return nil, err
		}
		if id == u.id {
			return m, nil
		}
	}
	return nil, nil
}

// value is what the cache stores for the resolved model.
func (u *UUID) value() (string, error) {
	m, err := u.Model()
	if err != nil || m == nil {
		return "", err
	}
	f, ok := m.(*File)
	if !ok {
		return m.ID(), nil
	}
	parentUUID, err := f.parent.UUID()
	if err != nil {
		return "", err
	}
	return parentUUID.String() + "/" + f.Filename(), nil
}

// Populate writes the cache entry for this identifier.
func (u *UUID) Populate() error {
	if !u.cacheable() {
		return nil
	}
	value, err := u.value()
	if err != nil || value == "" {
		return err
	}
	return u.app.uuidCache.Set(u.Key(), value)
}

// IsCached reports whether the cache holds an entry for this identifier.
func (u *UUID) IsCached() bool {
	if !u.cacheable() {
		return true
	}
	_, ok, err := u.app.uuidCache.Get(u.Key())
	return err == nil && ok
}

// Clear removes the cache entry; the stored id is left untouched. With
// recursive set on a page, the entries of every descendant page and of
// their files are removed too.
func (u *UUID) Clear(recursive bool) error {
	if !u.cacheable() {
		return nil
	}
	if recursive && u.model == nil {
		if _, err := u.Model(); err != nil {
			return err
		}
	}
	if err := u.app.uuidCache.Remove(u.Key()); err != nil {
		return err
	}
	if !recursive {
		return nil
	}

	if p, ok := u.model.(*Page); ok {
		return clearDescendants(p)
	}
	return nil
}

// clearDescendants removes the cache entries of the files of p and of
// every page below it.
func clearDescendants(p *Page) error {
	if err := clearFileEntries(p); err != nil {
		return err
	}
	for child, err := range p.Index() {
		if err != nil {
			return err
		}
		if err := clearStored(child); err != nil {
			return err
		}
		if err := clearFileEntries(child); err != nil {
			return err
		}
	}
	return nil
}

// clearSubtree removes the cache entries of p and everything below it
// without creating ids for models that have none.
func clearSubtree(p *Page) error {
	if err := clearStored(p); err != nil {
		return err
	}
	return clearDescendants(p)
}

// populateStored writes the cache entry of m if m has a stored id.
func populateStored(m Model) {
	id, err := storedUUID(m)
	if err != nil || id == "" {
		return
	}
	u := &UUID{app: m.App(), scheme: string(m.Kind()), id: id, model: m}
	if err := u.Populate(); err != nil {
		m.App().logger.Warn("uuid cache populate failed", "uuid", u.String(), "error", err)
	}
}

// clearStored removes the cache entry of m if m has a stored id.
func clearStored(m Model) error {
	id, err := storedUUID(m)
	if err != nil || id == "" {
		return err
	}
	u := &UUID{app: m.App(), scheme: string(m.Kind()), id: id, model: m}
	return u.Clear(false)
}

func clearFileEntries(p FilesParent) error {
	files, err := p.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := clearStored(f); err != nil {
			return err
		}
	}
	return nil
}

// IndexUUIDs populates the cache for every page and file of the site,
// creating missing ids on the way. Running it again is harmless.
func IndexUUIDs(app *App) (int, error) {
	n := 0
	populate := func(m Model) error {
		u, err := m.UUID()
		if err != nil {
			return err
		}
		if err := u.Populate(); err != nil {
			return err
		}
		n++
		return nil
	}

	for p, err := range app.Site().Index() {
		if err != nil {
			return n, err
		}
		if err := populate(p); err != nil {
			return n, err
		}
	}
	for f, err := range allFiles(app) {
		if err != nil {
			return n, err
		}
		if err := populate(f); err != nil {
			return n, err
		}
	}

	app.logger.Info("uuid index populated", "count", n)
	return n, nil
}

func pagesAsModels(seq iter.Seq2[*Page, error]) iter.Seq2[Model, error] {
	return func(yield func(Model, error) bool) {
		for p, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// allFiles lazily lists the files of the site, of every page and of every
// user.
func allFiles(app *App) iter.Seq2[Model, error] {
	return func(yield func(Model, error) bool) {
		emit := func(parent FilesParent) bool {
			files, err := parent.Files()
			if err != nil {
				yield(nil, err)
				return false
			}
			for _, f := range files {
				if !yield(f, nil) {
					return false
				}
			}
			return true
		}

		if !emit(app.Site()) {
			return
		}
		for p, err := range app.Site().Index() {
			if err != nil {
				yield(nil, err)
				return
			}
			if !emit(p) {
				return
			}
		}

		users, err := app.Users()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, user := range users {
			if !emit(user) {
				return
			}
		}
	}
}
