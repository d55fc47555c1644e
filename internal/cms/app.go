package cms

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Options holds the site settings the content core needs.
type Options struct {
	// Root is the content directory holding site.txt and the page tree.
	Root string

	// AccountsRoot holds one directory per user account.
	AccountsRoot string

	// Languages enables multi-language mode when non-empty.
	Languages Languages

	// ContentExtension is the content file extension, without the dot.
	ContentExtension string

	SlugMaxLength int

	// HomePage and ErrorPage are the ids of the two pages that can never
	// become drafts, be renamed or be deleted.
	HomePage  string
	ErrorPage string

	// ReservedSlugs cannot be used by top-level pages.
	ReservedSlugs []string
}

// Deps are the collaborators an App is built from. Inventory and
// Blueprints are required; the rest fall back to no-op or default
// implementations.
type Deps struct {
	Inventory  Inventory
	Blueprints Blueprints
	UUIDCache  Cache
	PageCache  Cache
	Hooks      *Hooks
	Logger     Logger
	Clock      Clock
	IDGen      IDGenerator
}

// App is the context every model hangs off: configuration, the current
// language and actor, caches and hook dispatch. Create one per request
// or command; it is not meant to be shared between goroutines that
// switch languages or actors.
type App struct {
	opts Options

	inventory  Inventory
	blueprints Blueprints
	uuidCache  Cache
	pageCache  Cache
	hooks      *Hooks
	logger     Logger
	clock      Clock
	idgen      IDGenerator

	language *Language
	user     *User
	system   bool

	site  *Site
	users Users

	lockMu sync.Mutex
	locks  map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewApp creates an App. Missing options get their defaults.
func NewApp(opts Options, deps Deps) (*App, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory is required")
	}
	if deps.Blueprints == nil {
		return nil, errors.New("blueprints are required")
	}
	if opts.Root == "" {
		return nil, errors.New("content root is required")
	}

	if opts.ContentExtension == "" {
		opts.ContentExtension = "txt"
	}
	opts.ContentExtension = strings.TrimPrefix(opts.ContentExtension, ".")
	if opts.SlugMaxLength <= 0 {
		opts.SlugMaxLength = 255
	}
	if opts.HomePage == "" {
		opts.HomePage = "home"
	}
	if opts.ErrorPage == "" {
		opts.ErrorPage = "error"
	}

	a := &App{
		opts:       opts,
		inventory:  deps.Inventory,
		blueprints: deps.Blueprints,
		uuidCache:  deps.UUIDCache,
		pageCache:  deps.PageCache,
		hooks:      deps.Hooks,
		logger:     deps.Logger,
		clock:      deps.Clock,
		idgen:      deps.IDGen,
		locks:      make(map[string]*pathLock),
	}
	if a.uuidCache == nil {
		a.uuidCache = nullCache{}
	}
	if a.pageCache == nil {
		a.pageCache = nullCache{}
	}
	if a.hooks == nil {
		a.hooks = NewHooks()
	}
	if a.logger == nil {
		a.logger = NewNopLogger()
	}
	if a.clock == nil {
		a.clock = RealClock{}
	}
	if a.idgen == nil {
		a.idgen = UUIDGenerator{}
	}

	if len(opts.Languages) > 0 {
		if d := opts.Languages.Default(); d != nil {
			a.language = d
		}
	}

	return a, nil
}

// Options returns the resolved options.
func (a *App) Options() Options { return a.opts }

// Hooks returns the hook dispatcher.
func (a *App) Hooks() *Hooks { return a.hooks }

// Logger returns the logger.
func (a *App) Logger() Logger { return a.logger }

// Clock returns the time source commits are measured with.
func (a *App) Clock() Clock { return a.clock }

// UUIDCache returns the cache backing UUID lookups.
func (a *App) UUIDCache() Cache { return a.uuidCache }

// PageCache returns the page render cache.
func (a *App) PageCache() Cache { return a.pageCache }

// MultiLanguage reports whether more than the implicit default language
// is configured.
func (a *App) MultiLanguage() bool { return len(a.opts.Languages) > 0 }

// Languages returns the configured languages.
func (a *App) Languages() Languages { return a.opts.Languages }

// Language returns the current language, nil in single-language mode.
func (a *App) Language() *Language { return a.language }

// DefaultLanguage returns the default language, nil in single-language mode.
func (a *App) DefaultLanguage() *Language { return a.opts.Languages.Default() }

// SetLanguage switches the current language.
func (a *App) SetLanguage(code string) error {
	lang := a.opts.Languages.Find(code)
	if lang == nil {
		return invalidArgument("language.notFound", map[string]any{"code": code})
	}
	a.language = lang
	return nil
}

// defaultCode is the code content of the default language is stored
// under, "" in single-language mode.
func (a *App) defaultCode() string {
	if d := a.DefaultLanguage(); d != nil {
		return d.Code
	}
	return ""
}

// User returns the current actor, or nil.
func (a *App) User() *User { return a.user }

// SetUser makes u the current actor.
func (a *App) SetUser(u *User) { a.user = u }

// LoginAs makes the user with the given id or email the current actor.
func (a *App) LoginAs(idOrEmail string) error {
	users, err := a.Users()
	if err != nil {
		return err
	}
	u := users.Find(idOrEmail)
	if u == nil {
		return notFound("user.notFound", map[string]any{"name": idOrEmail})
	}
	a.user = u
	return nil
}

// Elevate switches to the system actor, which passes every permission
// check, until the returned function is called.
func (a *App) Elevate() (restore func()) {
	prev := a.system
	a.system = true
	return func() { a.system = prev }
}

// Impersonate runs fn as the system actor. The previous actor is
// restored on every return path.
func (a *App) Impersonate(fn func() error) error {
	restore := a.Elevate()
	defer restore()
	return fn()
}

func (a *App) isSystem() bool { return a.system }

// Site returns the site model.
func (a *App) Site() *Site {
	if a.site == nil {
		a.site = newSite(a)
	}
	return a.site
}

// setSite replaces the site after a site action.
func (a *App) setSite(s *Site) { a.site = s }

// Users returns every user account.
func (a *App) Users() (Users, error) {
	if a.users != nil {
		return a.users, nil
	}
	users, err := loadUsers(a)
	if err != nil {
		return nil, err
	}
	a.users = users
	return users, nil
}

func (a *App) purgeUsers() { a.users = nil }

// Page finds a published page or draft by id. It returns nil, nil when
// there is none.
func (a *App) Page(id string) (*Page, error) {
	return a.Site().FindPageOrDraft(id)
}

// PageOrFail is Page with absence reported as a NotFound error.
func (a *App) PageOrFail(id string) (*Page, error) {
	p, err := a.Page(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("page.notFound", map[string]any{"slug": id})
	}
	return p, nil
}

// Find resolves either a UUID ("page://...") or a page id.
func (a *App) Find(ref string) (Model, error) {
	if strings.Contains(ref, "://") {
		u, err := ParseUUID(a, ref)
		if err != nil {
			return nil, err
		}
		return u.Model()
	}
	p, err := a.Page(ref)
	if err != nil || p == nil {
		return nil, err
	}
	return p, nil
}

// Roles returns every role.
func (a *App) Roles() ([]*Role, error) {
	return a.blueprints.Roles()
}

// Role returns the named role, or nil.
func (a *App) Role(name string) (*Role, error) {
	roles, err := a.Roles()
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (a *App) blueprint(kind Kind, name string) (*Blueprint, error) {
	bp, err := a.blueprints.Blueprint(kind, name)
	if err != nil {
		return nil, fmt.Errorf("loading %s blueprint %q: %w", kind, name, err)
	}
	if bp == nil {
		bp = DefaultBlueprint(name)
	}
	return bp, nil
}

// lockPath serializes read-merge-write cycles on one content file.
func (a *App) lockPath(path string) (unlock func()) {
	a.lockMu.Lock()
	l, ok := a.locks[path]
	if !ok {
		l = &pathLock{}
		a.locks[path] = l
	}
	l.refs++
	a.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, path)
		}
		a.lockMu.Unlock()
	}
}

// nullCache stores nothing.
type nullCache struct{}

func (nullCache) Get(string) (string, bool, error) { return "", false, nil }
func (nullCache) Set(string, string) error         { return nil }
func (nullCache) Remove(string) error              { return nil }
func (nullCache) Flush() error                     { return nil }
