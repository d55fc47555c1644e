package app

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"folio/internal/blueprint"
	"folio/internal/cache"
	"folio/internal/cms"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/history"
	"folio/internal/inventory"
)

// ErrHistoryDisabled is returned by History when the config does not
// enable the git history recorder.
var ErrHistoryDisabled = errors.New("history is not enabled in the config")

// FolioApp is the application layer between the CLI and cms.App.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings, and releases every backend on Close.
type FolioApp struct {
	cfg       *config.Config
	db        *sql.DB
	uuidCache cms.Cache
	pageCache cms.Cache
	cms       *cms.App
	history   *history.Recorder
	logger    cms.Logger
	op        *Operation
	logFile   *os.File
	restore   func()
}

// NewFolioApp creates a fully wired FolioApp from the given config.
// operation identifies the CLI command being run (e.g. "CreatePage").
// The caller must call Close when done.
func NewFolioApp(cfg *config.Config, operation string) (*FolioApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := NewOperation(operation, "", time.Now())
	l, logFile, err := newLogger(cfg.LogDir, op.ID, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a := &FolioApp{cfg: cfg, op: op, logFile: logFile, logger: &slogAdapter{l: l}}

	if err := a.open(); err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Debug("operation started", "operation", operation)
	return a, nil
}

func (a *FolioApp) open() error {
	cfg := a.cfg

	if cfg.UUIDCache.Type == "sqlite" || cfg.PageCache.Type == "sqlite" {
		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		a.db = db
	}

	var err error
	if a.uuidCache, err = cache.NewCacheFromConfig(cfg.UUIDCache, "uuid", a.db); err != nil {
		return fmt.Errorf("creating uuid cache: %w", err)
	}
	if a.pageCache, err = cache.NewCacheFromConfig(cfg.PageCache, "pages", a.db); err != nil {
		return fmt.Errorf("creating page cache: %w", err)
	}

	if err := os.MkdirAll(cfg.Site.ContentRoot, 0755); err != nil {
		return fmt.Errorf("creating content root: %w", err)
	}
	scanner, err := inventory.NewScanner(cfg.Site.ContentRoot, cfg.Site.ContentExtension, cfg.Inventory.Ignore)
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}

	hooks := cms.NewHooks()
	app, err := cms.NewApp(cms.Options{
		Root:             cfg.Site.ContentRoot,
		AccountsRoot:     cfg.Site.AccountsRoot,
		Languages:        languages(cfg.Languages),
		ContentExtension: cfg.Site.ContentExtension,
		SlugMaxLength:    cfg.Site.SlugMaxLength,
		HomePage:         cfg.Site.HomePage,
		ErrorPage:        cfg.Site.ErrorPage,
		ReservedSlugs:    cfg.Site.ReservedSlugs,
	}, cms.Deps{
		Inventory:  scanner,
		Blueprints: blueprint.NewLoader(os.DirFS(cfg.Site.BlueprintsRoot)),
		UUIDCache:  a.uuidCache,
		PageCache:  a.pageCache,
		Hooks:      hooks,
		Logger:     a.logger,
		Clock:      cms.RealClock{},
		IDGen:      cms.UUIDGenerator{},
	})
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	a.cms = app

	if cfg.History.Enabled {
		rec, err := history.Open(cfg.Site.ContentRoot, history.Options{
			AuthorName:  cfg.History.AuthorName,
			AuthorEmail: cfg.History.AuthorEmail,
			Logger:      a.logger,
			Clock:       app.Clock(),
		})
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		rec.Register(hooks)
		a.history = rec
	}
	return nil
}

func languages(cfgs []config.LanguageConfig) cms.Languages {
	var out cms.Languages
	for _, l := range cfgs {
		name := l.Name
		if name == "" {
			name = l.Code
		}
		out = append(out, &cms.Language{Code: l.Code, Name: name, Default: l.Default})
	}
	if len(out) > 0 && out.Default() == nil {
		out[0].Default = true
	}
	return out
}

// CMS returns the underlying content app.
func (a *FolioApp) CMS() *cms.App { return a.cms }

// Login makes the given user the actor. An empty user runs every
// following operation as the system actor.
func (a *FolioApp) Login(user string) error {
	if user == "" {
		a.restore = a.cms.Elevate()
		return nil
	}
	return a.cms.LoginAs(user)
}

// SetLanguage switches the current language. An empty code keeps the default.
func (a *FolioApp) SetLanguage(code string) error {
	if code == "" {
		return nil
	}
	return a.cms.SetLanguage(code)
}

// PageInput carries the raw flags of page create.
type PageInput struct {
	Parent   string
	Slug     string
	Template string
	Draft    bool
	Num      *int
	Content  map[string]string
}

// CreatePage creates a page below the page with id in.Parent, or at the top
// level when it is empty.
func (a *FolioApp) CreatePage(in PageInput) (*cms.Page, error) {
	a.op.Parameters = strings.Trim(in.Parent+"/"+in.Slug, "/")

	props := cms.PageProps{
		Slug:     in.Slug,
		Template: in.Template,
		Content:  cms.Data(in.Content),
		Draft:    in.Draft,
		Num:      in.Num,
	}
	if in.Parent != "" {
		parent, err := a.cms.PageOrFail(in.Parent)
		if err != nil {
			return nil, a.op.Fail(err)
		}
		props.Parent = parent
	}
	p, err := cms.CreatePage(a.cms, props)
	return p, a.op.Fail(err)
}

// UpdatePage merges values into the page content in the given language.
func (a *FolioApp) UpdatePage(id string, values map[string]string, language string) (*cms.Page, error) {
	return a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		return p.Update(cms.Data(values), language)
	})
}

// ChangePageSlug renames the page.
func (a *FolioApp) ChangePageSlug(id, slug, language string) (*cms.Page, error) {
	return a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		return p.ChangeSlug(slug, language)
	})
}

// ChangePageStatus moves the page between draft, unlisted and listed.
func (a *FolioApp) ChangePageStatus(id, status string, position *int) (*cms.Page, error) {
	return a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		return p.ChangeStatus(status, position)
	})
}

// ChangePageTitle sets the title in the given language.
func (a *FolioApp) ChangePageTitle(id, title, language string) (*cms.Page, error) {
	return a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		return p.ChangeTitle(title, language)
	})
}

// ChangePageTemplate converts the page to another template.
func (a *FolioApp) ChangePageTemplate(id, template string) (*cms.Page, error) {
	return a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		return p.ChangeTemplate(template)
	})
}

// DeletePage removes the page. Pages with children need force.
func (a *FolioApp) DeletePage(id string, force bool) error {
	_, err := a.withPage(id, func(p *cms.Page) (*cms.Page, error) {
		_, err := p.Delete(force)
		return nil, err
	})
	return err
}

func (a *FolioApp) withPage(id string, fn func(*cms.Page) (*cms.Page, error)) (*cms.Page, error) {
	a.op.Parameters = id
	p, err := a.cms.PageOrFail(id)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	out, err := fn(p)
	return out, a.op.Fail(err)
}

// Find resolves a page id or any uuid reference. It returns a NotFound
// error when nothing matches.
func (a *FolioApp) Find(ref string) (cms.Model, error) {
	a.op.Parameters = ref
	m, err := a.cms.Find(ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if m == nil {
		return nil, a.op.Fail(fmt.Errorf("%q: %w", ref, cms.ErrNotFound))
	}
	return m, nil
}

// ListPages returns the children of the page with id parent, or of the
// site when it is empty. drafts selects the drafts instead.
func (a *FolioApp) ListPages(parent string, drafts bool) (cms.Pages, error) {
	var pages cms.Pages
	var err error
	switch {
	case parent == "" && drafts:
		pages, err = a.cms.Site().Drafts()
	case parent == "":
		pages, err = a.cms.Site().Children()
	default:
		var p *cms.Page
		if p, err = a.cms.PageOrFail(parent); err == nil {
			if drafts {
				pages, err = p.Drafts()
			} else {
				pages, err = p.Children()
			}
		}
	}
	return pages, a.op.Fail(err)
}

// IndexUUIDs fills the uuid cache for the whole site.
func (a *FolioApp) IndexUUIDs() (int, error) {
	n, err := cms.IndexUUIDs(a.cms)
	return n, a.op.Fail(err)
}

// ClearUUIDs removes the cache entry of ref, and of its descendants when
// recursive is set. An empty ref flushes the whole uuid cache.
func (a *FolioApp) ClearUUIDs(ref string, recursive bool) error {
	a.op.Parameters = ref
	if ref == "" {
		return a.op.Fail(a.uuidCache.Flush())
	}
	u, err := cms.ParseUUID(a.cms, ref)
	if err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(u.Clear(recursive))
}

// UserInput carries the raw flags of user create.
type UserInput struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Language string
}

// CreateUser creates an account. The first account always becomes admin.
func (a *FolioApp) CreateUser(in UserInput) (*cms.User, error) {
	a.op.Parameters = in.Email
	u, err := cms.CreateUser(a.cms, cms.UserProps{
		ID:       in.ID,
		Email:    in.Email,
		Name:     in.Name,
		Role:     in.Role,
		Language: in.Language,
	})
	return u, a.op.Fail(err)
}

// DeleteUser removes the account with the given id or email.
func (a *FolioApp) DeleteUser(idOrEmail string) error {
	a.op.Parameters = idOrEmail
	users, err := a.cms.Users()
	if err != nil {
		return a.op.Fail(err)
	}
	u := users.Find(idOrEmail)
	if u == nil {
		return a.op.Fail(fmt.Errorf("user %q: %w", idOrEmail, cms.ErrNotFound))
	}
	_, err = u.Delete()
	return a.op.Fail(err)
}

// ListUsers returns every account.
func (a *FolioApp) ListUsers() (cms.Users, error) {
	users, err := a.cms.Users()
	return users, a.op.Fail(err)
}

// History returns the latest recorded content changes.
func (a *FolioApp) History(limit int) ([]history.Entry, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	entries, err := a.history.Log(limit)
	return entries, a.op.Fail(err)
}

// Close logs the operation result and closes all resources.
func (a *FolioApp) Close() error {
	var firstErr error

	if a.restore != nil {
		a.restore()
	}
	if a.logger != nil && a.cms != nil {
		a.logger.Info("operation finished",
			"operation", a.op.Operation,
			"parameters", a.op.Parameters,
			"status", a.op.Status,
			"duration", time.Since(a.op.Started).String())
	}

	for _, c := range []cms.Cache{a.uuidCache, a.pageCache} {
		if c == nil {
			continue
		}
		if err := cache.Close(c); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing cache: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
