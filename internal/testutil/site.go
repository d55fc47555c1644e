package testutil

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"folio/internal/blueprint"
	"folio/internal/cms"
	"folio/internal/inventory"
	"folio/internal/txt"
)

// Site is a temporary content tree with an App over it. The tree starts
// with site content plus an unlisted home and error page, none of which
// carry a uuid yet.
type Site struct {
	App       *cms.App
	Root      string
	Accounts  string
	Hooks     *cms.Hooks
	UUIDCache *MapCache
	PageCache *MapCache
	IDs       *StubIDGenerator
	Clock     *StubClock
}

type siteConfig struct {
	languages  cms.Languages
	blueprints fstest.MapFS
	reserved   []string
	logger     cms.Logger
}

// SiteOption customizes NewTestSite.
type SiteOption func(*siteConfig)

// WithLanguages turns on multi-language mode. The first code is the default.
func WithLanguages(codes ...string) SiteOption {
	return func(c *siteConfig) {
		c.languages = nil
		for i, code := range codes {
			c.languages = append(c.languages, &cms.Language{Code: code, Name: code, Default: i == 0})
		}
	}
}

// WithBlueprint adds a blueprint file, e.g. "pages/article.yml".
func WithBlueprint(path, yaml string) SiteOption {
	return func(c *siteConfig) {
		c.blueprints[path] = &fstest.MapFile{Data: []byte(yaml)}
	}
}

// WithReservedSlugs reserves top-level slugs.
func WithReservedSlugs(slugs ...string) SiteOption {
	return func(c *siteConfig) { c.reserved = slugs }
}

// WithLogger sets the App logger.
func WithLogger(l cms.Logger) SiteOption {
	return func(c *siteConfig) { c.logger = l }
}

// NewTestSite builds a site in t.TempDir(). No actor is logged in.
func NewTestSite(t *testing.T, opts ...SiteOption) *Site {
	t.Helper()

	cfg := &siteConfig{blueprints: fstest.MapFS{}}
	for _, o := range opts {
		o(cfg)
	}

	root := t.TempDir()
	s := &Site{
		Root:      filepath.Join(root, "content"),
		Accounts:  filepath.Join(root, "accounts"),
		Hooks:     cms.NewHooks(),
		UUIDCache: NewMapCache(),
		PageCache: NewMapCache(),
		IDs:       NewStubIDGenerator(),
		Clock:     FixedClock(),
	}

	suffix := ""
	if d := cfg.languages.Default(); d != nil {
		suffix = "." + d.Code
	}
	s.WriteContent(t, filepath.Join(s.Root, "site"+suffix+".txt"), map[string]string{"title": "Test Site"})
	s.WriteContent(t, filepath.Join(s.Root, "home", "default"+suffix+".txt"), map[string]string{"title": "Home"})
	s.WriteContent(t, filepath.Join(s.Root, "error", "default"+suffix+".txt"), map[string]string{"title": "Error"})

	scanner, err := inventory.NewScanner(s.Root, "txt", nil)
	if err != nil {
		t.Fatalf("failed to create scanner: %v", err)
	}

	app, err := cms.NewApp(cms.Options{
		Root:          s.Root,
		AccountsRoot:  s.Accounts,
		Languages:     cfg.languages,
		ReservedSlugs: cfg.reserved,
	}, cms.Deps{
		Inventory:  scanner,
		Blueprints: blueprint.NewLoader(cfg.blueprints),
		UUIDCache:  s.UUIDCache,
		PageCache:  s.PageCache,
		Hooks:      s.Hooks,
		Logger:     cfg.logger,
		Clock:      s.Clock,
		IDGen:      s.IDs,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	s.App = app
	return s
}

// WriteContent writes a content file directly, bypassing the App.
func (s *Site) WriteContent(t *testing.T, path string, data map[string]string) {
	t.Helper()
	if err := txt.Write(path, data); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// LoginAdmin creates the first account, which becomes admin, and makes
// it the current actor.
func (s *Site) LoginAdmin(t *testing.T) *cms.User {
	t.Helper()
	u, err := cms.CreateUser(s.App, cms.UserProps{Email: "admin@example.com", Name: "Admin"})
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	s.App.SetUser(u)
	return u
}

// MustPage returns the page with the given id or fails the test.
func (s *Site) MustPage(t *testing.T, id string) *cms.Page {
	t.Helper()
	p, err := s.App.Page(id)
	if err != nil {
		t.Fatalf("Page(%q): %v", id, err)
	}
	if p == nil {
		t.Fatalf("Page(%q) not found", id)
	}
	return p
}
