package cms

import (
	"fmt"
	"iter"
	"path/filepath"
	"strconv"
)

// Page statuses.
const (
	StatusDraft    = "draft"
	StatusListed   = "listed"
	StatusUnlisted = "unlisted"
)

// Page is a directory in the content tree. Published pages live in
// "{num}_{slug}" (listed) or "{slug}" (unlisted) below their parent,
// drafts in "_drafts/{slug}".
type Page struct {
	app    *App
	parent *Page
	slug   string
	num    *int
	draft  bool
	dir    string
	st     *contentState

	listing  *Listing
	template string
	children Pages
	drafts   Pages
	files    Files
}

func (p *Page) Kind() Kind { return KindPage }
func (p *Page) App() *App  { return p.app }

// ID returns the slash-separated slug path. It does not change with the
// language and is the same for drafts and published pages.
func (p *Page) ID() string {
	if p.parent == nil {
		return p.slug
	}
	return p.parent.ID() + "/" + p.slug
}

func (p *Page) Content() (*Content, error)              { return contentOf(p, "") }
func (p *Page) ContentIn(code string) (*Content, error) { return contentOf(p, code) }
func (p *Page) Translations() *Translations             { return translationsOf(p) }
func (p *Page) UUID() (*UUID, error)                    { return uuidFor(p) }

func (p *Page) contentFileDirectory() string { return p.dir }
func (p *Page) contentFileName() string      { return p.Template() }
func (p *Page) state() *contentState         { return p.st }
func (p *Page) root() string                 { return p.dir }

func (p *Page) blueprint() (*Blueprint, error) {
	return p.app.blueprint(KindPage, p.Template())
}

func (p *Page) validate(action string, args Args) error {
	return pageRules(p.app, action, args)
}

func (p *Page) afterArgs(action string, st ModelState) Args {
	return pageAfterArgs(action, st)
}

// Slug returns the slug in the current language. Translated slugs are
// stored in the "slug" field of non-default translations.
func (p *Page) Slug() string {
	if !p.app.MultiLanguage() || p.app.Language() == p.app.DefaultLanguage() {
		return p.slug
	}
	if t := p.Translations().Find(p.app.Language().Code); t != nil {
		if s := t.Slug(); s != "" {
			return s
		}
	}
	return p.slug
}

// DefaultSlug returns the slug of the directory name.
func (p *Page) DefaultSlug() string { return p.slug }

// Num returns the sorting number, nil for unlisted pages and drafts.
func (p *Page) Num() *int { return p.num }

// Root returns the page directory.
func (p *Page) Root() string { return p.dir }

// Parent returns the parent page, nil for top-level pages.
func (p *Page) Parent() *Page { return p.parent }

// Title returns the title field, falling back to the slug.
func (p *Page) Title() string {
	c, err := p.Content()
	if err == nil && c.Has("title") {
		return c.Get("title")
	}
	return p.slug
}

// Status returns draft, listed or unlisted.
func (p *Page) Status() string {
	switch {
	case p.draft:
		return StatusDraft
	case p.num != nil:
		return StatusListed
	default:
		return StatusUnlisted
	}
}

func (p *Page) IsDraft() bool { return p.draft }

func (p *Page) IsHomePage() bool {
	return p.parent == nil && p.slug == p.app.opts.HomePage
}

func (p *Page) IsErrorPage() bool {
	return p.parent == nil && p.slug == p.app.opts.ErrorPage
}

func (p *Page) IsHomeOrErrorPage() bool {
	return p.IsHomePage() || p.IsErrorPage()
}

// Exists reports whether the page directory is on disk.
func (p *Page) Exists() bool {
	return dirExists(p.dir)
}

func (p *Page) scan() (*Listing, error) {
	if p.listing == nil {
		listing, err := p.app.inventory.Scan(p.dir)
		if err != nil {
			return nil, fmt.Errorf("scanning page %q: %w", p.ID(), err)
		}
		p.listing = listing
	}
	return p.listing, nil
}

// Template returns the template name: the stem of the content file, or
// "default" if the page has none.
func (p *Page) Template() string {
	if p.template != "" {
		return p.template
	}
	listing, err := p.scan()
	if err != nil || listing.Template == "" {
		return "default"
	}
	p.template = listing.Template
	return p.template
}

// Children returns the published subpages.
func (p *Page) Children() (Pages, error) {
	if p.children == nil {
		if _, err := p.scan(); err != nil {
			return nil, err
		}
		p.children = pagesFromListing(p.app, p, p.listing, false)
	}
	return p.children, nil
}

// Drafts returns the drafts below this page.
func (p *Page) Drafts() (Pages, error) {
	if p.drafts == nil {
		pages, err := loadDrafts(p.app, p, p.dir)
		if err != nil {
			return nil, err
		}
		p.drafts = pages
	}
	return p.drafts, nil
}

// Files returns the asset files of the page.
func (p *Page) Files() (Files, error) {
	if p.files == nil {
		files, err := loadFiles(p.app, p)
		if err != nil {
			return nil, err
		}
		p.files = files
	}
	return p.files, nil
}

func (p *Page) childrenAndDrafts() (Pages, error) {
	return childrenAndDrafts(p.Children, p.Drafts)
}

// HasChildren reports whether the page has subpages or drafts.
func (p *Page) HasChildren() (bool, error) {
	all, err := p.childrenAndDrafts()
	if err != nil {
		return false, err
	}
	return len(all) > 0, nil
}

// Index lazily walks every descendant of the page, drafts included.
func (p *Page) Index() iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		walkPages(p.childrenAndDrafts, yield)
	}
}

// Siblings returns the published siblings and drafts, this page included.
func (p *Page) siblings() (Pages, error) {
	if p.parent == nil {
		return p.app.Site().childrenAndDrafts()
	}
	return p.parent.childrenAndDrafts()
}

// parentRoot is the directory published siblings live in.
func (p *Page) parentRoot() string {
	if p.parent == nil {
		return p.app.opts.Root
	}
	return p.parent.dir
}

// parentModel returns the parent page or the site.
func (p *Page) parentModel() FilesParent {
	if p.parent == nil {
		return p.app.Site()
	}
	return p.parent
}

func (p *Page) purge() {
	p.listing = nil
	p.children = nil
	p.drafts = nil
	p.files = nil
}

// purgeParent drops the cached child lists of the parent so the next
// read sees the change on disk.
func (p *Page) purgeParent() {
	p.parentModel().purge()
}

// clone copies p with a fresh content state.
func (p *Page) clone() *Page {
	c := &Page{
		app:      p.app,
		parent:   p.parent,
		slug:     p.slug,
		num:      p.num,
		draft:    p.draft,
		dir:      p.dir,
		template: p.template,
		st:       &contentState{},
	}
	return c
}

// dirname returns the directory name for a slug, status and number.
func dirname(slug string, num *int) string {
	if num == nil {
		return slug
	}
	return strconv.Itoa(*num) + "_" + slug
}

// pageDir returns where a page with the given properties lives.
func pageDir(parentRoot, slug string, num *int, draft bool) string {
	if draft {
		return filepath.Join(parentRoot, draftsDir, slug)
	}
	return filepath.Join(parentRoot, dirname(slug, num))
}

// CacheKey returns the page cache key for the page in a language and
// content type.
func (p *Page) CacheKey(languageCode, contentType string) string {
	if languageCode == "" {
		languageCode = "default"
	}
	if contentType == "" {
		contentType = "html"
	}
	return p.ID() + "." + languageCode + "." + contentType
}

// Render returns the cached output for the page, calling render and
// storing its result on a miss. Drafts are never cached.
func (p *Page) Render(contentType string, render func(*Page) (string, error)) (string, error) {
	code := ""
	if lang := p.app.Language(); lang != nil {
		code = lang.Code
	}
	key := p.CacheKey(code, contentType)

	if !p.draft {
		if v, ok, err := p.app.pageCache.Get(key); err == nil && ok {
			return v, nil
		}
	}

	out, err := render(p)
	if err != nil {
		return "", err
	}
	if !p.draft {
		if err := p.app.pageCache.Set(key, out); err != nil {
			p.app.logger.Warn("page cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}
