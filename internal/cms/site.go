package cms

import (
	"iter"
	"strings"
)

// Site is the root model. Its content lives in {root}/site.{ext} and its
// children are the top-level pages.
type Site struct {
	app *App
	st  *contentState

	children Pages
	drafts   Pages
	files    Files
}

func newSite(app *App) *Site {
	return &Site{app: app, st: &contentState{}}
}

func (s *Site) Kind() Kind   { return KindSite }
func (s *Site) ID() string   { return "" }
func (s *Site) App() *App    { return s.app }
func (s *Site) root() string { return s.app.opts.Root }

func (s *Site) Content() (*Content, error)              { return contentOf(s, "") }
func (s *Site) ContentIn(code string) (*Content, error) { return contentOf(s, code) }
func (s *Site) Translations() *Translations             { return translationsOf(s) }
func (s *Site) UUID() (*UUID, error)                    { return uuidFor(s) }

func (s *Site) contentFileDirectory() string { return s.root() }
func (s *Site) contentFileName() string      { return "site" }
func (s *Site) state() *contentState         { return s.st }

func (s *Site) blueprint() (*Blueprint, error) {
	return s.app.blueprint(KindSite, "site")
}

func (s *Site) validate(action string, args Args) error {
	return siteRules(s.app, action, args)
}

func (s *Site) afterArgs(_ string, st ModelState) Args {
	return defaultAfterArgs("Site", st)
}

// Title returns the site title.
func (s *Site) Title() string { return Title(s) }

// Children returns the published top-level pages.
func (s *Site) Children() (Pages, error) {
	if s.children == nil {
		pages, err := loadChildren(s.app, nil, s.root())
		if err != nil {
			return nil, err
		}
		s.children = pages
	}
	return s.children, nil
}

// Drafts returns the top-level drafts.
func (s *Site) Drafts() (Pages, error) {
	if s.drafts == nil {
		pages, err := loadDrafts(s.app, nil, s.root())
		if err != nil {
			return nil, err
		}
		s.drafts = pages
	}
	return s.drafts, nil
}

// Files returns the files stored next to site.txt.
func (s *Site) Files() (Files, error) {
	if s.files == nil {
		files, err := loadFiles(s.app, s)
		if err != nil {
			return nil, err
		}
		s.files = files
	}
	return s.files, nil
}

func (s *Site) childrenAndDrafts() (Pages, error) {
	return childrenAndDrafts(s.Children, s.Drafts)
}

// Index lazily walks every page of the site depth first, drafts
// included. Each directory is scanned only when the walk reaches it.
func (s *Site) Index() iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		walkPages(s.childrenAndDrafts, yield)
	}
}

// Find returns the published page with the given id, or nil.
func (s *Site) Find(id string) (*Page, error) {
	return s.find(id, false)
}

// FindPageOrDraft returns the page or draft with the given id, or nil.
func (s *Site) FindPageOrDraft(id string) (*Page, error) {
	return s.find(id, true)
}

func (s *Site) find(id string, drafts bool) (*Page, error) {
	id = strings.Trim(id, "/")
	if id == "" {
		return nil, nil
	}

	var page *Page
	list := s.Children
	listDrafts := s.Drafts
	for _, slug := range strings.Split(id, "/") {
		next, err := findIn(list, slug)
		if err != nil {
			return nil, err
		}
		if next == nil && drafts {
			if next, err = findIn(listDrafts, slug); err != nil {
				return nil, err
			}
		}
		if next == nil {
			return nil, nil
		}
		page = next
		list = page.Children
		listDrafts = page.Drafts
	}
	return page, nil
}

func findIn(list func() (Pages, error), slug string) (*Page, error) {
	pages, err := list()
	if err != nil {
		return nil, err
	}
	return pages.Find(slug), nil
}

func (s *Site) purge() {
	s.children = nil
	s.drafts = nil
	s.files = nil
}

func (s *Site) clone() *Site {
	return &Site{app: s.app, st: &contentState{}}
}

// Update merges values into the site content of the given language ("" is
// the current one).
func (s *Site) Update(values Data, languageCode string) (*Site, error) {
	args := Args{
		{Name: "site", Value: s},
		{Name: "values", Value: values},
		{Name: "strings", Value: values},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(s, "update", args, func(args Args) (*Site, error) {
		next := args.Value("site").(*Site).clone()
		if err := saveContent(next, args.Value("values").(Data), args.String("languageCode"), false); err != nil {
			return nil, err
		}
		s.app.setSite(next)
		return next, nil
	})
}

// ChangeTitle sets the site title in the given language.
func (s *Site) ChangeTitle(title, languageCode string) (*Site, error) {
	args := Args{
		{Name: "site", Value: s},
		{Name: "title", Value: strings.TrimSpace(title)},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(s, "changeTitle", args, func(args Args) (*Site, error) {
		next := args.Value("site").(*Site).clone()
		if err := saveContent(next, Data{"title": args.String("title")}, args.String("languageCode"), false); err != nil {
			return nil, err
		}
		s.app.setSite(next)
		return next, nil
	})
}

// CreateChild creates a top-level page.
func (s *Site) CreateChild(props PageProps) (*Page, error) {
	props.Parent = nil
	return CreatePage(s.app, props)
}

func siteRules(app *App, action string, args Args) error {
	site, _ := args.Value("site").(*Site)
	if site == nil {
		return invalidArgument("site.invalid", nil)
	}

	switch action {
	case "update":
		if !can(site, "update") {
			return permissionDenied("site.update.permission", nil)
		}
	case "changeTitle":
		if !can(site, "changeTitle") {
			return permissionDenied("site.changeTitle.permission", nil)
		}
		if strings.TrimSpace(args.String("title")) == "" {
			return invalidArgument("site.changeTitle.empty", nil)
		}
	}
	return validateLanguageArg(app, args)
}

// validateLanguageArg rejects a languageCode argument that names no
// configured language.
func validateLanguageArg(app *App, args Args) error {
	code := args.String("languageCode")
	if code == "" || !app.MultiLanguage() {
		return nil
	}
	if app.Languages().Find(code) == nil {
		return invalidArgument("language.notFound", map[string]any{"code": code})
	}
	return nil
}
