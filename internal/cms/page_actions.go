package cms

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"folio/internal/txt"
)

// PageProps describes a page to create.
type PageProps struct {
	// Parent is nil for top-level pages.
	Parent   *Page
	Slug     string
	Template string
	Content  Data

	// Draft creates the page in the parent's drafts. Otherwise the page is
	// published, listed when Num is set.
	Draft bool
	Num   *int
}

// DuplicateOptions controls what Page.Duplicate copies.
type DuplicateOptions struct {
	Children bool
	Files    bool
	Title    string
}

// CreatePage creates a page from props. A uuid is assigned on creation.
func CreatePage(app *App, props PageProps) (*Page, error) {
	template := props.Template
	if template == "" {
		template = "default"
	}

	p := &Page{
		app:      app,
		parent:   props.Parent,
		slug:     Slugify(props.Slug),
		num:      props.Num,
		draft:    props.Draft,
		template: template,
		st:       &contentState{},
	}
	if p.draft {
		p.num = nil
	}
	p.dir = pageDir(p.parentRoot(), p.slug, p.num, p.draft)

	args := Args{
		{Name: "page", Value: p},
		{Name: "input", Value: props},
	}
	return commit(p, "create", args, func(args Args) (*Page, error) {
		page := args.Value("page").(*Page)

		if err := os.MkdirAll(page.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating page directory: %w", err)
		}

		data := Data{}
		if input, ok := args.Value("input").(PageProps); ok {
			data = input.Content.normalize()
		}
		if data["uuid"] == "" {
			data["uuid"] = app.idgen.New()
		}
		if err := saveContent(page, data, app.defaultCode(), true); err != nil {
			return nil, err
		}

		page.purgeParent()
		populateStored(page)
		return page, nil
	})
}

// CreateChild creates a page below p.
func (p *Page) CreateChild(props PageProps) (*Page, error) {
	props.Parent = p
	return CreatePage(p.app, props)
}

// Update merges values into the content of the given language ("" is the
// current one). The uuid field cannot be changed this way.
func (p *Page) Update(values Data, languageCode string) (*Page, error) {
	values = values.normalize()
	delete(values, "uuid")

	args := Args{
		{Name: "page", Value: p},
		{Name: "values", Value: values},
		{Name: "strings", Value: values},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(p, "update", args, func(args Args) (*Page, error) {
		next := args.Value("page").(*Page).clone()
		if err := saveContent(next, args.Value("values").(Data), args.String("languageCode"), false); err != nil {
			return nil, err
		}
		next.purgeParent()
		return next, nil
	})
}

// ChangeSlug renames the page. For a non-default language the slug is
// stored in that translation and the directory stays put. Changing to the
// current slug returns p unchanged without writing anything.
func (p *Page) ChangeSlug(slug, languageCode string) (*Page, error) {
	slug = Slugify(slug)

	code := languageCode
	if code == "" && p.app.MultiLanguage() {
		code = p.app.Language().Code
	}
	translated := p.app.MultiLanguage() && code != p.app.defaultCode()

	if translated {
		if t := p.Translations().Find(code); t != nil && t.Slug() == slug {
			return p, nil
		}
	} else if slug == p.slug {
		return p, nil
	}

	args := Args{
		{Name: "page", Value: p},
		{Name: "slug", Value: slug},
		{Name: "languageCode", Value: code},
	}
	return commit(p, "changeSlug", args, func(args Args) (*Page, error) {
		page := args.Value("page").(*Page)
		slug := args.String("slug")

		if translated {
			next := page.clone()
			if err := saveContent(next, Data{"slug": slug}, args.String("languageCode"), false); err != nil {
				return nil, err
			}
			return next, nil
		}
		return movePage(page, slug, page.num, page.draft)
	})
}

// ChangeStatus moves the page between draft, listed and unlisted. A listed
// page without a position is appended after its listed siblings.
func (p *Page) ChangeStatus(status string, position *int) (*Page, error) {
	args := Args{
		{Name: "page", Value: p},
		{Name: "status", Value: status},
		{Name: "position", Value: position},
	}
	return commit(p, "changeStatus", args, func(args Args) (*Page, error) {
		page := args.Value("page").(*Page)
		pos, _ := args.Value("position").(*int)

		switch args.String("status") {
		case StatusDraft:
			return movePage(page, page.slug, nil, true)
		case StatusUnlisted:
			return movePage(page, page.slug, nil, false)
		default:
			num := pos
			if num == nil {
				num = page.num
			}
			if num == nil {
				next, err := nextNum(page)
				if err != nil {
					return nil, err
				}
				num = &next
			}
			return movePage(page, page.slug, num, false)
		}
	})
}

// ChangeNum changes the sorting number of a published page. A nil number
// makes it unlisted.
func (p *Page) ChangeNum(num *int) (*Page, error) {
	if sameNum(p.num, num) {
		return p, nil
	}
	args := Args{
		{Name: "page", Value: p},
		{Name: "num", Value: num},
	}
	return commit(p, "changeNum", args, func(args Args) (*Page, error) {
		page := args.Value("page").(*Page)
		num, _ := args.Value("num").(*int)
		return movePage(page, page.slug, num, false)
	})
}

// ChangeTemplate switches the page to another template. Every
// translation is renamed and keeps only the fields the new blueprint
// defines.
func (p *Page) ChangeTemplate(template string) (*Page, error) {
	if template == p.Template() {
		return p, nil
	}
	args := Args{
		{Name: "page", Value: p},
		{Name: "template", Value: template},
	}
	return commit(p, "changeTemplate", args, func(args Args) (*Page, error) {
		page := args.Value("page").(*Page)
		next := page.clone()
		next.template = args.String("template")

		bp, err := next.blueprint()
		if err != nil {
			return nil, err
		}

		for _, old := range translationsOf(page).All() {
			if !old.Exists() {
				continue
			}
			data, err := old.Content()
			if err != nil {
				return nil, err
			}
			dst := translationsOf(next).Find(old.Code())
			if err := writeTranslation(p.app, dst.path, keepFields(data, bp)); err != nil {
				return nil, err
			}
			if err := os.Remove(old.path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("removing old content file: %w", err)
			}
		}

		next.st = &contentState{}
		next.purgeParent()
		return next, nil
	})
}

// ChangeTitle sets the title in the given language.
func (p *Page) ChangeTitle(title, languageCode string) (*Page, error) {
	args := Args{
		{Name: "page", Value: p},
		{Name: "title", Value: strings.TrimSpace(title)},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(p, "changeTitle", args, func(args Args) (*Page, error) {
		next := args.Value("page").(*Page).clone()
		if err := saveContent(next, Data{"title": args.String("title")}, args.String("languageCode"), false); err != nil {
			return nil, err
		}
		next.purgeParent()
		return next, nil
	})
}

// Duplicate copies the page into a draft next to it. Every copied model
// gets a new uuid so the copy never shares identity with the original.
func (p *Page) Duplicate(slug string, opts DuplicateOptions) (*Page, error) {
	if slug == "" {
		slug = p.slug + "-copy"
	}
	slug = Slugify(slug)

	args := Args{
		{Name: "originalPage", Value: p},
		{Name: "input", Value: slug},
		{Name: "options", Value: opts},
	}
	return commit(p, "duplicate", args, func(args Args) (*Page, error) {
		original := args.Value("originalPage").(*Page)
		slug := args.String("input")
		opts, _ := args.Value("options").(DuplicateOptions)

		copyPage := &Page{
			app:      original.app,
			parent:   original.parent,
			slug:     slug,
			draft:    true,
			template: original.Template(),
			dir:      pageDir(original.parentRoot(), slug, nil, true),
			st:       &contentState{},
		}

		if err := copyPageDir(original.dir, copyPage.dir, opts, original.app.opts.ContentExtension); err != nil {
			return nil, err
		}
		if err := regenerateUUIDs(copyPage); err != nil {
			return nil, err
		}
		if opts.Title != "" {
			if err := saveContent(copyPage, Data{"title": opts.Title}, "", false); err != nil {
				return nil, err
			}
		}

		copyPage.purgeParent()
		return copyPage, nil
	})
}

// Delete removes the page. With force, children and drafts are deleted
// first; without it a page that has any is refused. Files are always
// deleted before the page directory.
func (p *Page) Delete(force bool) (bool, error) {
	args := Args{
		{Name: "page", Value: p},
		{Name: "force", Value: force},
	}
	return commit(p, "delete", args, func(args Args) (bool, error) {
		page := args.Value("page").(*Page)

		children, err := page.childrenAndDrafts()
		if err != nil {
			return false, err
		}
		for _, child := range children {
			if _, err := child.Delete(true); err != nil {
				return false, err
			}
		}

		files, err := page.Files()
		if err != nil {
			return false, err
		}
		for _, f := range files {
			if _, err := f.Delete(); err != nil {
				return false, err
			}
		}

		if err := clearStored(page); err != nil {
			return false, err
		}
		if err := removeContentFiles(page); err != nil {
			return false, err
		}
		if err := os.RemoveAll(page.dir); err != nil {
			return false, fmt.Errorf("removing page directory: %w", err)
		}

		page.purgeParent()
		return true, nil
	})
}

// movePage moves the page directory to match a new slug, number or draft
// state. Cache entries of the old location are dropped and the page's own
// entry is written again for the new one.
func movePage(page *Page, slug string, num *int, draft bool) (*Page, error) {
	next := page.clone()
	next.slug = slug
	next.num = num
	next.draft = draft
	next.dir = pageDir(page.parentRoot(), slug, num, draft)
	if draft {
		next.num = nil
	}

	if next.dir == page.dir {
		return next, nil
	}

	if err := clearSubtree(page); err != nil {
		return nil, err
	}

	if page.Exists() {
		if err := os.MkdirAll(filepath.Dir(next.dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating parent directory: %w", err)
		}
		if err := os.Rename(page.dir, next.dir); err != nil {
			return nil, fmt.Errorf("moving page %q: %w", page.ID(), err)
		}
	}

	page.purgeParent()
	populateStored(next)
	return next, nil
}

// nextNum returns one more than the highest number among the listed
// siblings of p.
func nextNum(p *Page) (int, error) {
	siblings, err := p.siblings()
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, s := range siblings.Listed() {
		if s.ID() != p.ID() && *s.num > highest {
			highest = *s.num
		}
	}
	return highest + 1, nil
}

func sameNum(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// keepFields drops every field the blueprint does not define. Title,
// slug and uuid always survive. A blueprint without fields keeps all.
func keepFields(data Data, bp *Blueprint) Data {
	if len(bp.Fields) == 0 {
		return data
	}
	out := Data{}
	for k, v := range data {
		switch k {
		case "title", "slug", "uuid":
			out[k] = v
			continue
		}
		if bp.Field(k) != nil {
			out[k] = v
		}
	}
	return out
}

func writeTranslation(app *App, path string, data Data) error {
	unlock := app.lockPath(path)
	defer unlock()
	if err := txt.Write(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// regenerateUUIDs gives p, its files and all its descendants fresh ids.
func regenerateUUIDs(p *Page) error {
	renew := func(m Model) error {
		id, err := storedUUID(m)
		if err != nil || id == "" {
			return err
		}
		return saveContent(m, Data{"uuid": m.App().idgen.New()}, m.App().defaultCode(), false)
	}
	renewFiles := func(fp FilesParent) error {
		files, err := fp.Files()
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := renew(f); err != nil {
				return err
			}
		}
		return nil
	}

	if err := renew(p); err != nil {
		return err
	}
	if err := renewFiles(p); err != nil {
		return err
	}
	for child, err := range p.Index() {
		if err != nil {
			return err
		}
		if err := renew(child); err != nil {
			return err
		}
		if err := renewFiles(child); err != nil {
			return err
		}
	}
	return nil
}

// copyPageDir copies the content files of a page. Subpages and asset
// files with their meta files are only copied when asked for.
func copyPageDir(src, dst string, opts DuplicateOptions, ext string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dst, 0o755)
		}
		return fmt.Errorf("reading page directory: %w", err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating page directory: %w", err)
	}

	var assets []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasSuffix(e.Name(), "."+ext) {
			assets = append(assets, e.Name())
		}
	}
	isMeta := func(name string) bool {
		for _, a := range assets {
			if strings.HasPrefix(name, a+".") {
				return true
			}
		}
		return false
	}

	for _, e := range entries {
		name := e.Name()
		from := filepath.Join(src, name)
		to := filepath.Join(dst, name)

		switch {
		case e.IsDir():
			if !opts.Children {
				continue
			}
			if err := os.CopyFS(to, os.DirFS(from)); err != nil {
				return fmt.Errorf("copying %s: %w", name, err)
			}
		case !strings.HasSuffix(name, "."+ext) || isMeta(name):
			if !opts.Files {
				continue
			}
			if err := copyFile(from, to); err != nil {
				return err
			}
		default:
			if err := copyFile(from, to); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Slugify lowercases s and replaces every run of characters other than
// letters and digits with a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
