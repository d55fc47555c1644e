package cms

import (
	"path/filepath"
	"slices"
)

// draftsDir is the directory drafts of a parent live in.
const draftsDir = "_drafts"

// Pages is an ordered list of sibling pages.
type Pages []*Page

// Find returns the page with the given slug, or nil.
func (ps Pages) Find(slug string) *Page {
	for _, p := range ps {
		if p.slug == slug {
			return p
		}
	}
	return nil
}

// Listed returns the pages with a sorting number.
func (ps Pages) Listed() Pages {
	var out Pages
	for _, p := range ps {
		if p.num != nil {
			out = append(out, p)
		}
	}
	return out
}

func loadChildren(app *App, parent *Page, dir string) (Pages, error) {
	listing, err := app.inventory.Scan(dir)
	if err != nil {
		return nil, err
	}
	return pagesFromListing(app, parent, listing, false), nil
}

func loadDrafts(app *App, parent *Page, dir string) (Pages, error) {
	listing, err := app.inventory.Scan(filepath.Join(dir, draftsDir))
	if err != nil {
		return nil, err
	}
	return pagesFromListing(app, parent, listing, true), nil
}

func pagesFromListing(app *App, parent *Page, listing *Listing, drafts bool) Pages {
	pages := make(Pages, 0, len(listing.Children))
	for _, c := range listing.Children {
		p := &Page{
			app:    app,
			parent: parent,
			slug:   c.Slug,
			num:    c.Num,
			dir:    c.Root,
			draft:  drafts,
			st:     &contentState{},
		}
		if drafts {
			p.num = nil
		}
		pages = append(pages, p)
	}
	return pages
}

func childrenAndDrafts(children, drafts func() (Pages, error)) (Pages, error) {
	c, err := children()
	if err != nil {
		return nil, err
	}
	d, err := drafts()
	if err != nil {
		return nil, err
	}
	return append(slices.Clone(c), d...), nil
}

// walkPages yields the pages of list and their descendants depth first.
// It returns false once the consumer stops.
func walkPages(list func() (Pages, error), yield func(*Page, error) bool) bool {
	pages, err := list()
	if err != nil {
		yield(nil, err)
		return false
	}
	for _, p := range pages {
		if !yield(p, nil) {
			return false
		}
		if !walkPages(p.childrenAndDrafts, yield) {
			return false
		}
	}
	return true
}
