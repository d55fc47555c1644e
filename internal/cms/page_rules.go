package cms

import (
	"slices"
	"strings"
)

// pageRules validates a page action. It never changes anything.
func pageRules(app *App, action string, args Args) error {
	switch action {
	case "create":
		return pageCreateRules(app, args)
	case "update":
		page, err := pageArg(args, "page")
		if err != nil {
			return err
		}
		if !can(page, "update") {
			return permissionDenied("page.update.permission", map[string]any{"slug": page.slug})
		}
		return validateLanguageArg(app, args)
	case "changeSlug":
		return pageChangeSlugRules(app, args)
	case "changeStatus":
		return pageChangeStatusRules(args)
	case "changeTemplate":
		return pageChangeTemplateRules(args)
	case "changeTitle":
		page, err := pageArg(args, "page")
		if err != nil {
			return err
		}
		if !can(page, "changeTitle") {
			return permissionDenied("page.changeTitle.permission", map[string]any{"slug": page.slug})
		}
		if strings.TrimSpace(args.String("title")) == "" {
			return invalidArgument("page.changeTitle.empty", nil)
		}
		return validateLanguageArg(app, args)
	case "changeNum":
		page, err := pageArg(args, "page")
		if err != nil {
			return err
		}
		if !can(page, "sort") {
			return permissionDenied("page.sort.permission", map[string]any{"slug": page.slug})
		}
		return validateNum(page, args.Value("num"))
	case "duplicate":
		return pageDuplicateRules(app, args)
	case "delete":
		return pageDeleteRules(args)
	}
	return logicError("page.action.invalid", map[string]any{"action": action})
}

func pageArg(args Args, name string) (*Page, error) {
	p, ok := args.Value(name).(*Page)
	if !ok || p == nil {
		return nil, invalidArgument("page.invalid", nil)
	}
	return p, nil
}

func pageCreateRules(app *App, args Args) error {
	page, err := pageArg(args, "page")
	if err != nil {
		return err
	}
	if !can(page, "create") {
		return permissionDenied("page.create.permission", map[string]any{"slug": page.slug})
	}
	if err := validateSlug(app, page, page.slug); err != nil {
		return err
	}
	return validateUniqueSlug(page, page.slug)
}

func pageChangeSlugRules(app *App, args Args) error {
	page, err := pageArg(args, "page")
	if err != nil {
		return err
	}
	if page.IsHomeOrErrorPage() || !can(page, "changeSlug") {
		return permissionDenied("page.changeSlug.permission", map[string]any{"slug": page.slug})
	}
	if err := validateLanguageArg(app, args); err != nil {
		return err
	}

	slug := args.String("slug")
	if err := validateSlug(app, page, slug); err != nil {
		return err
	}

	code := args.String("languageCode")
	if app.MultiLanguage() && code != "" && code != app.defaultCode() {
		return nil
	}
	return validateUniqueSlug(page, slug)
}

func pageChangeStatusRules(args Args) error {
	page, err := pageArg(args, "page")
	if err != nil {
		return err
	}

	status := args.String("status")
	switch status {
	case StatusDraft:
		if page.IsHomeOrErrorPage() {
			return permissionDenied("page.changeStatus.toDraft.invalid", map[string]any{"slug": page.slug})
		}
	case StatusListed, StatusUnlisted:
	default:
		return invalidArgument("page.status.invalid", map[string]any{"status": status})
	}

	if !can(page, "changeStatus") {
		return permissionDenied("page.changeStatus.permission", map[string]any{"slug": page.slug})
	}
	if pos, _ := args.Value("position").(*int); status == StatusListed && pos != nil && *pos < 0 {
		return invalidArgument("page.num.invalid", map[string]any{"slug": page.slug})
	}
	return nil
}

func pageChangeTemplateRules(args Args) error {
	page, err := pageArg(args, "page")
	if err != nil {
		return err
	}
	if !can(page, "changeTemplate") {
		return permissionDenied("page.changeTemplate.permission", map[string]any{"slug": page.slug})
	}

	templates, err := allowedTemplates(page)
	if err != nil {
		return err
	}
	if len(templates) <= 1 {
		return logicError("page.changeTemplate.invalid", map[string]any{"slug": page.slug})
	}
	template := args.String("template")
	if !slices.Contains(templates, template) {
		return invalidArgument("page.template.invalid", map[string]any{"template": template})
	}
	return nil
}

func pageDuplicateRules(app *App, args Args) error {
	page, err := pageArg(args, "originalPage")
	if err != nil {
		return err
	}
	if !can(page, "duplicate") {
		return permissionDenied("page.duplicate.permission", map[string]any{"slug": page.slug})
	}
	slug := args.String("input")
	if err := validateSlug(app, page, slug); err != nil {
		return err
	}
	return validateUniqueSlug(page, slug)
}

func pageDeleteRules(args Args) error {
	page, err := pageArg(args, "page")
	if err != nil {
		return err
	}
	if page.IsHomeOrErrorPage() {
		return permissionDenied("page.delete.invalid", map[string]any{"slug": page.slug})
	}
	if !can(page, "delete") {
		return permissionDenied("page.delete.permission", map[string]any{"slug": page.slug})
	}

	force, _ := args.Value("force").(bool)
	if force {
		return nil
	}
	has, err := page.HasChildren()
	if err != nil {
		return err
	}
	if has {
		return logicError("page.delete.hasChildren", map[string]any{"slug": page.slug})
	}
	return nil
}

// validateSlug checks that a slug is usable for page p.
func validateSlug(app *App, p *Page, slug string) error {
	if slug == "" {
		return invalidArgument("page.slug.invalid", nil)
	}
	if limit := app.opts.SlugMaxLength; len(slug) > limit {
		return invalidArgument("page.slug.maxlength", map[string]any{"length": limit})
	}
	if p.parent == nil && slices.Contains(app.opts.ReservedSlugs, slug) {
		return invalidArgument("page.changeSlug.reserved", map[string]any{"slug": slug})
	}
	return nil
}

// validateUniqueSlug rejects a slug any published sibling or draft of p
// already uses.
func validateUniqueSlug(p *Page, slug string) error {
	parent := p.parentModel()

	var children, drafts Pages
	var err error
	switch v := parent.(type) {
	case *Site:
		if children, err = v.Children(); err != nil {
			return err
		}
		if drafts, err = v.Drafts(); err != nil {
			return err
		}
	case *Page:
		if children, err = v.Children(); err != nil {
			return err
		}
		if drafts, err = v.Drafts(); err != nil {
			return err
		}
	}

	if children.Find(slug) != nil {
		return duplicate("page.duplicate", map[string]any{"slug": slug})
	}
	if drafts.Find(slug) != nil {
		return duplicate("page.draft.duplicate", map[string]any{"slug": slug})
	}
	return nil
}

func validateNum(p *Page, v any) error {
	num, _ := v.(*int)
	if p.draft && num != nil {
		return invalidArgument("page.num.invalid", map[string]any{"slug": p.slug})
	}
	if num != nil && *num < 0 {
		return invalidArgument("page.num.invalid", map[string]any{"slug": p.slug})
	}
	return nil
}

// allowedTemplates lists the templates p may switch between: those the
// parent's blueprint allows, or only the current one.
func allowedTemplates(p *Page) ([]string, error) {
	bp, err := p.parentModel().blueprint()
	if err != nil {
		return nil, err
	}
	if len(bp.Templates) == 0 {
		return []string{p.Template()}, nil
	}
	return bp.Templates, nil
}
