package cms_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/cms"
	"folio/internal/testutil"
)

func intPtr(n int) *int { return &n }

func createPage(t *testing.T, s *testutil.Site, props cms.PageProps) *cms.Page {
	t.Helper()
	p, err := cms.CreatePage(s.App, props)
	if err != nil {
		t.Fatalf("CreatePage(%q): %v", props.Slug, err)
	}
	return p
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory %s", path)
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be gone", path)
	}
}

func TestCreatePage(t *testing.T) {
	tests := []struct {
		name    string
		props   cms.PageProps
		wantDir string
		status  string
	}{
		{"unlisted", cms.PageProps{Slug: "About Us"}, "about-us", cms.StatusUnlisted},
		{"listed", cms.PageProps{Slug: "blog", Num: intPtr(3)}, "3_blog", cms.StatusListed},
		{"draft", cms.PageProps{Slug: "wip", Draft: true, Num: intPtr(2)}, filepath.Join("_drafts", "wip"), cms.StatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestSite(t)
			s.LoginAdmin(t)

			p := createPage(t, s, tt.props)
			if p.Status() != tt.status {
				t.Errorf("Status() = %q, want %q", p.Status(), tt.status)
			}
			if p.Root() != filepath.Join(s.Root, tt.wantDir) {
				t.Errorf("Root() = %q, want %q", p.Root(), filepath.Join(s.Root, tt.wantDir))
			}
			if _, err := os.Stat(filepath.Join(p.Root(), "default.txt")); err != nil {
				t.Errorf("content file missing: %v", err)
			}

			found := s.MustPage(t, p.ID())
			if found.Status() != tt.status {
				t.Errorf("reloaded Status() = %q, want %q", found.Status(), tt.status)
			}
			c, err := found.Content()
			if err != nil {
				t.Fatal(err)
			}
			if c.Get("uuid") == "" {
				t.Error("page created without uuid")
			}
		})
	}
}

func TestCreatePage_Template(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	p := createPage(t, s, cms.PageProps{Slug: "post", Template: "article", Content: cms.Data{"Title": "Post"}})
	if _, err := os.Stat(filepath.Join(p.Root(), "article.txt")); err != nil {
		t.Fatalf("article.txt missing: %v", err)
	}
	found := s.MustPage(t, "post")
	if found.Template() != "article" {
		t.Errorf("Template() = %q, want article", found.Template())
	}
	if found.Title() != "Post" {
		t.Errorf("Title() = %q, want Post", found.Title())
	}
}

func TestCreatePage_Rules(t *testing.T) {
	tests := []struct {
		name    string
		opts    []testutil.SiteOption
		setup   func(t *testing.T, s *testutil.Site)
		props   cms.PageProps
		wantKey string
		wantErr error
	}{
		{
			name:    "empty slug",
			props:   cms.PageProps{Slug: "!!!"},
			wantKey: "page.slug.invalid",
			wantErr: cms.ErrInvalidArgument,
		},
		{
			name:    "slug too long",
			props:   cms.PageProps{Slug: strings.Repeat("a", 256)},
			wantKey: "page.slug.maxlength",
			wantErr: cms.ErrInvalidArgument,
		},
		{
			name:    "reserved slug",
			opts:    []testutil.SiteOption{testutil.WithReservedSlugs("api")},
			props:   cms.PageProps{Slug: "API"},
			wantKey: "page.changeSlug.reserved",
			wantErr: cms.ErrInvalidArgument,
		},
		{
			name:    "existing published sibling",
			props:   cms.PageProps{Slug: "home"},
			wantKey: "page.duplicate",
			wantErr: cms.ErrDuplicate,
		},
		{
			name: "existing listed sibling",
			setup: func(t *testing.T, s *testutil.Site) {
				createPage(t, s, cms.PageProps{Slug: "blog", Num: intPtr(1)})
			},
			props:   cms.PageProps{Slug: "blog", Draft: true},
			wantKey: "page.duplicate",
			wantErr: cms.ErrDuplicate,
		},
		{
			name: "existing draft",
			setup: func(t *testing.T, s *testutil.Site) {
				createPage(t, s, cms.PageProps{Slug: "wip", Draft: true})
			},
			props:   cms.PageProps{Slug: "wip"},
			wantKey: "page.draft.duplicate",
			wantErr: cms.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestSite(t, tt.opts...)
			s.LoginAdmin(t)
			if tt.setup != nil {
				tt.setup(t, s)
			}

			_, err := cms.CreatePage(s.App, tt.props)
			if cms.ErrorKey(err) != tt.wantKey {
				t.Fatalf("CreatePage() error = %v, want key %s", err, tt.wantKey)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreatePage() error kind = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("reserved slugs only apply at the top level", func(t *testing.T) {
		s := testutil.NewTestSite(t, testutil.WithReservedSlugs("api"))
		s.LoginAdmin(t)
		if _, err := s.MustPage(t, "home").CreateChild(cms.PageProps{Slug: "api"}); err != nil {
			t.Fatalf("CreateChild(api): %v", err)
		}
	})

	t.Run("same slug under another parent", func(t *testing.T) {
		s := testutil.NewTestSite(t)
		s.LoginAdmin(t)
		if _, err := s.MustPage(t, "home").CreateChild(cms.PageProps{Slug: "error"}); err != nil {
			t.Fatalf("CreateChild(error): %v", err)
		}
	})
}

func TestPage_ChangeSlug(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	blog := createPage(t, s, cms.PageProps{Slug: "blog", Num: intPtr(2)})
	createPage(t, s, cms.PageProps{Slug: "news"})

	t.Run("same slug is a no-op", func(t *testing.T) {
		flushes := s.PageCache.Flushes()
		got, err := blog.ChangeSlug("Blog", "")
		if err != nil {
			t.Fatalf("ChangeSlug: %v", err)
		}
		if got != blog {
			t.Error("ChangeSlug to the same slug returned a new instance")
		}
		if s.PageCache.Flushes() != flushes {
			t.Error("no-op ChangeSlug went through the pipeline")
		}
	})

	t.Run("taken", func(t *testing.T) {
		if _, err := blog.ChangeSlug("news", ""); cms.ErrorKey(err) != "page.duplicate" {
			t.Fatalf("ChangeSlug(news) error = %v, want page.duplicate", err)
		}
	})

	t.Run("home and error page", func(t *testing.T) {
		for _, id := range []string{"home", "error"} {
			_, err := s.MustPage(t, id).ChangeSlug("start", "")
			if cms.ErrorKey(err) != "page.changeSlug.permission" {
				t.Errorf("%s: ChangeSlug error = %v, want page.changeSlug.permission", id, err)
			}
		}
	})

	t.Run("renames keeping the number", func(t *testing.T) {
		got, err := blog.ChangeSlug("journal", "")
		if err != nil {
			t.Fatalf("ChangeSlug: %v", err)
		}
		if got.ID() != "journal" || *got.Num() != 2 {
			t.Errorf("ID/Num = %s/%v", got.ID(), got.Num())
		}
		assertDir(t, filepath.Join(s.Root, "2_journal"))
		assertMissing(t, filepath.Join(s.Root, "2_blog"))
	})
}

func TestPage_ChangeStatus(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	createPage(t, s, cms.PageProps{Slug: "first", Num: intPtr(4)})
	hello := createPage(t, s, cms.PageProps{Slug: "hello"})

	listed, err := hello.ChangeStatus(cms.StatusListed, nil)
	if err != nil {
		t.Fatalf("ChangeStatus(listed): %v", err)
	}
	if listed.Num() == nil || *listed.Num() != 5 {
		t.Fatalf("Num() = %v, want 5", listed.Num())
	}
	assertDir(t, filepath.Join(s.Root, "5_hello"))

	draft, err := listed.ChangeStatus(cms.StatusDraft, nil)
	if err != nil {
		t.Fatalf("ChangeStatus(draft): %v", err)
	}
	if !draft.IsDraft() || draft.Num() != nil || draft.ID() != "hello" {
		t.Errorf("draft = %s num=%v draft=%v", draft.ID(), draft.Num(), draft.IsDraft())
	}
	assertDir(t, filepath.Join(s.Root, "_drafts", "hello"))
	if p, err := s.App.Site().Find("hello"); err != nil || p != nil {
		t.Errorf("Site.Find(draft) = %v, %v; drafts are not published", p, err)
	}
	if s.MustPage(t, "hello").Status() != cms.StatusDraft {
		t.Error("FindPageOrDraft did not return the draft")
	}

	placed, err := draft.ChangeStatus(cms.StatusListed, intPtr(1))
	if err != nil {
		t.Fatalf("ChangeStatus(listed, 1): %v", err)
	}
	if *placed.Num() != 1 {
		t.Errorf("Num() = %d, want 1", *placed.Num())
	}
	assertDir(t, filepath.Join(s.Root, "1_hello"))

	unlisted, err := placed.ChangeStatus(cms.StatusUnlisted, nil)
	if err != nil {
		t.Fatalf("ChangeStatus(unlisted): %v", err)
	}
	if unlisted.Status() != cms.StatusUnlisted {
		t.Errorf("Status() = %q", unlisted.Status())
	}
	assertDir(t, filepath.Join(s.Root, "hello"))

	if _, err := unlisted.ChangeStatus("archived", nil); cms.ErrorKey(err) != "page.status.invalid" {
		t.Errorf("ChangeStatus(archived) error = %v", err)
	}
	if _, err := s.MustPage(t, "error").ChangeStatus(cms.StatusDraft, nil); cms.ErrorKey(err) != "page.changeStatus.toDraft.invalid" {
		t.Errorf("error page to draft: %v", err)
	}
	if _, err := unlisted.ChangeStatus(cms.StatusListed, intPtr(-1)); cms.ErrorKey(err) != "page.num.invalid" {
		t.Errorf("negative position: %v", err)
	}

	t.Run("uuid follows the move", func(t *testing.T) {
		c, err := unlisted.Content()
		if err != nil {
			t.Fatal(err)
		}
		ref := "page://" + c.Get("uuid")
		if m := mustResolve(t, s.App, ref); m == nil || m.(*cms.Page).Root() != filepath.Join(s.Root, "hello") {
			t.Errorf("resolve %s = %v", ref, m)
		}
	})
}

func TestPage_ChangeNum(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	p := createPage(t, s, cms.PageProps{Slug: "blog", Num: intPtr(1)})

	same, err := p.ChangeNum(intPtr(1))
	if err != nil || same != p {
		t.Fatalf("ChangeNum(same) = %v, %v", same, err)
	}

	moved, err := p.ChangeNum(intPtr(7))
	if err != nil {
		t.Fatalf("ChangeNum(7): %v", err)
	}
	assertDir(t, filepath.Join(s.Root, "7_blog"))

	unlisted, err := moved.ChangeNum(nil)
	if err != nil {
		t.Fatalf("ChangeNum(nil): %v", err)
	}
	if unlisted.Status() != cms.StatusUnlisted {
		t.Errorf("Status() = %q", unlisted.Status())
	}

	draft := createPage(t, s, cms.PageProps{Slug: "wip", Draft: true})
	if _, err := draft.ChangeNum(intPtr(2)); cms.ErrorKey(err) != "page.num.invalid" {
		t.Errorf("ChangeNum on draft: %v", err)
	}
}

func TestPage_ChangeTemplate(t *testing.T) {
	opts := []testutil.SiteOption{
		testutil.WithBlueprint("site.yml", "title: Site\ntemplates: [default, article]\n"),
		testutil.WithBlueprint("pages/article.yml", "title: Article\nfields:\n  text: {}\n  publish-date:\n    type: date\n"),
	}

	t.Run("converts content", func(t *testing.T) {
		s := testutil.NewTestSite(t, opts...)
		s.LoginAdmin(t)

		p := createPage(t, s, cms.PageProps{Slug: "post", Content: cms.Data{"title": "Post", "text": "Body", "publish-date": "2024-01-01", "extra": "gone"}})
		uuid := mustUUID(t, p).String()

		got, err := p.ChangeTemplate("article")
		if err != nil {
			t.Fatalf("ChangeTemplate: %v", err)
		}
		if got.Template() != "article" {
			t.Errorf("Template() = %q", got.Template())
		}
		assertMissing(t, filepath.Join(p.Root(), "default.txt"))

		c, err := s.MustPage(t, "post").Content()
		if err != nil {
			t.Fatal(err)
		}
		if c.Get("title") != "Post" || c.Get("text") != "Body" || c.Has("extra") {
			t.Errorf("content = %v", c.Data())
		}
		if c.Get("publish-date") != "2024-01-01" {
			t.Errorf("publish date dropped: %v", c.Data())
		}
		if "page://"+c.Get("uuid") != uuid {
			t.Errorf("uuid = %q, want %q", c.Get("uuid"), uuid)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		s := testutil.NewTestSite(t, opts...)
		s.LoginAdmin(t)
		p := createPage(t, s, cms.PageProps{Slug: "post"})
		if _, err := p.ChangeTemplate("gallery"); cms.ErrorKey(err) != "page.template.invalid" {
			t.Errorf("ChangeTemplate(gallery) error = %v", err)
		}
	})

	t.Run("single template", func(t *testing.T) {
		s := testutil.NewTestSite(t)
		s.LoginAdmin(t)
		p := createPage(t, s, cms.PageProps{Slug: "post"})
		_, err := p.ChangeTemplate("article")
		if cms.ErrorKey(err) != "page.changeTemplate.invalid" || !errors.Is(err, cms.ErrLogic) {
			t.Errorf("ChangeTemplate() error = %v, want page.changeTemplate.invalid", err)
		}
	})
}

func TestPage_ChangeTitle(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)
	p := createPage(t, s, cms.PageProps{Slug: "post", Content: cms.Data{"title": "Post", "text": "Body"}})

	got, err := p.ChangeTitle("  New Title ", "")
	if err != nil {
		t.Fatalf("ChangeTitle: %v", err)
	}
	if got.Title() != "New Title" {
		t.Errorf("Title() = %q", got.Title())
	}
	c, _ := got.Content()
	if c.Get("text") != "Body" {
		t.Errorf("ChangeTitle dropped other fields: %v", c.Data())
	}

	if _, err := got.ChangeTitle(" ", ""); cms.ErrorKey(err) != "page.changeTitle.empty" {
		t.Errorf("empty title error = %v", err)
	}
}

func TestPage_Update(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)
	p := createPage(t, s, cms.PageProps{Slug: "post", Content: cms.Data{"title": "Post", "text": "Body"}})
	before, _ := p.Content()
	id := before.Get("uuid")

	got, err := p.Update(cms.Data{"Text": "New body", "tags": "a, b", "uuid": "hijack"}, "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	c, err := got.Content()
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("title") != "Post" || c.Get("text") != "New body" || c.Get("tags") != "a, b" {
		t.Errorf("content = %v", c.Data())
	}
	if c.Get("uuid") != id {
		t.Errorf("uuid = %q, want %q", c.Get("uuid"), id)
	}

	if _, err := p.Update(cms.Data{"title": "x"}, "fr"); err != nil {
		t.Errorf("language code in single-language mode: %v", err)
	}
}

func TestPage_Duplicate(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	blog := createPage(t, s, cms.PageProps{Slug: "blog", Num: intPtr(1), Content: cms.Data{"title": "Blog"}})
	if _, err := blog.CreateChild(cms.PageProps{Slug: "post"}); err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	if _, err := cms.CreateFile(s.App, cms.FileProps{Parent: blog, Filename: "cover.jpg", Source: writeAsset(t, "cover.jpg")}); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	blog = s.MustPage(t, "blog")
	original := mustUUID(t, blog).String()

	t.Run("shallow", func(t *testing.T) {
		dup, err := blog.Duplicate("", cms.DuplicateOptions{})
		if err != nil {
			t.Fatalf("Duplicate: %v", err)
		}
		if dup.ID() != "blog-copy" || !dup.IsDraft() {
			t.Errorf("duplicate = %s draft=%v", dup.ID(), dup.IsDraft())
		}
		assertDir(t, filepath.Join(s.Root, "_drafts", "blog-copy"))
		assertMissing(t, filepath.Join(dup.Root(), "post"))
		assertMissing(t, filepath.Join(dup.Root(), "cover.jpg"))

		if got := mustUUID(t, dup).String(); got == original {
			t.Error("duplicate shares the original uuid")
		}
		if dup.Title() != "Blog" {
			t.Errorf("Title() = %q", dup.Title())
		}

		if _, err := blog.Duplicate("", cms.DuplicateOptions{}); cms.ErrorKey(err) != "page.draft.duplicate" {
			t.Errorf("second Duplicate error = %v, want page.draft.duplicate", err)
		}
	})

	t.Run("deep", func(t *testing.T) {
		dup, err := blog.Duplicate("archive", cms.DuplicateOptions{Children: true, Files: true, Title: "Archive"})
		if err != nil {
			t.Fatalf("Duplicate: %v", err)
		}
		if dup.Title() != "Archive" {
			t.Errorf("Title() = %q", dup.Title())
		}

		copyPost := s.MustPage(t, "archive/post")
		origPost := s.MustPage(t, "blog/post")
		if mustUUID(t, copyPost).String() == mustUUID(t, origPost).String() {
			t.Error("copied child shares the original uuid")
		}

		files, err := s.MustPage(t, "archive").Files()
		if err != nil || len(files) != 1 {
			t.Fatalf("copied files = %v, %v", files, err)
		}
		origFiles, _ := s.MustPage(t, "blog").Files()
		if mustUUID(t, files[0]).String() == mustUUID(t, origFiles[0]).String() {
			t.Error("copied file shares the original uuid")
		}

		if m := mustResolve(t, s.App, original); m == nil || m.ID() != "blog" {
			t.Errorf("original uuid resolves to %v", m)
		}
	})
}

func TestPage_Delete(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	blog := createPage(t, s, cms.PageProps{Slug: "blog"})
	if _, err := blog.CreateChild(cms.PageProps{Slug: "post", Draft: true}); err != nil {
		t.Fatalf("CreateChild: %v", err)
	}

	_, err := blog.Delete(false)
	if cms.ErrorKey(err) != "page.delete.hasChildren" || !errors.Is(err, cms.ErrLogic) {
		t.Fatalf("Delete(false) error = %v, want page.delete.hasChildren", err)
	}
	assertDir(t, blog.Root())

	for _, id := range []string{"home", "error"} {
		if _, err := s.MustPage(t, id).Delete(true); cms.ErrorKey(err) != "page.delete.invalid" {
			t.Errorf("%s: Delete error = %v, want page.delete.invalid", id, err)
		}
	}

	ok, err := s.MustPage(t, "blog").Delete(true)
	if err != nil || !ok {
		t.Fatalf("Delete(true) = %v, %v", ok, err)
	}
	assertMissing(t, blog.Root())
	if p, _ := s.App.Page("blog"); p != nil {
		t.Error("deleted page still found")
	}
	if n := len(s.UUIDCache.Entries()); n != 0 {
		t.Errorf("uuid cache after delete = %v", s.UUIDCache.Entries())
	}
}

func TestPage_Permissions(t *testing.T) {
	opts := []testutil.SiteOption{
		testutil.WithBlueprint("users/editor.yml", "title: Editor\npermissions:\n  pages:\n    delete: false\n"),
		testutil.WithBlueprint("pages/locked.yml", "title: Locked\noptions:\n  changeSlug: false\n  update:\n    admin: true\n    \"*\": false\n"),
	}
	s := testutil.NewTestSite(t, opts...)
	s.LoginAdmin(t)

	editor, err := cms.CreateUser(s.App, cms.UserProps{Email: "ed@example.com", Role: "editor"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	hello := createPage(t, s, cms.PageProps{Slug: "hello"})
	locked := createPage(t, s, cms.PageProps{Slug: "locked", Template: "locked"})

	if _, err := locked.ChangeSlug("open", ""); cms.ErrorKey(err) != "page.changeSlug.permission" {
		t.Errorf("admin ChangeSlug on locked page: %v", err)
	}
	if _, err := locked.Update(cms.Data{"text": "admin"}, ""); err != nil {
		t.Errorf("admin Update on locked page: %v", err)
	}

	s.App.SetUser(editor)

	if _, err := hello.Delete(false); cms.ErrorKey(err) != "page.delete.permission" {
		t.Errorf("editor Delete error = %v, want page.delete.permission", err)
	}
	if _, err := hello.Update(cms.Data{"text": "ok"}, ""); err != nil {
		t.Errorf("editor Update: %v", err)
	}
	if _, err := locked.Update(cms.Data{"text": "no"}, ""); cms.ErrorKey(err) != "page.update.permission" {
		t.Errorf("editor Update on locked page: %v", err)
	}

	s.App.SetUser(nil)
	_, err = hello.ChangeTitle("Anon", "")
	if cms.ErrorKey(err) != "page.changeTitle.permission" {
		t.Errorf("anonymous ChangeTitle error = %v", err)
	}
	var cmsErr *cms.Error
	if !errors.As(err, &cmsErr) || cmsErr.Status() != 403 {
		t.Errorf("anonymous error status = %v", err)
	}

	err = s.App.Impersonate(func() error {
		_, err := hello.ChangeTitle("System", "")
		return err
	})
	if err != nil {
		t.Errorf("Impersonate ChangeTitle: %v", err)
	}
	if _, err := hello.ChangeTitle("Again", ""); err == nil {
		t.Error("elevation leaked out of Impersonate")
	}
}
