package cms_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"folio/internal/cms"
	"folio/internal/testutil"
)

func lookups(scheme, source string) float64 {
	return promtest.ToFloat64(cms.UUIDLookupsTotal.WithLabelValues(scheme, source))
}

func mustUUID(t *testing.T, m cms.Model) *cms.UUID {
	t.Helper()
	u, err := m.UUID()
	if err != nil {
		t.Fatalf("UUID(): %v", err)
	}
	return u
}

func mustResolve(t *testing.T, app *cms.App, ref string) cms.Model {
	t.Helper()
	u, err := cms.ParseUUID(app, ref)
	if err != nil {
		t.Fatalf("ParseUUID(%q): %v", ref, err)
	}
	m, err := u.Model()
	if err != nil {
		t.Fatalf("Model(%q): %v", ref, err)
	}
	return m
}

func writeAsset(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("asset"), 0o644); err != nil {
		t.Fatalf("writing asset: %v", err)
	}
	return path
}

func TestUUID_CreatedOnDemand(t *testing.T) {
	s := testutil.NewTestSite(t)
	home := s.MustPage(t, "home")

	u := mustUUID(t, home)
	if u.String() != "page://id-1" {
		t.Fatalf("uuid = %q, want page://id-1", u.String())
	}

	c, err := s.MustPage(t, "home").Content()
	if err != nil {
		t.Fatalf("Content(): %v", err)
	}
	if got := c.Get("uuid"); got != "id-1" {
		t.Errorf("stored uuid = %q, want id-1", got)
	}

	again := mustUUID(t, s.MustPage(t, "home"))
	if again.String() != u.String() {
		t.Errorf("second UUID() = %q, want %q", again.String(), u.String())
	}
	if s.IDs.Count() != 1 {
		t.Errorf("ids generated = %d, want 1", s.IDs.Count())
	}
}

func TestUUID_CreatedWithoutActor(t *testing.T) {
	s := testutil.NewTestSite(t)
	if s.App.User() != nil {
		t.Fatal("test site should start without actor")
	}
	if _, err := s.MustPage(t, "error").UUID(); err != nil {
		t.Fatalf("UUID() without actor: %v", err)
	}

	// The elevation must not outlive the write.
	_, err := cms.CreatePage(s.App, cms.PageProps{Slug: "later"})
	if !errors.Is(err, cms.ErrPermission) {
		t.Errorf("CreatePage() after uuid creation error = %v, want permission", err)
	}
}

func TestUUID_ResolveThroughIndexThenCache(t *testing.T) {
	s := testutil.NewTestSite(t)
	ref := mustUUID(t, s.MustPage(t, "error")).String()
	key := "page/id/-1"

	if _, ok := s.UUIDCache.Entries()[key]; ok {
		t.Fatal("creating an id should not populate the cache")
	}

	indexBefore := lookups("page", "index")
	m := mustResolve(t, s.App, ref)
	if m == nil || m.ID() != "error" {
		t.Fatalf("Model() = %v, want error page", m)
	}
	if got := lookups("page", "index") - indexBefore; got != 1 {
		t.Errorf("index lookups = %v, want 1", got)
	}
	if got := s.UUIDCache.Entries()[key]; got != "error" {
		t.Errorf("cache[%q] = %q, want error", key, got)
	}

	cacheBefore := lookups("page", "cache")
	m = mustResolve(t, s.App, ref)
	if m == nil || m.ID() != "error" {
		t.Fatalf("cached Model() = %v, want error page", m)
	}
	if got := lookups("page", "cache") - cacheBefore; got != 1 {
		t.Errorf("cache lookups = %v, want 1", got)
	}
}

func TestUUID_StableUnderRename(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	one := 1
	blog, err := cms.CreatePage(s.App, cms.PageProps{Slug: "a", Num: &one, Content: cms.Data{"title": "Blog"}})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	post, err := blog.CreateChild(cms.PageProps{Slug: "post"})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}

	blogRef := mustUUID(t, blog).String()
	postRef := mustUUID(t, post).String()

	renamed, err := blog.ChangeSlug("b", "")
	if err != nil {
		t.Fatalf("ChangeSlug: %v", err)
	}
	if got := mustUUID(t, renamed).String(); got != blogRef {
		t.Errorf("uuid after rename = %q, want %q", got, blogRef)
	}
	if filepath.Base(renamed.Root()) != "1_b" {
		t.Errorf("root = %q, want .../1_b", renamed.Root())
	}

	if m := mustResolve(t, s.App, blogRef); m == nil || m.ID() != "b" {
		t.Errorf("resolve blog = %v, want b", m)
	}
	if m := mustResolve(t, s.App, postRef); m == nil || m.ID() != "b/post" {
		t.Errorf("resolve post = %v, want b/post", m)
	}
}

func TestUUID_StaleCacheEntry(t *testing.T) {
	tests := []struct {
		name  string
		stale func(t *testing.T, s *testutil.Site)
	}{
		{
			name: "page moved on disk",
			stale: func(t *testing.T, s *testutil.Site) {
				if err := os.Rename(filepath.Join(s.Root, "blog"), filepath.Join(s.Root, "news")); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "entry points at another page",
			stale: func(t *testing.T, s *testutil.Site) {
				if err := s.UUIDCache.Set("page/id/-2", "error"); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "entry points nowhere",
			stale: func(t *testing.T, s *testutil.Site) {
				if err := s.UUIDCache.Set("page/id/-2", "gone/away"); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestSite(t)
			s.LoginAdmin(t)

			if _, err := cms.CreatePage(s.App, cms.PageProps{Slug: "blog"}); err != nil {
				t.Fatalf("CreatePage: %v", err)
			}
			if got := s.UUIDCache.Entries()["page/id/-2"]; got != "blog" {
				t.Fatalf("cache after create = %q, want blog", got)
			}

			tt.stale(t, s)

			staleBefore := lookups("page", "stale")

			m := mustResolve(t, s.App, "page://id-2")
			if m == nil {
				t.Fatal("Model() = nil, want the page carrying the id")
			}
			want := "blog"
			if tt.name == "page moved on disk" {
				want = "news"
			}
			if m.ID() != want {
				t.Errorf("Model().ID() = %q, want %q", m.ID(), want)
			}
			if got := lookups("page", "stale") - staleBefore; got != 1 {
				t.Errorf("stale lookups = %v, want 1", got)
			}
			if got := s.UUIDCache.Entries()["page/id/-2"]; got != want {
				t.Errorf("cache after correction = %q, want %q", got, want)
			}
		})
	}
}

func TestUUID_Miss(t *testing.T) {
	s := testutil.NewTestSite(t)

	missBefore := lookups("page", "miss")
	m := mustResolve(t, s.App, "page://does-not-exist")
	if m != nil {
		t.Fatalf("Model() = %v, want nil", m)
	}
	if got := lookups("page", "miss") - missBefore; got != 1 {
		t.Errorf("miss lookups = %v, want 1", got)
	}
	if len(s.UUIDCache.Entries()) != 0 {
		t.Errorf("cache = %v, want empty", s.UUIDCache.Entries())
	}
}

func TestUUID_DirectSchemes(t *testing.T) {
	s := testutil.NewTestSite(t)
	admin := s.LoginAdmin(t)

	site := mustResolve(t, s.App, "site://")
	if _, ok := site.(*cms.Site); !ok {
		t.Errorf("site:// resolved to %T", site)
	}

	user := mustResolve(t, s.App, "user://"+admin.ID())
	if user == nil || user.ID() != admin.ID() {
		t.Errorf("user:// resolved to %v", user)
	}
	if got := mustUUID(t, admin).String(); got != "user://"+admin.ID() {
		t.Errorf("user uuid = %q", got)
	}

	if m := mustResolve(t, s.App, "user://nobody"); m != nil {
		t.Errorf("unknown user resolved to %v", m)
	}
	if m := mustResolve(t, s.App, "block://abc"); m != nil {
		t.Errorf("block:// resolved to %v", m)
	}
	if m := mustResolve(t, s.App, "struct://abc"); m != nil {
		t.Errorf("struct:// resolved to %v", m)
	}
	if len(s.UUIDCache.Entries()) != 0 {
		t.Errorf("direct schemes touched the cache: %v", s.UUIDCache.Entries())
	}
}

func TestUUID_Files(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	page, err := cms.CreatePage(s.App, cms.PageProps{Slug: "gallery"})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	f, err := cms.CreateFile(s.App, cms.FileProps{Parent: page, Filename: "Cover Photo.JPG", Source: writeAsset(t, "c.jpg")})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if f.Filename() != "cover-photo.jpg" {
		t.Errorf("filename = %q", f.Filename())
	}

	ref := mustUUID(t, f).String()
	if ref != "file://id-3" {
		t.Fatalf("file uuid = %q, want file://id-3", ref)
	}
	if got := s.UUIDCache.Entries()["file/id/-3"]; got != "page://id-2/cover-photo.jpg" {
		t.Errorf("file cache value = %q", got)
	}

	m := mustResolve(t, s.App, ref)
	if m == nil || m.ID() != "gallery/cover-photo.jpg" {
		t.Fatalf("resolve file = %v", m)
	}

	renamed, err := f.ChangeName("front")
	if err != nil {
		t.Fatalf("ChangeName: %v", err)
	}
	if got := mustUUID(t, renamed).String(); got != ref {
		t.Errorf("uuid after rename = %q, want %q", got, ref)
	}
	if m := mustResolve(t, s.App, ref); m == nil || m.ID() != "gallery/front.jpg" {
		t.Errorf("resolve renamed file = %v", m)
	}

	t.Run("site file", func(t *testing.T) {
		sf, err := cms.CreateFile(s.App, cms.FileProps{Filename: "logo.png", Source: writeAsset(t, "logo.png")})
		if err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
		ref := mustUUID(t, sf).String()
		if ref != "file://id-4" {
			t.Fatalf("site file uuid = %q, want file://id-4", ref)
		}
		if err := s.UUIDCache.Flush(); err != nil {
			t.Fatal(err)
		}
		if m := mustResolve(t, s.App, ref); m == nil || m.ID() != "logo.png" {
			t.Fatalf("resolve site file = %v", m)
		}
		if got := s.UUIDCache.Entries()["file/id/-4"]; got != "site:///logo.png" {
			t.Errorf("site file cache value = %q, want site:///logo.png", got)
		}
	})
}

func TestUUID_Clear(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	blog, err := cms.CreatePage(s.App, cms.PageProps{Slug: "blog"})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if _, err := blog.CreateChild(cms.PageProps{Slug: "one"}); err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	if _, err := blog.CreateChild(cms.PageProps{Slug: "two", Draft: true}); err != nil {
		t.Fatalf("CreateChild draft: %v", err)
	}
	if n := len(s.UUIDCache.Entries()); n != 3 {
		t.Fatalf("cache entries = %d, want 3", n)
	}

	u := mustUUID(t, blog)
	if !u.IsCached() {
		t.Fatal("IsCached() = false after create")
	}

	if err := u.Clear(false); err != nil {
		t.Fatalf("Clear(false): %v", err)
	}
	if u.IsCached() {
		t.Error("IsCached() = true after Clear")
	}
	if n := len(s.UUIDCache.Entries()); n != 2 {
		t.Errorf("entries after Clear(false) = %d, want 2", n)
	}

	if err := u.Populate(); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if err := u.Clear(true); err != nil {
		t.Fatalf("Clear(true): %v", err)
	}
	if n := len(s.UUIDCache.Entries()); n != 0 {
		t.Errorf("entries after Clear(true) = %v, want none", s.UUIDCache.Entries())
	}

	c, err := s.MustPage(t, "blog/one").Content()
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("uuid") == "" {
		t.Error("Clear removed the stored id")
	}
}

func TestIndexUUIDs(t *testing.T) {
	s := testutil.NewTestSite(t)
	s.LoginAdmin(t)

	if _, err := cms.CreateFile(s.App, cms.FileProps{Parent: s.MustPage(t, "home"), Filename: "a.pdf", Source: writeAsset(t, "a.pdf")}); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := s.UUIDCache.Flush(); err != nil {
		t.Fatal(err)
	}

	n, err := cms.IndexUUIDs(s.App)
	if err != nil {
		t.Fatalf("IndexUUIDs: %v", err)
	}
	// home, error and the file on home.
	if n != 3 {
		t.Errorf("IndexUUIDs() = %d, want 3", n)
	}
	if got := len(s.UUIDCache.Entries()); got != 3 {
		t.Errorf("cache entries = %v", s.UUIDCache.Entries())
	}

	ids := s.IDs.Count()
	if _, err := cms.IndexUUIDs(s.App); err != nil {
		t.Fatalf("second IndexUUIDs: %v", err)
	}
	if s.IDs.Count() != ids {
		t.Errorf("second run generated %d new ids", s.IDs.Count()-ids)
	}
}

func TestApp_Find(t *testing.T) {
	s := testutil.NewTestSite(t)
	ref := mustUUID(t, s.MustPage(t, "home")).String()

	tests := []struct {
		ref    string
		wantID string
	}{
		{ref, "home"},
		{"home", "home"},
		{"/error/", "error"},
		{"missing", ""},
		{"page://missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			m, err := s.App.Find(tt.ref)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if tt.wantID == "" {
				if m != nil {
					t.Fatalf("Find() = %v, want nil", m)
				}
				return
			}
			if m == nil || m.ID() != tt.wantID {
				t.Fatalf("Find() = %v, want %s", m, tt.wantID)
			}
		})
	}

	if _, err := s.App.Find("bogus://x"); !errors.Is(err, cms.ErrInvalidArgument) {
		t.Errorf("Find(bogus) error = %v, want invalid argument", err)
	}
	if _, err := s.App.PageOrFail("missing"); cms.ErrorKey(err) != "page.notFound" {
		t.Errorf("PageOrFail error = %v, want page.notFound", err)
	}
}
