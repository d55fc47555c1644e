package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "site.txt"), "Title: Site\n")
	writeFile(t, filepath.Join(root, "2_blog", "blog.txt"), "Title: Blog\n")
	writeFile(t, filepath.Join(root, "10_contact", "default.txt"), "")
	writeFile(t, filepath.Join(root, "1_home", "home.txt"), "")
	writeFile(t, filepath.Join(root, "about", "article.en.txt"), "")
	writeFile(t, filepath.Join(root, "about", "article.de.txt"), "")
	writeFile(t, filepath.Join(root, "about", "team.jpg"), "jpeg")
	writeFile(t, filepath.Join(root, "about", "team.jpg.en.txt"), "Caption: Team\n")
	writeFile(t, filepath.Join(root, "about", "aaa.pdf"), "pdf")
	writeFile(t, filepath.Join(root, "about", "aaa.pdf.txt"), "")
	writeFile(t, filepath.Join(root, "about", ".DS_Store"), "")
	writeFile(t, filepath.Join(root, "about", "cover.psd"), "")
	writeFile(t, filepath.Join(root, "_drafts", "wip", "default.txt"), "")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "")
	writeFile(t, filepath.Join(root, IgnoreFile), "*.psd\n")

	s, err := NewScanner(root, "txt", nil)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	t.Run("children are ordered and parsed", func(t *testing.T) {
		listing, err := s.Scan(root)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		var got []string
		for _, c := range listing.Children {
			got = append(got, c.Slug)
		}
		want := []string{"home", "blog", "contact", "about"}
		if len(got) != len(want) {
			t.Fatalf("children = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("children = %v, want %v", got, want)
			}
		}
		if n := listing.Children[2].Num; n == nil || *n != 10 {
			t.Errorf("contact num = %v, want 10", n)
		}
		if listing.Children[3].Num != nil {
			t.Error("about should be unlisted")
		}
		if listing.Template != "site" {
			t.Errorf("template = %q, want site", listing.Template)
		}
		if len(listing.Files) != 0 {
			t.Errorf("expected no files in root, got %v", listing.Files)
		}
	})

	t.Run("files and template exclude meta files", func(t *testing.T) {
		listing, err := s.Scan(filepath.Join(root, "about"))
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if listing.Template != "article" {
			t.Errorf("template = %q, want article", listing.Template)
		}
		if len(listing.Files) != 2 {
			t.Fatalf("files = %v, want aaa.pdf and team.jpg", listing.Files)
		}
		if listing.Files[0].Filename != "aaa.pdf" || listing.Files[1].Filename != "team.jpg" {
			t.Errorf("files = %v", listing.Files)
		}
		if listing.Files[1].Root != filepath.Join(root, "about", "team.jpg") {
			t.Errorf("root = %q", listing.Files[1].Root)
		}
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		listing, err := s.Scan(filepath.Join(root, "nope"))
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(listing.Children) != 0 || len(listing.Files) != 0 || listing.Template != "" {
			t.Errorf("expected empty listing, got %+v", listing)
		}
	})
}

func TestParseDirname(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		num      int
		numbered bool
	}{
		{"1_home", "home", 1, true},
		{"20240101_launch", "launch", 20240101, true},
		{"about", "about", 0, false},
		{"my_page", "my_page", 0, false},
		{"1_", "1_", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			slug, num := parseDirname(tt.name)
			if slug != tt.slug {
				t.Errorf("slug = %q, want %q", slug, tt.slug)
			}
			if (num != nil) != tt.numbered {
				t.Fatalf("num = %v, numbered = %v", num, tt.numbered)
			}
			if num != nil && *num != tt.num {
				t.Errorf("num = %d, want %d", *num, tt.num)
			}
		})
	}
}
