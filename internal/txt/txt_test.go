package txt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "empty input",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "single field",
			input: "Title: Hello\n",
			want:  map[string]string{"title": "Hello"},
		},
		{
			name:  "multiple fields",
			input: "Title: Hello\n\n----\n\nText: World\n",
			want:  map[string]string{"title": "Hello", "text": "World"},
		},
		{
			name:  "multiline value",
			input: "Text:\n\nline one\nline two\n\n----\n\nUuid: abc\n",
			want:  map[string]string{"text": "line one\nline two", "uuid": "abc"},
		},
		{
			name:  "keys are normalized",
			input: "Page Title: A\n\n----\n\nMeta-Description: B\n",
			want:  map[string]string{"page_title": "A", "meta_description": "B"},
		},
		{
			name:  "escaped separator is restored",
			input: "Text:\n\nbefore\n\\----\nafter\n",
			want:  map[string]string{"text": "before\n----\nafter"},
		},
		{
			name:  "windows line endings",
			input: "Title: Hello\r\n\r\n----\r\n\r\nText: World\r\n",
			want:  map[string]string{"title": "Hello", "text": "World"},
		},
		{
			name:  "block without colon is skipped",
			input: "garbage\n\n----\n\nTitle: ok\n",
			want:  map[string]string{"title": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Decode() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Decode()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("title first then sorted", func(t *testing.T) {
		got := Encode(map[string]string{"uuid": "abc", "title": "Hello", "date": "2024"})
		want := "Title: Hello\n\n----\n\nDate: 2024\n\n----\n\nUuid: abc\n"
		if got != want {
			t.Errorf("Encode() =\n%q\nwant:\n%q", got, want)
		}
	})

	t.Run("empty values are omitted", func(t *testing.T) {
		got := Encode(map[string]string{"title": "Hello", "uuid": ""})
		if got != "Title: Hello\n" {
			t.Errorf("Encode() = %q", got)
		}
	})

	t.Run("separator lines are escaped", func(t *testing.T) {
		data := map[string]string{"text": "a\n----\nb"}
		got := Decode(Encode(data))
		if got["text"] != data["text"] {
			t.Errorf("text = %q, want %q", got["text"], data["text"])
		}
	})
}

func TestRead(t *testing.T) {
	t.Run("missing file reads as empty", func(t *testing.T) {
		got, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Read() = %v, want empty", got)
		}
	})

	t.Run("reads written file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "default.txt")
		if err := Write(path, map[string]string{"title": "Hi"}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := Read(path)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got["title"] != "Hi" {
			t.Errorf("title = %q, want %q", got["title"], "Hi")
		}
	})
}

func TestWrite_leavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.txt")

	for i := 0; i < 3; i++ {
		if err := Write(path, map[string]string{"title": "x"}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, got %d", len(entries))
	}
}
