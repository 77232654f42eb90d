package model

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestNewLink_Resolve(t *testing.T) {
	base := mustParse(t, "https://example.com/course/page.html")

	tests := []struct {
		name    string
		href    string
		want    string
		wantErr bool
	}{
		{"relative", "files/notes.pdf", "https://example.com/course/files/notes.pdf", false},
		{"root relative", "/download/1/slides.pptx", "https://example.com/download/1/slides.pptx", false},
		{"absolute", "https://cdn.example.org/a.zip", "https://cdn.example.org/a.zip", false},
		{"surrounding spaces", "  files/x.txt ", "https://example.com/course/files/x.txt", false},
		{"invalid", "http://[::1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := NewLink(3, tt.href, base)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.href)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if link.String() != tt.want {
				t.Errorf("URL = %q, want %q", link.String(), tt.want)
			}
			if link.ID != 3 {
				t.Errorf("ID = %d, want 3", link.ID)
			}
		})
	}
}

func TestNewLink_RelativeWithoutBase(t *testing.T) {
	if _, err := NewLink(0, "files/notes.pdf", nil); err == nil {
		t.Error("expected error for relative link without base")
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a/b/report.pdf", "report.pdf"},
		{"https://example.com/report.pdf?version=2", "report.pdf"},
		{"https://example.com/a/my%20file.pdf", "my%20file.pdf"},
		{"https://example.com/a/", ""},
		{"https://example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := FileNameFromURL(mustParse(t, tt.raw)); got != tt.want {
				t.Errorf("FileNameFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewFetchResult_Name(t *testing.T) {
	link, err := NewLink(1, "https://example.com/dir/", nil)
	if err != nil {
		t.Fatal(err)
	}
	res := NewFetchResult(link, []byte("abc"))
	if res.Name != "file-2" {
		t.Errorf("Name = %q, want %q", res.Name, "file-2")
	}
	if res.Size() != 3 {
		t.Errorf("Size = %d, want 3", res.Size())
	}
}

func TestFetchPercent(t *testing.T) {
	tests := []struct {
		loaded, total int64
		want          int
		ok            bool
	}{
		{0, 100, 0, true},
		{1, 3, 16, true},
		{50, 100, 25, true},
		{100, 100, 50, true},
		{150, 100, 50, true},
		{10, 0, 0, false},
		{10, -1, 0, false},
	}

	for _, tt := range tests {
		got, ok := FetchPercent(tt.loaded, tt.total)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FetchPercent(%d, %d) = (%d, %v), want (%d, %v)", tt.loaded, tt.total, got, ok, tt.want, tt.ok)
		}
	}
}

func TestArchivePercent(t *testing.T) {
	tests := []struct {
		loaded, total int64
		want          int
	}{
		{0, 100, 50},
		{1, 3, 67},
		{50, 100, 75},
		{100, 100, 100},
		{0, 0, 100},
	}

	for _, tt := range tests {
		if got := ArchivePercent(tt.loaded, tt.total); got != tt.want {
			t.Errorf("ArchivePercent(%d, %d) = %d, want %d", tt.loaded, tt.total, got, tt.want)
		}
	}
}

func TestEntry_Label(t *testing.T) {
	if got := (Entry{Percent: 42}).Label(); got != "42%" {
		t.Errorf("Label = %q, want 42%%", got)
	}
	if got := (Entry{Percent: 100, Done: true}).Label(); got != Checkmark {
		t.Errorf("Label = %q, want %q", got, Checkmark)
	}
}
