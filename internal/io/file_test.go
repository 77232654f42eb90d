package ioutils

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain name", "kona.zip", "kona.zip"},
		{"Slashes", "week 1/2", "week 1_2"},
		{"Colon", "notes: intro", "notes_ intro"},
		{"Trailing dots", "archive...", "archive"},
		{"Multiple spaces", "a   b", "a b"},
		{"Trailing spaces", "name  ", "name"},
		{"Control char", "a\x01b", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.expected {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/out/nested/kona.zip"

	if err := WriteFileAtomic(context.Background(), fs, path, strings.NewReader("first")); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(context.Background(), fs, path, strings.NewReader("second")); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := afero.ReadDir(fs, "/out/nested")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the destination", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestWriteFileAtomic_FailureKeepsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/out/kona.zip"
	if err := afero.WriteFile(fs, path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(context.Background(), fs, path, failingReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}

	data, _ := afero.ReadFile(fs, path)
	if string(data) != "old" {
		t.Errorf("existing file changed to %q", data)
	}
	entries, _ := afero.ReadDir(fs, "/out")
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomic_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteFileAtomic(ctx, afero.NewMemMapFs(), "/out/kona.zip", io.LimitReader(strings.NewReader("data"), 4))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
