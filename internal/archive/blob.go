package archive

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Blob is a finalized archive sitting on scratch storage.
type Blob struct {
	fs      afero.Fs
	path    string
	size    int64
	entries int
}

// Size returns the archive size in bytes.
func (b *Blob) Size() int64 {
	return b.size
}

// Entries returns the number of entries written.
func (b *Blob) Entries() int {
	return b.entries
}

// Path returns the scratch path of the archive.
func (b *Blob) Path() string {
	return b.path
}

// Open returns a reader over the archive bytes.
func (b *Blob) Open() (io.ReadCloser, error) {
	f, err := b.fs.Open(b.path)
	if err != nil {
		return nil, TranslateStorageError(b.path, err)
	}
	return f, nil
}

// Bytes reads the whole archive into memory.
func (b *Blob) Bytes() ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return nil, TranslateStorageError(b.path, err)
	}
	return data, nil
}

// Release removes the scratch entry. Releasing twice is not an error.
func (b *Blob) Release() error {
	if err := b.fs.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return TranslateStorageError(b.path, err)
	}
	return nil
}
