package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// chunkSize is the granularity of Add progress callbacks.
const chunkSize = 256 << 10

// ProgressFunc receives (loaded, total) byte counts while an entry is written.
type ProgressFunc func(loaded, total int64)

// Opener allocates scratch space for a new archive.
type Opener interface {
	Open(ctx context.Context, capacity int64) (Writer, error)
}

// Writer accepts named buffers and produces the combined archive.
type Writer interface {
	// Add stores data as an uncompressed entry called name.
	Add(ctx context.Context, name string, data []byte, onProgress ProgressFunc) error

	// Close finalizes the archive and returns it.
	Close() (*Blob, error)

	// Abort abandons the archive and removes its scratch entry.
	Abort() error
}

// Scratch is an Opener writing archives to a single entry of an afero
// filesystem.
type Scratch struct {
	fs    afero.Fs
	dir   string
	name  string
	space SpaceFunc
	now   func() time.Time
}

// ScratchOption configures a Scratch.
type ScratchOption func(*Scratch)

// WithSpaceProbe sets the free-space probe used by Open. A nil probe skips
// the check, which is what in-memory filesystems want.
func WithSpaceProbe(fn SpaceFunc) ScratchOption {
	return func(s *Scratch) {
		s.space = fn
	}
}

// WithClock sets the modification time source of written entries.
func WithClock(now func() time.Time) ScratchOption {
	return func(s *Scratch) {
		s.now = now
	}
}

// NewScratch creates a Scratch storing the archive as dir/name on fs.
func NewScratch(fs afero.Fs, dir, name string, opts ...ScratchOption) *Scratch {
	s := &Scratch{
		fs:   fs,
		dir:  dir,
		name: name,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the scratch entry path.
func (s *Scratch) Path() string {
	return filepath.Join(s.dir, s.name)
}

// Open reserves capacity bytes and creates (or truncates) the scratch entry.
//
// Returns a *StorageError with CodeQuotaExceeded when the volume has less
// free space than requested.
func (s *Scratch) Open(ctx context.Context, capacity int64) (Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path()
	if capacity <= 0 {
		return nil, &StorageError{Code: CodeInvalidModification, Path: path, Err: errors.New("capacity must be positive")}
	}

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return nil, TranslateStorageError(s.dir, err)
	}

	if s.space != nil {
		free, err := s.space(s.dir)
		if err != nil {
			return nil, TranslateStorageError(s.dir, err)
		}
		if free < uint64(capacity) {
			return nil, &StorageError{Code: CodeQuotaExceeded, Path: path}
		}
	}

	file, err := s.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, TranslateStorageError(path, err)
	}

	cw := &countingWriter{w: file}
	return &zipWriter{
		fs:       s.fs,
		path:     path,
		file:     file,
		counter:  cw,
		zw:       zip.NewWriter(cw),
		capacity: capacity,
		now:      s.now,
	}, nil
}

type zipWriter struct {
	mu       sync.Mutex
	fs       afero.Fs
	path     string
	file     afero.File
	counter  *countingWriter
	zw       *zip.Writer
	capacity int64
	entries  int
	closed   bool
	now      func() time.Time
}

func (w *zipWriter) Add(ctx context.Context, name string, data []byte, onProgress ProgressFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &StorageError{Code: CodeInvalidState, Path: w.path, Err: errors.New("archive already closed")}
	}

	// Local header, data descriptor and central directory record all grow
	// the archive beyond the raw entry size.
	need := int64(len(data)) + 2*int64(len(name)) + 128
	if w.counter.n+need > w.capacity {
		return &StorageError{Code: CodeQuotaExceeded, Path: w.path}
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: w.now(),
	}
	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return w.translate(name, "add", err)
	}

	total := int64(len(data))
	if total == 0 {
		report(onProgress, 0, 0)
	}
	for off := 0; off < len(data); off += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := entry.Write(data[off:end]); err != nil {
			return w.translate(name, "add", err)
		}
		report(onProgress, int64(end), total)
	}

	w.entries++
	return nil
}

func (w *zipWriter) Close() (*Blob, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, &StorageError{Code: CodeInvalidState, Path: w.path, Err: errors.New("archive already closed")}
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		_ = w.file.Close()
		return nil, w.translate("", "finalize", err)
	}
	if err := w.file.Close(); err != nil {
		return nil, TranslateStorageError(w.path, err)
	}

	return &Blob{
		fs:      w.fs,
		path:    w.path,
		size:    w.counter.n,
		entries: w.entries,
	}, nil
}

func (w *zipWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	closeErr := w.file.Close()
	if err := w.fs.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return TranslateStorageError(w.path, err)
	}
	return TranslateStorageError(w.path, closeErr)
}

// translate keeps storage failures recognisable and wraps the rest as
// encoder failures.
func (w *zipWriter) translate(name, op string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) || classify(err) != CodeUnknown {
		return TranslateStorageError(w.path, err)
	}
	return &ArchiveError{Op: op, Name: name, Err: err}
}

func report(fn ProgressFunc, loaded, total int64) {
	if fn != nil {
		fn(loaded, total)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
