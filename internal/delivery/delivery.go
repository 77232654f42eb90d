// Package delivery hands a finished archive to the user by saving it into
// the output directory.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/handiism/kona-downloader/internal/archive"
	ioutils "github.com/handiism/kona-downloader/internal/io"
	"github.com/handiism/kona-downloader/internal/logging"
)

// DefaultName is the file name used when none is configured.
const DefaultName = "kona.zip"

// ErrNoArchive is returned by Save when given a nil blob.
var ErrNoArchive = errors.New("no archive to save")

// Deliverer saves archives under a fixed output directory.
type Deliverer struct {
	fs   afero.Fs
	dir  string
	name string
}

// New creates a Deliverer writing dir/name on fs. An empty name falls back
// to DefaultName.
func New(fs afero.Fs, dir, name string) *Deliverer {
	name = ioutils.SanitizeFileName(name)
	if name == "" {
		name = DefaultName
	}
	return &Deliverer{fs: fs, dir: dir, name: name}
}

// Path returns the destination of saved archives.
func (d *Deliverer) Path() string {
	return filepath.Join(d.dir, d.name)
}

// Save copies blob to the destination path and releases the scratch entry.
//
// An existing file at the destination is replaced. The blob is released only
// after a successful save, so a failed save can be retried.
func (d *Deliverer) Save(ctx context.Context, blob *archive.Blob) (string, error) {
	if blob == nil {
		return "", ErrNoArchive
	}

	logger := logging.FromContext(logging.WithComponent(ctx, "delivery"))
	path := d.Path()

	r, err := blob.Open()
	if err != nil {
		return "", err
	}
	err = ioutils.WriteFileAtomic(ctx, d.fs, path, r)
	r.Close()
	if err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	if err := blob.Release(); err != nil {
		logger.Warn().Err(err).Str("scratch", blob.Path()).Msg("failed to release scratch archive")
	}

	logger.Info().Str("path", path).Int64("bytes", blob.Size()).Msg("archive saved")
	return path, nil
}
