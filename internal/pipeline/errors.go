package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/handiism/kona-downloader/internal/archive"
	"github.com/handiism/kona-downloader/internal/discovery"
	"github.com/handiism/kona-downloader/internal/http"
	"github.com/handiism/kona-downloader/internal/model"
)

// ErrRunInProgress is returned when RunAll is called while a run is active.
var ErrRunInProgress = errors.New("a download is already in progress")

// Phase names the step of a run that failed.
type Phase string

const (
	PhaseOpen    Phase = "open"
	PhaseFetch   Phase = "fetch"
	PhaseArchive Phase = "archive"
	PhaseClose   Phase = "close"
)

// RunError is a failure that terminated a run.
type RunError struct {
	// Index is the position of the failing link, -1 for open/close.
	Index int
	Link  model.Link
	Phase Phase
	Err   error
}

func (e *RunError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s (file %d): %v", e.Phase, e.Link, e.Index+1, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var te *http.TransportError
	var se *archive.StorageError
	var ae *archive.ArchiveError

	switch {
	case errors.Is(err, discovery.ErrNoFiles):
		return discovery.ErrNoFiles.Error()
	case errors.Is(err, ErrRunInProgress):
		return ErrRunInProgress.Error()
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &te):
		return te.Message()
	case errors.As(err, &se):
		return se.Message()
	case errors.As(err, &ae):
		return ae.Message()
	default:
		return err.Error()
	}
}
