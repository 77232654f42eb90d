package archive

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// ErrorCode classifies storage failures.
type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeQuotaExceeded
	CodeNotFound
	CodeSecurity
	CodeInvalidModification
	CodeInvalidState
)

// String returns the user-facing text for the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeQuotaExceeded:
		return "quota exceeded"
	case CodeNotFound:
		return "file not found"
	case CodeSecurity:
		return "security error"
	case CodeInvalidModification:
		return "invalid modification"
	case CodeInvalidState:
		return "invalid state"
	default:
		return "unknown error"
	}
}

// StorageError is a failure of the scratch storage.
type StorageError struct {
	Code ErrorCode
	Path string
	Err  error
}

// Message returns the translated reason.
func (e *StorageError) Message() string {
	return e.Code.String()
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s: %s: %v", e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("storage %s: %s", e.Path, e.Code)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ArchiveError is a failure of the ZIP encoder.
type ArchiveError struct {
	Op   string
	Name string
	Err  error
}

// Message returns a short reason suitable for display.
func (e *ArchiveError) Message() string {
	if e.Name != "" {
		return fmt.Sprintf("could not %s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("could not %s archive: %v", e.Op, e.Err)
}

func (e *ArchiveError) Error() string {
	return "archive: " + e.Message()
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// TranslateStorageError maps a filesystem error onto a StorageError.
// nil stays nil and StorageErrors are returned unchanged.
func TranslateStorageError(path string, err error) error {
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) {
		return se
	}

	return &StorageError{Code: classify(err), Path: path, Err: err}
}

func classify(err error) ErrorCode {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return CodeQuotaExceeded
	case errors.Is(err, os.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, os.ErrPermission):
		return CodeSecurity
	case errors.Is(err, os.ErrExist), errors.Is(err, os.ErrInvalid):
		return CodeInvalidModification
	case errors.Is(err, os.ErrClosed), errors.Is(err, afero.ErrFileClosed):
		return CodeInvalidState
	default:
		return CodeUnknown
	}
}
