package scanner

import (
	"context"
	"errors"
	"io/fs"
)

// ErrorKind classifies scan failures.
type ErrorKind int

const (
	KindIO ErrorKind = iota
	KindAccessDenied
	KindNotFound
	KindNotDirectory
	KindCancelled
)

var (
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrNotDirectory = errors.New("not a directory")
	// ErrCancelled means the work was superseded or aborted. It is not a failure.
	ErrCancelled = errors.New("scan cancelled")
)

func (k ErrorKind) String() string {
	switch k {
	case KindAccessDenied:
		return "access denied"
	case KindNotFound:
		return "not found"
	case KindNotDirectory:
		return "not a directory"
	case KindCancelled:
		return "cancelled"
	default:
		return "i/o error"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAccessDenied:
		return ErrAccessDenied
	case KindNotFound:
		return ErrNotFound
	case KindNotDirectory:
		return ErrNotDirectory
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// ScanError reports a failed listing. errors.Is matches both the kind
// sentinel (ErrAccessDenied, ...) and the underlying cause.
type ScanError struct {
	Op   string
	Path string
	Kind ErrorKind
	Err  error
}

func (e *ScanError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error { return e.Err }

func (e *ScanError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newScanError(op, path string, err error) error {
	var se *ScanError
	if errors.As(err, &se) {
		return se
	}
	return &ScanError{Op: op, Path: path, Kind: Classify(err), Err: err}
}

func cancelledError(op, path string, cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return &ScanError{Op: op, Path: path, Kind: KindCancelled, Err: cause}
}

// Classify maps an error from a FileSystem call to an ErrorKind.
func Classify(err error) ErrorKind {
	var se *ScanError
	switch {
	case errors.As(err, &se):
		return se.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, fs.ErrPermission), errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotDirectory), isNotDirErr(err):
		return KindNotDirectory
	default:
		return KindIO
	}
}

// IsCancelled reports whether err only means the work was abandoned.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
