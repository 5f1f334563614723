// Package errors defines the sentinel errors shared by the indexer, the query
// engine and the line protocol, plus a wrapper that attaches a human-readable
// message to a sentinel without losing errors.Is matching.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrCorpusUnavailable covers directory listing and document open
	// failures during the corpus scan.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrExtraction is returned when page text cannot be obtained from a
	// document that was opened successfully.
	ErrExtraction = errors.New("text extraction failed")
	// ErrProtocol marks a malformed or oversized query line.
	ErrProtocol = errors.New("protocol error")
	// ErrNotReady is returned by queries issued before the index is loaded.
	ErrNotReady = errors.New("search engine not ready")
	// ErrAlreadyLoaded is returned when an index is loaded twice.
	ErrAlreadyLoaded = errors.New("index already loaded")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
)

// Process exit codes used by the binaries.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitCorpus      = 2
	ExitExtraction  = 3
	ExitInvalidArgs = 64
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// ExitCode maps a startup error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCorpusUnavailable):
		return ExitCorpus
	case errors.Is(err, ErrExtraction):
		return ExitExtraction
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidArgs
	default:
		return ExitInternal
	}
}
