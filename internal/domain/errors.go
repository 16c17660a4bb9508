package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes transfer failures
type ErrorKind string

const (
	ErrorKindNone         ErrorKind = ""
	ErrorKindNetwork      ErrorKind = "network"
	ErrorKindFileSystem   ErrorKind = "filesystem"
	ErrorKindInvalidState ErrorKind = "invalid_state"
)

var (
	// ErrEmptyQuery is returned when a search is issued without a term
	ErrEmptyQuery = errors.New("empty search query")

	// ErrNoFilename is returned when a source URL has no usable last path segment
	ErrNoFilename = errors.New("source url has no filename")

	// ErrInvalidToken is returned when a resume token cannot be decoded
	ErrInvalidToken = errors.New("invalid resume token")
)

// TransferError reports why a transfer did not produce a local file
type TransferError struct {
	Kind      ErrorKind
	SourceURL string
	Err       error
}

// NewNetworkError wraps a transport-level failure
func NewNetworkError(sourceURL string, err error) *TransferError {
	return &TransferError{Kind: ErrorKindNetwork, SourceURL: sourceURL, Err: err}
}

// NewFileSystemError wraps a failure to place a file in the local store
func NewFileSystemError(sourceURL string, err error) *TransferError {
	return &TransferError{Kind: ErrorKindFileSystem, SourceURL: sourceURL, Err: err}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failure for %s: %v", e.Kind, e.SourceURL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind, defaulting to network for unknown errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrorKindNetwork
}
