package domain

// Handle identifies one underlying network operation.
// A pause/resume cycle produces a new handle for the same source URL.
type Handle struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"`
}

// IsZero reports whether h refers to no operation
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// TransferEvents receives asynchronous callbacks for operations started through a TransferLayer.
// Callbacks for one handle arrive in the order they were generated and end with
// exactly one of OnCompleted, OnFailed or OnCanceled.
type TransferEvents interface {
	OnProgress(h Handle, bytesReceived, bytesExpected int64)
	OnCompleted(h Handle, temporaryPath string)
	OnFailed(h Handle, cause error)
	// OnCanceled follows a Cancel request. token is nil when no partial data was kept.
	OnCanceled(h Handle, token []byte)
}

// TransferLayer runs concurrent, independently cancelable network fetches.
// None of its methods block on network I/O, and none of them invoke
// TransferEvents synchronously.
type TransferLayer interface {
	// Fetch starts downloading sourceURL into a temporary location
	Fetch(sourceURL string, events TransferEvents) (Handle, error)

	// FetchResumed continues a fetch from a token delivered by OnCanceled
	FetchResumed(sourceURL string, token []byte, events TransferEvents) (Handle, error)

	// Cancel requests termination of an operation, keeping partial data when preserveData is set
	Cancel(h Handle, preserveData bool)

	// Discard releases partial data referenced by a token that will never be resumed
	Discard(token []byte)
}

// LocalStore maps source URLs to files in the local library
type LocalStore interface {
	// PathFor returns the deterministic destination for a source URL
	PathFor(sourceURL string) (string, error)

	// Exists reports whether a file is present at path
	Exists(path string) bool

	// Place moves a completed temporary file to the destination of sourceURL, replacing any previous copy
	Place(temporaryPath, sourceURL string) (string, error)
}
