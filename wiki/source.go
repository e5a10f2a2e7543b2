package wiki

import (
	"context"
	"errors"
	"fmt"
)

// PageRef is one entry of a corpus listing.
type PageRef struct {
	ID   string `json:"id" yaml:"id"`
	Size int    `json:"size" yaml:"size"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Score   int    `json:"score" yaml:"score"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// DocumentSource is the boundary to the remote document store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a missing or empty document is ErrNotFound; transport and
//     protocol faults are *UpstreamError.
//   - Context: blocking calls honor cancellation.
type DocumentSource interface {
	// Authenticate establishes (or refreshes) a session with the store.
	Authenticate(ctx context.Context) error

	// FetchRaw returns the raw markup of id.
	FetchRaw(ctx context.Context, id string) (string, error)

	// ListAll returns every document id in ns ("" lists the whole corpus).
	ListAll(ctx context.Context, ns string) ([]PageRef, error)

	// Search runs the store's full-text search.
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// ErrNotFound reports a document that does not exist or has no content.
var ErrNotFound = errors.New("wiki: document not found")

// UpstreamError is a transport or protocol failure talking to the store.
type UpstreamError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("wiki: %s failed", e.Op)
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is an upstream failure worth retrying.
func IsTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transient
}

// IsUpstream reports whether err came from the document store.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
