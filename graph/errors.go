package graph

import "errors"

var (
	// ErrNodeNotFound is returned when an operation names an absent node.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrStale is returned by tasks whose session was reset before they
	// could apply.
	ErrStale = errors.New("graph: session was reset")

	// ErrInvalidPage is returned for document ids that normalize to nothing.
	ErrInvalidPage = errors.New("graph: invalid page id")
)
