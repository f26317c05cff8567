// Package docstore defines the document store boundary used by the
// registry. It abstracts the persistence technology behind get/put/query
// plus a change stream, and its conditional put is the compare-and-set
// primitive that keeps ride assignment race-free.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals that the referenced document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrPreconditionFailed signals that a conditional put observed a
	// current value that does not satisfy the precondition. The write is
	// not applied.
	ErrPreconditionFailed = errors.New("docstore: precondition failed")
	// ErrUnavailable signals that the store cannot be reached. Callers
	// degrade to cached snapshots where they hold one.
	ErrUnavailable = errors.New("docstore: store unavailable")
)

// Precondition is evaluated against the currently stored value, atomically
// with the write. exists is false when no document is stored under the key,
// in which case current is nil.
type Precondition func(current any, exists bool) bool

// IfAbsent only admits the write when no document exists yet.
func IfAbsent() Precondition {
	return func(_ any, exists bool) bool { return !exists }
}

// Predicate selects documents in a query or watch.
type Predicate func(value any) bool

// Store is an abstract document store with change notification. Values are
// full entity snapshots; implementations must store and emit copies so that
// a committed document is never mutated in place.
type Store interface {
	// Get returns the document stored under collection/id.
	Get(ctx context.Context, collection, id string) (any, error)

	// Put writes value under collection/id. When pre is non-nil it is
	// checked against the current document as a single atomic operation;
	// a failed check returns ErrPreconditionFailed and leaves the
	// document untouched.
	Put(ctx context.Context, collection, id string, value any, pre Precondition) error

	// Delete removes the document. Deleting a missing document returns
	// ErrNotFound.
	Delete(ctx context.Context, collection, id string) error

	// Query returns all documents of the collection matching pred,
	// ordered by less when non-nil. A nil pred matches everything.
	Query(ctx context.Context, collection string, pred Predicate, less func(a, b any) bool) ([]any, error)
}
