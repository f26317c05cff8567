package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/campustransit/dispatch/core/feed"
)

// MemoryStore is a mutex-guarded in-memory Store. Committed writes are
// published on the attached change feed in commit order; publishing happens
// under the store lock so per-document event order matches write order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]any
	feed        *feed.Feed
}

// NewMemoryStore creates an empty store. events may be nil when no change
// notification is needed.
func NewMemoryStore(events *feed.Feed) *MemoryStore {
	return &MemoryStore{
		collections: map[string]map[string]any{},
		feed:        events,
	}
}

// Get returns the document stored under collection/id.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Put writes value, atomically checking pre against the current document.
func (s *MemoryStore) Put(ctx context.Context, collection, id string, value any, pre Precondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = map[string]any{}
		s.collections[collection] = col
	}
	current, exists := col[id]
	if pre != nil && !pre(current, exists) {
		return ErrPreconditionFailed
	}
	col[id] = value
	if s.feed != nil {
		s.feed.Publish(feed.Event{Collection: collection, ID: id, Entity: value})
	}
	return nil
}

// Delete removes the document under collection/id.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if _, ok := col[id]; !ok {
		return ErrNotFound
	}
	delete(col, id)
	return nil
}

// Query returns matching documents, ordered by less when provided.
func (s *MemoryStore) Query(ctx context.Context, collection string, pred Predicate, less func(a, b any) bool) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	res := make([]any, 0, len(s.collections[collection]))
	for _, v := range s.collections[collection] {
		if pred == nil || pred(v) {
			res = append(res, v)
		}
	}
	s.mu.RUnlock()
	if less != nil {
		sort.SliceStable(res, func(i, j int) bool { return less(res[i], res[j]) })
	}
	return res, nil
}

var _ Store = (*MemoryStore)(nil)
