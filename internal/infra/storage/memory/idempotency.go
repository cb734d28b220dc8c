package memory

import (
	"context"
	"sync"
	"time"

	"opalestay/internal/app/middleware"
)

// IdempotencyStore stores results in memory. Records older than TTL are forgotten.
type IdempotencyStore struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{TTL: ttl, items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if s.TTL > 0 && s.now().Sub(rec.OccurredAt) > s.TTL {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

// Purge drops expired records and returns how many were removed.
func (s *IdempotencyStore) Purge() int {
	if s.TTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, rec := range s.items {
		if now.Sub(rec.OccurredAt) > s.TTL {
			delete(s.items, k)
			n++
		}
	}
	return n
}

func (s *IdempotencyStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
