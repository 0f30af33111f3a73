package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. Not for production use.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Provision(ctx context.Context) error { return nil }

func (s *MemoryStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) FetchExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []Record
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			expired = append(expired, r)
		}
	}
	if offset >= len(expired) {
		return nil, nil
	}
	expired = expired[offset:]
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int, pause time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Record
	var deleted int64
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// Records returns a copy of everything inserted so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
