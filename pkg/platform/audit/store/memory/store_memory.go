package memory

import (
	"context"
	"sort"
	"sync"

	audit "companyapp/pkg/platform/audit"
)

// InMemoryStore keeps records in process memory. It does not take part in
// transactions: appended records stay even if the surrounding commit fails.
// Like every audit.Store it only appends; use a new store for a fresh trail.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, records []audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		s.nextID++
		records[i].ID = s.nextID
		s.records = append(s.records, records[i])
	}
	return nil
}

// Query returns matching records, newest first.
func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter, limit int) ([]audit.Record, error) {
	limit = audit.NormalizeLimit(limit)

	s.mu.RLock()
	matched := make([]audit.Record, 0, len(s.records))
	for _, r := range s.records {
		if filter.Matches(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
