package mentor

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Reads run concurrently; writes are
// serialized.
type MemoryStore struct {
	mu      sync.RWMutex
	mentors map[string]Mentor
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mentors: make(map[string]Mentor),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Mentor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mentors[NormalizeID(id)]
	if !ok {
		return Mentor{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Mentor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mentor, 0, len(s.mentors))
	for _, m := range s.mentors {
		out = append(out, m)
	}
	return out, nil
}

// Upsert stamps the entry on every write; a re-created mentor gets a fresh
// CreatedAt as well.
func (s *MemoryStore) Upsert(ctx context.Context, m Mentor) (Mentor, error) {
	m.CreatedAt = time.Time{}
	m, err := Prepare(m, s.now())
	if err != nil {
		return Mentor{}, err
	}

	s.mu.Lock()
	s.mentors[m.ID] = m
	s.mu.Unlock()
	return m, nil
}
