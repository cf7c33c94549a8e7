package store

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 500

// MemoryStore keeps the most recent regenerations in process. Used when no
// Postgres DSN is configured.
type MemoryStore struct {
	mu   sync.Mutex
	cap  int
	rows []*Regeneration // oldest first
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{cap: capacity}
}

func (m *MemoryStore) Record(_ context.Context, r *Regeneration) error {
	r.prepare()
	cp := *r

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, &cp)
	if over := len(m.rows) - m.cap; over > 0 {
		m.rows = m.rows[over:]
	}
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]*Regeneration, error) {
	return m.collect(clampLimit(limit), func(*Regeneration) bool { return true }), nil
}

func (m *MemoryStore) ForEvent(_ context.Context, eventID int64, limit int) ([]*Regeneration, error) {
	return m.collect(clampLimit(limit), func(r *Regeneration) bool { return r.EventID == eventID }), nil
}

// collect walks newest to oldest.
func (m *MemoryStore) collect(limit int, keep func(*Regeneration) bool) []*Regeneration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*Regeneration{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(m.rows[i]) {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out
}
