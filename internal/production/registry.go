package production

import (
	"context"
	"fmt"
	"sync"

	"github.com/comalice/tapemachine/internal/core"
)

// MemoryRegistry keeps completed runs in memory, bounded to the most recent limit records.
type MemoryRegistry struct {
	mu    sync.RWMutex
	limit int
	order []string // oldest first
	recs  map[string]core.Record
}

// NewMemoryRegistry creates a registry keeping at most limit records (limit <= 0 keeps all).
func NewMemoryRegistry(limit int) *MemoryRegistry {
	return &MemoryRegistry{
		limit: limit,
		recs:  make(map[string]core.Record),
	}
}

func (m *MemoryRegistry) Register(ctx context.Context, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.recs[rec.ID]; exists {
		return fmt.Errorf("run %q: %w", rec.ID, core.ErrExists)
	}
	m.recs[rec.ID] = rec
	m.order = append(m.order, rec.ID)

	if m.limit > 0 && len(m.order) > m.limit {
		evict := m.order[0]
		m.order = m.order[1:]
		delete(m.recs, evict)
	}
	return nil
}

func (m *MemoryRegistry) Get(ctx context.Context, runID string) (core.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recs[runID]
	if !ok {
		return core.Record{}, fmt.Errorf("run %q: %w", runID, core.ErrNotFound)
	}
	return rec, nil
}

func (m *MemoryRegistry) List(ctx context.Context) ([]core.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Record, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.recs[m.order[i]])
	}
	return out, nil
}
