package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit bounds List when no positive limit is given.
const DefaultListLimit = 100

// Repository stores audit entries.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// MemoryRepository keeps the most recent entries in process memory. It is
// used when no database is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// NewMemoryRepository creates a MemoryRepository retaining at most capacity entries.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = DefaultListLimit
	}
	return &MemoryRepository{capacity: capacity}
}

// Record assigns an ID and timestamp and stores the entry.
func (r *MemoryRepository) Record(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *e)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append([]Entry(nil), r.entries[over:]...)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (r *MemoryRepository) List(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, min(limit, len(r.entries)))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
