package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/skipsee/skipsee-backend/internal/repository"
)

// usageRepository keeps counters in a bounded, expiring LRU. Used when no
// Redis is configured; counters are per process.
type usageRepository struct {
	mu       sync.Mutex
	counters *expirable.LRU[string, int]
}

func NewUsageRepository(size int, ttl time.Duration) repository.UsageRepository {
	return &usageRepository{
		counters: expirable.NewLRU[string, int](size, nil, ttl),
	}
}

func (r *usageRepository) Get(_ context.Context, kind repository.UsageKind, subject string, day time.Time) (int, error) {
	n, _ := r.counters.Get(repository.UsageKey(kind, subject, day))
	return n, nil
}

func (r *usageRepository) Increment(_ context.Context, kind repository.UsageKind, subject string, day time.Time) (int, error) {
	key := repository.UsageKey(kind, subject, day)

	// Get and Add are individually safe but the pair is not
	r.mu.Lock()
	defer r.mu.Unlock()
	n, _ := r.counters.Get(key)
	n++
	r.counters.Add(key, n)
	return n, nil
}
