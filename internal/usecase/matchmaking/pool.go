package matchmaking

import (
	"iter"
	"slices"
	"time"
)

// PoolEntry is one waiting connection.
type PoolEntry struct {
	ID       string
	JoinedAt time.Time
	Premium  bool
}

// Pool is the ordered set of searching connections. It is not safe for
// concurrent use; the Service serializes every access.
type Pool struct {
	entries []PoolEntry
	members map[string]struct{}
}

func NewPool() *Pool {
	return &Pool{
		members: make(map[string]struct{}),
	}
}

// Add appends id with the given timestamp. No-op if already present.
func (p *Pool) Add(id string, joinedAt time.Time, premium bool) {
	if _, ok := p.members[id]; ok {
		return
	}
	p.members[id] = struct{}{}
	p.entries = append(p.entries, PoolEntry{ID: id, JoinedAt: joinedAt, Premium: premium})
}

// Remove drops id. No-op if absent.
func (p *Pool) Remove(id string) {
	if _, ok := p.members[id]; !ok {
		return
	}
	delete(p.members, id)
	p.entries = slices.DeleteFunc(p.entries, func(e PoolEntry) bool {
		return e.ID == id
	})
}

func (p *Pool) Contains(id string) bool {
	_, ok := p.members[id]
	return ok
}

func (p *Pool) Len() int {
	return len(p.entries)
}

// Candidates yields a snapshot of the pool without excluding, oldest first.
// With premiumFirst, premium entries come before all others. Mutating the
// pool while ranging over the sequence does not affect it.
func (p *Pool) Candidates(excluding string, premiumFirst bool) iter.Seq[PoolEntry] {
	snapshot := make([]PoolEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.ID != excluding {
			snapshot = append(snapshot, e)
		}
	}
	slices.SortStableFunc(snapshot, func(a, b PoolEntry) int {
		if premiumFirst && a.Premium != b.Premium {
			if a.Premium {
				return -1
			}
			return 1
		}
		return a.JoinedAt.Compare(b.JoinedAt)
	})

	return func(yield func(PoolEntry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}
