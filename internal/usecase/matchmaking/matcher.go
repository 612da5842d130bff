package matchmaking

import (
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
)

// Matcher picks the best partner for a searching connection.
type Matcher struct {
	premiumPriority bool
}

func NewMatcher(premiumPriority bool) *Matcher {
	return &Matcher{premiumPriority: premiumPriority}
}

// Compatible applies the hard filters in both directions: country, gender
// preference and blocklists.
func Compatible(a, b *domain.Connection) bool {
	if a.ID == b.ID {
		return false
	}
	if !a.Profile.SameCountry(&b.Profile) {
		return false
	}
	if !a.Profile.Wants(&b.Profile) || !b.Profile.Wants(&a.Profile) {
		return false
	}
	if a.Profile.Blocks(b.Profile.UserID, b.ID) || b.Profile.Blocks(a.Profile.UserID, a.ID) {
		return false
	}
	return true
}

// Score ranks a compatible candidate by shared interests. Each shared tag is
// worth 2; identical non-empty interest sets get 1 extra, which can never
// lift a candidate over one with more shared tags.
func Score(a, b *domain.Profile) int {
	shared := len(a.CommonInterests(b))
	score := 2 * shared
	if shared > 0 && shared == len(a.Interests) && shared == len(b.Interests) {
		score++
	}
	return score
}

// Match runs one search for id against the pool. On success both sides are
// bound and the pairing is returned; otherwise id is (re)queued with a fresh
// timestamp and nil is returned. The caller holds the Service lock.
func (m *Matcher) Match(reg *Registry, pool *Pool, id string, now time.Time) (*domain.Pairing, error) {
	// re-search: drop any earlier pool entry first
	reg.Dequeue(id)

	requester, ok := reg.Get(id)
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	if requester.IsPaired() {
		return nil, domain.ErrAlreadyPaired
	}

	var (
		best      domain.Connection
		bestScore = -1
	)
	for entry := range pool.Candidates(id, m.premiumPriority) {
		candidate, ok := reg.Get(entry.ID)
		if !ok || candidate.State != domain.StateSearching {
			continue
		}
		if !Compatible(&requester, &candidate) {
			continue
		}
		// strictly greater: on ties the earlier entry in scan order wins
		if score := Score(&requester.Profile, &candidate.Profile); score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if bestScore < 0 {
		return nil, reg.Enqueue(id, now)
	}

	if err := reg.BindPartners(id, best.ID); err != nil {
		if qerr := reg.Enqueue(id, now); qerr != nil {
			return nil, qerr
		}
		return nil, err
	}

	initiator, _ := reg.Get(id)
	responder, _ := reg.Get(best.ID)
	return &domain.Pairing{
		Initiator:       initiator,
		Responder:       responder,
		CommonInterests: initiator.Profile.CommonInterests(&responder.Profile),
	}, nil
}
