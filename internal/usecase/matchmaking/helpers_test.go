package matchmaking

import (
	"sync"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	full   bool
}

func (s *recordingSink) Send(ev domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func (s *recordingSink) OfType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, ev := range s.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// stepClock advances one second on every call so pool timestamps are
// strictly increasing in call order.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(premiumPriority bool) *Service {
	return NewService(Options{
		PremiumPriority: premiumPriority,
		Clock:           newStepClock().Now,
	}, zap.NewNop())
}

func anyProfile(interests ...string) domain.Profile {
	return profile(domain.GenderUnknown, domain.PreferenceAny, domain.CountryGlobal, interests...)
}

func profile(self domain.Gender, pref domain.Preference, country string, interests ...string) domain.Profile {
	return domain.Profile{
		DisplayIdentity: self,
		Preference:      pref,
		Country:         country,
		Interests:       interests,
		BlockedIDs:      map[string]struct{}{},
	}
}

func connect(svc *Service, ids ...string) map[string]*recordingSink {
	sinks := make(map[string]*recordingSink, len(ids))
	for _, id := range ids {
		sink := &recordingSink{}
		svc.Connect(id, sink)
		sinks[id] = sink
	}
	return sinks
}
