package matchmaking

import (
	"sync"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type Options struct {
	// PremiumPriority scans premium pool entries before all others.
	PremiumPriority bool
	Metrics         *metrics.Metrics
	Clock           func() time.Time
}

// Stats is a point-in-time view of the relay.
type Stats struct {
	Online    int `json:"online"`
	Searching int `json:"searching"`
	Paired    int `json:"paired"`
}

// Service owns the registry and pool behind a single lock and drives the
// per-connection lifecycle: connect, search, skip, relay, disconnect.
// Every mutation of shared state happens with mu held for writing; relay
// lookups only take it for reading. Sinks are written while mu is held so
// an event can never reach a partner that has already been replaced.
type Service struct {
	mu       sync.RWMutex
	pool     *Pool
	registry *Registry
	matcher  *Matcher

	metrics *metrics.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	pool := NewPool()
	return &Service{
		pool:     pool,
		registry: NewRegistry(pool, logger),
		matcher:  NewMatcher(opts.PremiumPriority),
		metrics:  opts.Metrics,
		now:      now,
		logger:   logger,
	}
}

// Connect registers a new idle connection.
func (s *Service) Connect(id string, sink Sink) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Register(id, sink, s.now()) {
		return false
	}
	s.refreshGaugesLocked()
	s.logger.Debug("connection registered", zap.String("conn_id", id))
	return true
}

// Disconnect removes id and everything that references it. A paired
// partner receives exactly one partner-disconnected event.
func (s *Service) Disconnect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partnerID, paired := s.registry.Remove(id)
	if paired {
		s.notifyLocked(partnerID, domain.Event{Type: domain.EventPartnerDisconnected})
	}
	s.refreshGaugesLocked()
	s.logger.Debug("connection removed",
		zap.String("conn_id", id),
		zap.String("former_partner_id", partnerID),
	)
}

func (s *Service) SetIdentity(id string, identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.SetIdentity(id, identity)
}

func (s *Service) Connection(id string) (domain.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Get(id)
}

// StartSearch stores the profile and runs the matcher. It returns the
// pairing when a partner was found right away, nil when id was queued.
// A connection that is still paired leaves its current partner first.
func (s *Service) StartSearch(id string, profile domain.Profile) (*domain.Pairing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.Get(id); !ok {
		return nil, domain.ErrConnectionNotFound
	}
	if partnerID, paired := s.registry.UnbindPartner(id); paired {
		s.notifyLocked(partnerID, domain.Event{Type: domain.EventPartnerDisconnected})
	}
	s.registry.SetProfile(id, profile)

	pairing, err := s.matcher.Match(s.registry, s.pool, id, s.now())
	if err != nil {
		s.logger.Error("match aborted", zap.String("conn_id", id), zap.Error(err))
		s.refreshGaugesLocked()
		return nil, err
	}
	if pairing != nil {
		s.notifyMatchLocked(pairing)
		s.metrics.MatchCreated()
		s.logger.Info("matched",
			zap.String("initiator", pairing.Initiator.ID),
			zap.String("responder", pairing.Responder.ID),
			zap.Strings("common_interests", pairing.CommonInterests),
		)
	}
	s.refreshGaugesLocked()
	return pairing, nil
}

// StopSearch takes a searching connection out of the pool. It has no
// effect on a paired connection.
func (s *Service) StopSearch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := s.registry.Dequeue(id)
	s.refreshGaugesLocked()
	return stopped
}

// Skip ends id's current pairing, notifies the former partner and leaves
// both sides idle. Returns the former partner id.
func (s *Service) Skip(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	partnerID, paired := s.registry.UnbindPartner(id)
	if paired {
		s.notifyLocked(partnerID, domain.Event{Type: domain.EventPartnerDisconnected})
	}
	s.refreshGaugesLocked()
	return partnerID, paired
}

// BroadcastOnlineCount sends the current connection count to everyone.
// Best effort: sends happen after the lock is released.
func (s *Service) BroadcastOnlineCount() {
	s.mu.RLock()
	count := s.registry.Len()
	sinks := make([]Sink, 0, count)
	s.registry.Each(func(_ domain.Connection, sink Sink) bool {
		sinks = append(sinks, sink)
		return true
	})
	s.mu.RUnlock()

	ev := domain.Event{Type: domain.EventOnlineCount, Payload: count}
	for _, sink := range sinks {
		sink.Send(ev)
	}
}

// Notify sends ev to id if it is still registered.
func (s *Service) Notify(id string, ev domain.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifyLocked(id, ev)
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	searching, pairs := s.registry.Counts()
	return Stats{
		Online:    s.registry.Len(),
		Searching: searching,
		Paired:    pairs,
	}
}

func (s *Service) notifyMatchLocked(p *domain.Pairing) {
	s.notifyLocked(p.Initiator.ID, domain.Event{
		Type:    domain.EventMatchFound,
		Payload: matchFoundPayload(&p.Responder, true, p.CommonInterests),
	})
	s.notifyLocked(p.Responder.ID, domain.Event{
		Type:    domain.EventMatchFound,
		Payload: matchFoundPayload(&p.Initiator, false, p.CommonInterests),
	})
}

func matchFoundPayload(partner *domain.Connection, initiator bool, common []string) domain.MatchFoundPayload {
	return domain.MatchFoundPayload{
		Initiator:       initiator,
		PartnerID:       partner.ID,
		PartnerCountry:  partner.Profile.Country,
		PartnerGender:   partner.Profile.DisplayIdentity,
		PartnerPremium:  partner.Profile.IsPremium,
		PartnerName:     partner.Identity.DisplayName,
		PartnerFlag:     partner.Identity.Flag,
		CommonInterests: common,
	}
}

func (s *Service) notifyLocked(id string, ev domain.Event) bool {
	sink, ok := s.registry.Sink(id)
	if !ok || sink == nil {
		return false
	}
	if !sink.Send(ev) {
		s.logger.Warn("event not queued",
			zap.String("conn_id", id),
			zap.String("event", ev.WireName()),
		)
		return false
	}
	return true
}

func (s *Service) refreshGaugesLocked() {
	if s.metrics == nil {
		return
	}
	searching, pairs := s.registry.Counts()
	s.metrics.SetCounts(s.registry.Len(), searching, pairs)
}
