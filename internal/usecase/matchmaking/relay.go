package matchmaking

import (
	"encoding/json"
	"fmt"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"go.uber.org/zap"
)

// Relay forwards an opaque payload from fromID to its current partner under
// the same event name. The payload is never parsed. Events from a sender
// with no partner are dropped.
func (s *Service) Relay(fromID string, eventType domain.EventType, name string, payload json.RawMessage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, ok := s.registry.Get(fromID)
	if !ok {
		s.drop(fromID, name, "unknown_sender")
		return fmt.Errorf("relay from %s: %w", fromID, domain.ErrConnectionNotFound)
	}
	if !from.IsPaired() {
		s.drop(fromID, name, "not_paired")
		return fmt.Errorf("relay from %s: %w", fromID, domain.ErrNotPaired)
	}

	partner, ok := s.registry.Get(from.PartnerID)
	if !ok || partner.PartnerID != fromID {
		s.logger.Error("relay found asymmetric partner link",
			zap.String("conn_id", fromID),
			zap.String("partner_id", from.PartnerID),
		)
		s.drop(fromID, name, "stale_partner")
		return fmt.Errorf("relay from %s: %w", fromID, domain.ErrNotPaired)
	}

	sink, _ := s.registry.Sink(partner.ID)
	ev := domain.Event{Type: eventType, Name: name, Payload: payload}
	if sink == nil || !sink.Send(ev) {
		s.drop(fromID, name, "send_queue_full")
		return fmt.Errorf("relay from %s to %s: send queue full", fromID, partner.ID)
	}
	s.metrics.EventRelayed(string(eventType))
	return nil
}

func (s *Service) drop(fromID, name, reason string) {
	s.metrics.EventDropped(reason)
	s.logger.Debug("relay event dropped",
		zap.String("conn_id", fromID),
		zap.String("event", name),
		zap.String("reason", reason),
	)
}
