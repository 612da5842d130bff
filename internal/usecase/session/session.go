package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/metrics"
	"github.com/skipsee/skipsee-backend/internal/usecase/auth"
	"github.com/skipsee/skipsee-backend/internal/usecase/entitlement"
	"github.com/skipsee/skipsee-backend/internal/usecase/matchmaking"
	"go.uber.org/zap"
)

type Config struct {
	MaxInterests int
}

// UseCase maps client events onto the matchmaking service. One instance
// serves every connection; calls for a single connection must come from
// one goroutine so that its events are handled in order.
type UseCase struct {
	matching *matchmaking.Service
	identity *auth.IdentityUseCase
	gate     *entitlement.UseCase
	validate *validator.Validate
	metrics  *metrics.Metrics
	cfg      Config
	logger   *zap.Logger
}

func NewUseCase(
	matching *matchmaking.Service,
	identity *auth.IdentityUseCase,
	gate *entitlement.UseCase,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	return &UseCase{
		matching: matching,
		identity: identity,
		gate:     gate,
		validate: validator.New(),
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

// Connect registers id and tells everyone the new online count.
func (uc *UseCase) Connect(id string, sink matchmaking.Sink) bool {
	if !uc.matching.Connect(id, sink) {
		return false
	}
	uc.matching.BroadcastOnlineCount()
	return true
}

// Disconnect is the terminal transition for id, whatever state it is in.
func (uc *UseCase) Disconnect(id string) {
	uc.matching.Disconnect(id)
	uc.matching.BroadcastOnlineCount()
}

// Handle dispatches one inbound frame. name is the event name as sent by
// the client, aliases included.
func (uc *UseCase) Handle(ctx context.Context, id, name string, payload json.RawMessage) {
	eventType, ok := domain.ParseEventType(name)
	if !ok {
		uc.logger.Debug("unknown event", zap.String("conn_id", id), zap.String("event", name))
		uc.sendError(id, fmt.Sprintf("unknown event type %q", name))
		return
	}

	switch {
	case eventType == domain.EventJoin:
		uc.Join(ctx, id, payload)
	case eventType == domain.EventStartSearch:
		uc.StartSearch(ctx, id, payload)
	case eventType == domain.EventStopSearch:
		uc.StopSearch(id)
	case eventType == domain.EventSkip:
		uc.Skip(id)
	case eventType.IsRelayed():
		_ = uc.matching.Relay(id, eventType, name, payload)
	}
}

// Join attaches the client's identity to the connection.
func (uc *UseCase) Join(ctx context.Context, id string, payload json.RawMessage) {
	var req auth.JoinRequest
	if err := decodePayload(payload, &req); err != nil {
		uc.sendError(id, "malformed join payload")
		return
	}
	if err := uc.validate.Struct(&req); err != nil {
		uc.logger.Debug("invalid join payload", zap.String("conn_id", id), zap.Error(err))
		uc.sendError(id, "invalid join payload")
		return
	}

	identity := uc.identity.Resolve(ctx, &req)
	uc.matching.SetIdentity(id, identity)
	uc.logger.Debug("joined",
		zap.String("conn_id", id),
		zap.String("user_id", identity.UserID),
		zap.Bool("premium", identity.IsPremium),
	)
}

// StartSearch gates, normalizes and submits a search. Malformed or
// invalid fields fall back to defaults instead of rejecting the search.
func (uc *UseCase) StartSearch(ctx context.Context, id string, payload json.RawMessage) {
	conn, ok := uc.matching.Connection(id)
	if !ok {
		return
	}

	var req domain.SearchRequest
	if err := decodePayload(payload, &req); err != nil {
		uc.logger.Debug("malformed search payload, using defaults", zap.String("conn_id", id), zap.Error(err))
		req = domain.SearchRequest{}
	}
	uc.dropInvalidFields(id, &req)

	decision := uc.gate.Authorize(ctx, &conn, req.RequestedPreference())
	if !decision.Allowed {
		uc.matching.StopSearch(id)
		uc.metrics.LimitRejected()
		uc.matching.Notify(id, domain.Event{
			Type:    domain.EventLimitReached,
			Payload: domain.LimitReachedPayload{Limit: decision.Limit},
		})
		uc.logger.Info("search rejected by daily limit",
			zap.String("conn_id", id),
			zap.String("subject", conn.SubjectID()),
		)
		return
	}

	uc.matching.Notify(id, domain.Event{
		Type: domain.EventSearching,
		Payload: domain.SearchingPayload{
			Preference:         decision.EffectivePreference,
			Premium:            decision.IsPremium,
			FreeFilterUsesLeft: decision.FreeFilterUsesLeft,
		},
	})

	profile := domain.NewProfile(&req, domain.ProfileOptions{
		UserID:              conn.Identity.UserID,
		EffectivePreference: decision.EffectivePreference,
		IsPremium:           decision.IsPremium,
		StoredBlockedIDs:    conn.Identity.BlockedIDs,
		MaxInterests:        uc.cfg.MaxInterests,
		JoinCountry:         conn.Identity.Country,
	})

	pairing, err := uc.matching.StartSearch(id, profile)
	if err != nil {
		if !errors.Is(err, domain.ErrConnectionNotFound) {
			uc.logger.Error("search failed", zap.String("conn_id", id), zap.Error(err))
		}
		return
	}
	if pairing != nil {
		uc.gate.RecordMatch(ctx, pairing)
	}
}

func (uc *UseCase) StopSearch(id string) {
	uc.matching.StopSearch(id)
}

func (uc *UseCase) Skip(id string) {
	if partnerID, ok := uc.matching.Skip(id); ok {
		uc.logger.Debug("skipped", zap.String("conn_id", id), zap.String("partner_id", partnerID))
	}
}

// dropInvalidFields zeroes every field that failed validation.
func (uc *UseCase) dropInvalidFields(id string, req *domain.SearchRequest) {
	err := uc.validate.Struct(req)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		field, _, _ := strings.Cut(fe.StructField(), "[")
		switch field {
		case "Preference":
			req.Preference = ""
		case "Gender":
			req.Gender = ""
		case "DisplayIdentity":
			req.DisplayIdentity = ""
		case "Identity":
			req.Identity = ""
		case "Country":
			req.Country = ""
		case "Interests":
			req.Interests = nil
		case "BlockedIDs":
			req.BlockedIDs = nil
		}
		uc.logger.Debug("search field reset to default",
			zap.String("conn_id", id),
			zap.String("field", field),
			zap.String("rule", fe.Tag()),
		)
	}
}

func (uc *UseCase) sendError(id, message string) {
	uc.matching.Notify(id, domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: message},
	})
}

// decodePayload treats a missing payload as an empty object.
func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
