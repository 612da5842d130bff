package entitlement

import (
	"context"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/repository"
	"go.uber.org/zap"
)

type Config struct {
	// DailyMatchLimit caps matches per non-premium subject per day. 0 disables it.
	DailyMatchLimit int
	// GenderFilterFreeUses is how many matches per day a non-premium
	// subject may make with a gendered preference.
	GenderFilterFreeUses int
}

// Decision is the outcome of gating one start-search.
type Decision struct {
	Allowed             bool
	IsPremium           bool
	EffectivePreference domain.Preference
	FreeFilterUsesLeft  int
	Limit               int
}

// UseCase gates searches on premium status and daily usage. Counter
// failures never block a search.
type UseCase struct {
	usage  repository.UsageRepository
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

func NewUseCase(usage repository.UsageRepository, cfg Config, logger *zap.Logger) *UseCase {
	return &UseCase{
		usage:  usage,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Authorize decides whether conn may search now and which preference it
// searches with.
func (uc *UseCase) Authorize(ctx context.Context, conn *domain.Connection, requested domain.Preference) Decision {
	if conn.Identity.IsPremium {
		return Decision{
			Allowed:             true,
			IsPremium:           true,
			EffectivePreference: requested,
			FreeFilterUsesLeft:  uc.cfg.GenderFilterFreeUses,
		}
	}

	subject := conn.SubjectID()
	day := uc.now()

	if uc.cfg.DailyMatchLimit > 0 {
		matches, err := uc.usage.Get(ctx, repository.UsageMatches, subject, day)
		if err != nil {
			uc.logger.Warn("match counter unavailable, not enforcing limit",
				zap.String("subject", subject),
				zap.Error(err),
			)
		} else if matches >= uc.cfg.DailyMatchLimit {
			return Decision{Limit: uc.cfg.DailyMatchLimit}
		}
	}

	decision := Decision{
		Allowed:             true,
		EffectivePreference: requested,
		FreeFilterUsesLeft:  uc.cfg.GenderFilterFreeUses,
	}

	used, err := uc.usage.Get(ctx, repository.UsageGenderFilter, subject, day)
	if err != nil {
		uc.logger.Warn("filter counter unavailable, allowing requested preference",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return decision
	}

	decision.FreeFilterUsesLeft = max(0, uc.cfg.GenderFilterFreeUses-used)
	if requested != domain.PreferenceAny && decision.FreeFilterUsesLeft == 0 {
		decision.EffectivePreference = domain.PreferenceAny
	}
	return decision
}

// RecordMatch counts a new pairing against each non-premium side.
func (uc *UseCase) RecordMatch(ctx context.Context, pairing *domain.Pairing) {
	day := uc.now()
	for _, conn := range []*domain.Connection{&pairing.Initiator, &pairing.Responder} {
		if conn.Profile.IsPremium {
			continue
		}
		subject := conn.SubjectID()
		if _, err := uc.usage.Increment(ctx, repository.UsageMatches, subject, day); err != nil {
			uc.logger.Warn("failed to count match", zap.String("subject", subject), zap.Error(err))
		}
		if conn.Profile.Preference == domain.PreferenceAny {
			continue
		}
		if _, err := uc.usage.Increment(ctx, repository.UsageGenderFilter, subject, day); err != nil {
			uc.logger.Warn("failed to count filter use", zap.String("subject", subject), zap.Error(err))
		}
	}
}
