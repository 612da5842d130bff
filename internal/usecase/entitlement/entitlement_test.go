package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/repository"
	"github.com/skipsee/skipsee-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type brokenUsage struct{}

func (brokenUsage) Get(context.Context, repository.UsageKind, string, time.Time) (int, error) {
	return 0, errors.New("redis down")
}

func (brokenUsage) Increment(context.Context, repository.UsageKind, string, time.Time) (int, error) {
	return 0, errors.New("redis down")
}

func newUseCase(usage repository.UsageRepository, cfg Config) *UseCase {
	uc := NewUseCase(usage, cfg, zap.NewNop())
	uc.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return uc
}

func side(id, userID string, pref domain.Preference, premium bool) domain.Connection {
	return domain.Connection{
		ID:       id,
		Identity: domain.Identity{UserID: userID, IsPremium: premium},
		Profile:  domain.Profile{UserID: userID, Preference: pref, IsPremium: premium},
	}
}

func TestAuthorize_FreeFilterUses(t *testing.T) {
	uc := newUseCase(memory.NewUsageRepository(100, time.Hour), Config{GenderFilterFreeUses: 2})
	ctx := context.Background()
	me := side("c1", "u1", domain.PreferenceFemale, false)
	partner := side("c2", "u2", domain.PreferenceAny, false)

	for left := 2; left > 0; left-- {
		d := uc.Authorize(ctx, &me, domain.PreferenceFemale)
		assert.True(t, d.Allowed)
		assert.Equal(t, domain.PreferenceFemale, d.EffectivePreference)
		assert.Equal(t, left, d.FreeFilterUsesLeft)
		uc.RecordMatch(ctx, &domain.Pairing{Initiator: me, Responder: partner})
	}

	d := uc.Authorize(ctx, &me, domain.PreferenceFemale)
	assert.True(t, d.Allowed)
	assert.Equal(t, domain.PreferenceAny, d.EffectivePreference)
	assert.Zero(t, d.FreeFilterUsesLeft)

	// the partner searched with "any" and consumed nothing
	d = uc.Authorize(ctx, &partner, domain.PreferenceMale)
	assert.Equal(t, domain.PreferenceMale, d.EffectivePreference)
	assert.Equal(t, 2, d.FreeFilterUsesLeft)
}

func TestAuthorize_Premium(t *testing.T) {
	usage := memory.NewUsageRepository(100, time.Hour)
	uc := newUseCase(usage, Config{GenderFilterFreeUses: 1, DailyMatchLimit: 1})
	ctx := context.Background()
	vip := side("c1", "u1", domain.PreferenceMale, true)

	for i := 0; i < 3; i++ {
		d := uc.Authorize(ctx, &vip, domain.PreferenceMale)
		assert.True(t, d.Allowed)
		assert.True(t, d.IsPremium)
		assert.Equal(t, domain.PreferenceMale, d.EffectivePreference)
		uc.RecordMatch(ctx, &domain.Pairing{Initiator: vip, Responder: side("c2", "", domain.PreferenceAny, false)})
	}

	n, _ := usage.Get(ctx, repository.UsageMatches, "u1", uc.now())
	assert.Zero(t, n)
	// the anonymous partner is counted by connection id
	n, _ = usage.Get(ctx, repository.UsageMatches, "c2", uc.now())
	assert.Equal(t, 3, n)
}

func TestAuthorize_DailyLimit(t *testing.T) {
	uc := newUseCase(memory.NewUsageRepository(100, time.Hour), Config{DailyMatchLimit: 2})
	ctx := context.Background()
	me := side("c1", "u1", domain.PreferenceAny, false)

	for i := 0; i < 2; i++ {
		assert.True(t, uc.Authorize(ctx, &me, domain.PreferenceAny).Allowed)
		uc.RecordMatch(ctx, &domain.Pairing{Initiator: me, Responder: side("c2", "u2", domain.PreferenceAny, false)})
	}

	d := uc.Authorize(ctx, &me, domain.PreferenceAny)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Limit)

	// the same user on a new connection is still limited
	again := side("c9", "u1", domain.PreferenceAny, false)
	assert.False(t, uc.Authorize(ctx, &again, domain.PreferenceAny).Allowed)

	// a new day resets it
	uc.now = func() time.Time { return time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC) }
	assert.True(t, uc.Authorize(ctx, &me, domain.PreferenceAny).Allowed)
}

func TestAuthorize_FailsOpen(t *testing.T) {
	uc := newUseCase(brokenUsage{}, Config{DailyMatchLimit: 1, GenderFilterFreeUses: 2})
	ctx := context.Background()
	me := side("c1", "u1", domain.PreferenceFemale, false)

	d := uc.Authorize(ctx, &me, domain.PreferenceFemale)
	assert.True(t, d.Allowed)
	assert.False(t, d.IsPremium)
	assert.Equal(t, domain.PreferenceFemale, d.EffectivePreference)

	assert.NotPanics(t, func() {
		uc.RecordMatch(ctx, &domain.Pairing{Initiator: me, Responder: me})
	})
}
