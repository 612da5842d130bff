package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeUserRepo struct {
	stored map[string]domain.User
	err    error
	calls  int
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	if stored, ok := r.stored[user.ID]; ok {
		if user.DisplayName == "" {
			user.DisplayName = stored.DisplayName
		}
		if user.Gender == "" {
			user.Gender = stored.Gender
		}
		user.IsPremium = stored.IsPremium
		user.PremiumUntil = stored.PremiumUntil
		user.BlockedIDs = stored.BlockedIDs
	}
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.stored[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func TestVerifyToken(t *testing.T) {
	uc := NewIdentityUseCase(nil, testSecret, zap.NewNop())

	token, err := uc.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	userID, err := uc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	t.Run("legacy numeric user_id claim", func(t *testing.T) {
		legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 17,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		s, err := legacy.SignedString([]byte(testSecret))
		require.NoError(t, err)

		userID, err := uc.VerifyToken(s)
		require.NoError(t, err)
		assert.Equal(t, "17", userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIdentityUseCase(nil, "another-secret-another-secret-xx", zap.NewNop())
		s, err := other.IssueToken("user-42", time.Hour)
		require.NoError(t, err)

		_, err = uc.VerifyToken(s)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		s, err := uc.IssueToken("user-42", -time.Minute)
		require.NoError(t, err)

		_, err = uc.VerifyToken(s)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("no subject", func(t *testing.T) {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = uc.VerifyToken(s)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := uc.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
		_, err = uc.VerifyToken("")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestResolve_WithoutSecretTrustsUID(t *testing.T) {
	uc := NewIdentityUseCase(nil, "", zap.NewNop())

	identity := uc.Resolve(context.Background(), &JoinRequest{
		UID:         " u1 ",
		DisplayName: "Ann",
		Country:     "India",
		Flag:        "🇮🇳",
		Gender:      "Female",
	})

	assert.Equal(t, domain.Identity{
		UserID:      "u1",
		DisplayName: "Ann",
		Country:     "India",
		Flag:        "🇮🇳",
		Gender:      domain.GenderFemale,
	}, identity)
}

func TestResolve_UnverifiedUIDSkipsDirectory(t *testing.T) {
	until := time.Now().Add(24 * time.Hour)
	repo := &fakeUserRepo{stored: map[string]domain.User{
		"victim": {ID: "victim", DisplayName: "Victim", IsPremium: true, PremiumUntil: &until, BlockedIDs: []string{"x"}},
	}}
	uc := NewIdentityUseCase(repo, "", zap.NewNop())

	identity := uc.Resolve(context.Background(), &JoinRequest{UID: "victim", DisplayName: "attacker"})
	assert.Equal(t, "victim", identity.UserID)
	assert.Equal(t, "attacker", identity.DisplayName)
	assert.False(t, identity.IsPremium)
	assert.Empty(t, identity.BlockedIDs)
	assert.Zero(t, repo.calls)
	assert.Equal(t, "Victim", repo.stored["victim"].DisplayName)
}

func TestVerifyToken_WithoutSecretRejectsEverything(t *testing.T) {
	uc := NewIdentityUseCase(nil, "", zap.NewNop())

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "anyone",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(""))
	require.NoError(t, err)

	userID, err := uc.VerifyToken(forged)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Empty(t, userID)
}

func TestResolve_InvalidTokenStaysAnonymous(t *testing.T) {
	repo := &fakeUserRepo{}
	uc := NewIdentityUseCase(repo, testSecret, zap.NewNop())

	identity := uc.Resolve(context.Background(), &JoinRequest{UID: "spoofed", Token: "bad"})
	assert.Empty(t, identity.UserID)
	assert.Zero(t, repo.calls)
}

func TestResolve_LoadsDirectory(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(24 * time.Hour)
	repo := &fakeUserRepo{stored: map[string]domain.User{
		"u1": {ID: "u1", DisplayName: "Stored", Gender: "male", IsPremium: true, PremiumUntil: &until, BlockedIDs: []string{"u9"}},
	}}
	uc := NewIdentityUseCase(repo, testSecret, zap.NewNop())
	uc.now = func() time.Time { return now }

	token, err := uc.IssueToken("u1", time.Hour)
	require.NoError(t, err)

	identity := uc.Resolve(context.Background(), &JoinRequest{Token: token})
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "Stored", identity.DisplayName)
	assert.Equal(t, domain.GenderMale, identity.Gender)
	assert.True(t, identity.IsPremium)
	assert.Equal(t, []string{"u9"}, identity.BlockedIDs)

	uc.now = func() time.Time { return until.Add(time.Second) }
	token, err = uc.IssueToken("u1", time.Hour)
	require.NoError(t, err)
	identity = uc.Resolve(context.Background(), &JoinRequest{Token: token})
	assert.False(t, identity.IsPremium, "premium expired")
}

func TestResolve_DirectoryDownFailsOpen(t *testing.T) {
	repo := &fakeUserRepo{err: errors.New("connection refused")}
	uc := NewIdentityUseCase(repo, testSecret, zap.NewNop())

	token, err := uc.IssueToken("u1", time.Hour)
	require.NoError(t, err)

	identity := uc.Resolve(context.Background(), &JoinRequest{Token: token, DisplayName: "Ann"})
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "Ann", identity.DisplayName)
	assert.False(t, identity.IsPremium)
	assert.Equal(t, 1, repo.calls)
}

func TestGetUser(t *testing.T) {
	repo := &fakeUserRepo{stored: map[string]domain.User{"u1": {ID: "u1", DisplayName: "Ann"}}}
	uc := NewIdentityUseCase(repo, "", zap.NewNop())

	user, err := uc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.DisplayName)

	_, err = uc.GetUser(context.Background(), "u2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = NewIdentityUseCase(nil, "", zap.NewNop()).GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
