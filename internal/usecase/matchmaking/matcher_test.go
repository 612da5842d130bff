package matchmaking

import (
	"testing"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conn(id string, p domain.Profile) domain.Connection {
	return domain.Connection{ID: id, Profile: p, State: domain.StateSearching}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Profile
		want bool
	}{
		{
			name: "different specific countries",
			a:    profile(domain.GenderMale, domain.PreferenceAny, "US"),
			b:    profile(domain.GenderFemale, domain.PreferenceAny, "IN"),
			want: false,
		},
		{
			name: "global matches specific",
			a:    profile(domain.GenderMale, domain.PreferenceAny, "US"),
			b:    profile(domain.GenderFemale, domain.PreferenceAny, domain.CountryGlobal),
			want: true,
		},
		{
			name: "same country",
			a:    profile(domain.GenderMale, domain.PreferenceAny, "US"),
			b:    profile(domain.GenderFemale, domain.PreferenceAny, "US"),
			want: true,
		},
		{
			name: "male wants female, female wants any",
			a:    profile(domain.GenderMale, domain.PreferenceFemale, domain.CountryGlobal),
			b:    profile(domain.GenderFemale, domain.PreferenceAny, domain.CountryGlobal),
			want: true,
		},
		{
			name: "male wants female, female wants male",
			a:    profile(domain.GenderMale, domain.PreferenceFemale, domain.CountryGlobal),
			b:    profile(domain.GenderFemale, domain.PreferenceMale, domain.CountryGlobal),
			want: true,
		},
		{
			name: "male wants female, female wants female",
			a:    profile(domain.GenderMale, domain.PreferenceFemale, domain.CountryGlobal),
			b:    profile(domain.GenderFemale, domain.PreferenceFemale, domain.CountryGlobal),
			want: false,
		},
		{
			name: "wants female, candidate is male",
			a:    profile(domain.GenderFemale, domain.PreferenceFemale, domain.CountryGlobal),
			b:    profile(domain.GenderMale, domain.PreferenceAny, domain.CountryGlobal),
			want: false,
		},
		{
			name: "unknown identity only matches any",
			a:    profile(domain.GenderUnknown, domain.PreferenceAny, domain.CountryGlobal),
			b:    profile(domain.GenderMale, domain.PreferenceFemale, domain.CountryGlobal),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := conn("a", tt.a), conn("b", tt.b)
			assert.Equal(t, tt.want, Compatible(&a, &b))
			assert.Equal(t, tt.want, Compatible(&b, &a))
		})
	}
}

func TestCompatible_Blocklist(t *testing.T) {
	a := conn("conn-a", anyProfile())
	a.Profile.UserID = "user-a"
	b := conn("conn-b", anyProfile())
	b.Profile.UserID = "user-b"
	assert.True(t, Compatible(&a, &b))

	b.Profile.BlockedIDs = map[string]struct{}{"user-a": {}}
	assert.False(t, Compatible(&a, &b))
	assert.False(t, Compatible(&b, &a))

	b.Profile.BlockedIDs = map[string]struct{}{"conn-a": {}}
	assert.False(t, Compatible(&a, &b))

	self := conn("conn-a", anyProfile())
	assert.False(t, Compatible(&a, &self))
}

func TestScore(t *testing.T) {
	a := anyProfile("music", "games")

	assert.Equal(t, 0, Score(&a, ptr(anyProfile())))
	assert.Equal(t, 0, Score(&a, ptr(anyProfile("art"))))
	assert.Equal(t, 2, Score(&a, ptr(anyProfile("music", "art"))))
	assert.Equal(t, 4, Score(&a, ptr(anyProfile("games", "music", "art"))))
	assert.Equal(t, 5, Score(&a, ptr(anyProfile("games", "music"))))

	// identical sets never outrank a larger intersection
	small := anyProfile("music")
	big := anyProfile("music", "games", "art")
	assert.Less(t, Score(&small, ptr(anyProfile("music"))), Score(&big, ptr(anyProfile("music", "games"))))
}

func ptr[T any](v T) *T { return &v }

func searchAll(t *testing.T, svc *Service, profiles map[string]domain.Profile, order ...string) {
	t.Helper()
	for _, id := range order {
		pairing, err := svc.StartSearch(id, profiles[id])
		require.NoError(t, err)
		require.Nil(t, pairing, "%s should have been queued", id)
	}
}

// waiting profiles never match each other: female looking for male.
func waiting(interests ...string) domain.Profile {
	return profile(domain.GenderFemale, domain.PreferenceMale, domain.CountryGlobal, interests...)
}

func seeker(interests ...string) domain.Profile {
	return profile(domain.GenderMale, domain.PreferenceAny, domain.CountryGlobal, interests...)
}

func TestMatcher_HighestScoreWins(t *testing.T) {
	svc := newTestService(false)
	connect(svc, "b1", "b2", "b3", "a")
	searchAll(t, svc, map[string]domain.Profile{
		"b1": waiting("art"),
		"b2": waiting("music", "games"),
		"b3": waiting("music"),
	}, "b1", "b2", "b3")

	pairing, err := svc.StartSearch("a", seeker("music", "games", "chess"))
	require.NoError(t, err)
	require.NotNil(t, pairing)
	assert.Equal(t, "a", pairing.Initiator.ID)
	assert.Equal(t, "b2", pairing.Responder.ID)
	assert.Equal(t, []string{"music", "games"}, pairing.CommonInterests)
}

func TestMatcher_TieBreakOldestFirst(t *testing.T) {
	svc := newTestService(false)
	connect(svc, "b1", "b2", "a")
	searchAll(t, svc, map[string]domain.Profile{
		"b1": waiting("music"),
		"b2": waiting("music"),
	}, "b1", "b2")

	pairing, err := svc.StartSearch("a", seeker("music"))
	require.NoError(t, err)
	require.NotNil(t, pairing)
	assert.Equal(t, "b1", pairing.Responder.ID)
}

func TestMatcher_ReSearchGetsFreshTimestamp(t *testing.T) {
	svc := newTestService(false)
	connect(svc, "b1", "b2", "a")
	searchAll(t, svc, map[string]domain.Profile{
		"b1": waiting(),
		"b2": waiting(),
	}, "b1", "b2", "b1")

	pairing, err := svc.StartSearch("a", seeker())
	require.NoError(t, err)
	require.NotNil(t, pairing)
	assert.Equal(t, "b2", pairing.Responder.ID)
}

func TestMatcher_PremiumPriority(t *testing.T) {
	premium := waiting("music")
	premium.IsPremium = true

	t.Run("premium preferred on equal score", func(t *testing.T) {
		svc := newTestService(true)
		connect(svc, "old", "vip", "a")
		searchAll(t, svc, map[string]domain.Profile{
			"old": waiting("music"),
			"vip": premium,
		}, "old", "vip")

		pairing, err := svc.StartSearch("a", seeker("music"))
		require.NoError(t, err)
		require.NotNil(t, pairing)
		assert.Equal(t, "vip", pairing.Responder.ID)
	})

	t.Run("disabled priority keeps oldest", func(t *testing.T) {
		svc := newTestService(false)
		connect(svc, "old", "vip", "a")
		searchAll(t, svc, map[string]domain.Profile{
			"old": waiting("music"),
			"vip": premium,
		}, "old", "vip")

		pairing, err := svc.StartSearch("a", seeker("music"))
		require.NoError(t, err)
		require.NotNil(t, pairing)
		assert.Equal(t, "old", pairing.Responder.ID)
	})

	t.Run("higher score beats premium", func(t *testing.T) {
		svc := newTestService(true)
		connect(svc, "fan", "vip", "a")
		searchAll(t, svc, map[string]domain.Profile{
			"fan": waiting("music", "games"),
			"vip": premium,
		}, "fan", "vip")

		pairing, err := svc.StartSearch("a", seeker("music", "games"))
		require.NoError(t, err)
		require.NotNil(t, pairing)
		assert.Equal(t, "fan", pairing.Responder.ID)
	})
}

func TestMatcher_NoCandidateEnqueues(t *testing.T) {
	svc := newTestService(false)
	connect(svc, "us", "in")

	pairing, err := svc.StartSearch("us", profile(domain.GenderMale, domain.PreferenceAny, "US"))
	require.NoError(t, err)
	assert.Nil(t, pairing)

	pairing, err = svc.StartSearch("in", profile(domain.GenderFemale, domain.PreferenceAny, "IN"))
	require.NoError(t, err)
	assert.Nil(t, pairing)

	assert.Equal(t, Stats{Online: 2, Searching: 2, Paired: 0}, svc.Stats())
}

func TestMatcher_SkipsVanishedCandidate(t *testing.T) {
	reg, pool := newTestRegistry("a", "b")
	reg.SetProfile("a", anyProfile())
	reg.SetProfile("b", anyProfile())
	require.NoError(t, reg.Enqueue("b", time.Unix(1, 0)))

	// b disappears from the registry but its pool entry lingers
	delete(reg.records, "b")

	pairing, err := NewMatcher(false).Match(reg, pool, "a", time.Unix(2, 0))
	require.NoError(t, err)
	assert.Nil(t, pairing)

	a, _ := reg.Get("a")
	assert.Equal(t, domain.StateSearching, a.State)
}

func TestMatcher_UnknownRequester(t *testing.T) {
	reg, pool := newTestRegistry()
	_, err := NewMatcher(false).Match(reg, pool, "ghost", time.Now())
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}
