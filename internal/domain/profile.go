package domain

import (
	"strings"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

type Preference string

const (
	PreferenceAny    Preference = "any"
	PreferenceMale   Preference = "male"
	PreferenceFemale Preference = "female"
)

// CountryGlobal matches every country.
const CountryGlobal = "Global"

// Profile is the matching profile of a searching connection. It is built
// once per start-search by NewProfile and never mutated afterwards.
type Profile struct {
	UserID          string
	DisplayIdentity Gender
	Preference      Preference
	Country         string
	Interests       []string
	IsPremium       bool
	BlockedIDs      map[string]struct{}
}

// SearchRequest is the raw start-search payload. Both the current field
// names and the legacy ones (gender, identity) are accepted.
type SearchRequest struct {
	Preference      string   `json:"preference" validate:"max=16"`
	Gender          string   `json:"gender" validate:"max=16"`
	DisplayIdentity string   `json:"displayIdentity" validate:"max=16"`
	Identity        string   `json:"identity" validate:"max=16"`
	Country         string   `json:"country" validate:"max=64"`
	Interests       []string `json:"interests" validate:"max=100,dive,max=64"`
	BlockedIDs      []string `json:"blockedIds" validate:"max=1000,dive,max=128"`
}

// RequestedPreference returns the preference the client asked for, before
// any entitlement gating.
func (r *SearchRequest) RequestedPreference() Preference {
	raw := r.Preference
	if raw == "" {
		raw = r.Gender
	}
	return ParsePreference(raw)
}

// ProfileOptions carries the values resolved outside the request itself.
type ProfileOptions struct {
	UserID              string
	EffectivePreference Preference
	IsPremium           bool
	StoredBlockedIDs    []string
	MaxInterests        int
	// JoinCountry is used when the search itself names no country.
	JoinCountry         string
}

// NewProfile normalizes a search request into a Profile. Missing or invalid
// fields fall back to safe defaults instead of rejecting the search.
func NewProfile(req *SearchRequest, opts ProfileOptions) Profile {
	identity := req.DisplayIdentity
	if identity == "" {
		identity = req.Identity
	}

	pref := opts.EffectivePreference
	if pref == "" {
		pref = req.RequestedPreference()
	}

	country := req.Country
	if strings.TrimSpace(country) == "" {
		country = opts.JoinCountry
	}

	blocked := make(map[string]struct{}, len(req.BlockedIDs)+len(opts.StoredBlockedIDs))
	for _, ids := range [][]string{req.BlockedIDs, opts.StoredBlockedIDs} {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				blocked[id] = struct{}{}
			}
		}
	}

	return Profile{
		UserID:          opts.UserID,
		DisplayIdentity: ParseGender(identity),
		Preference:      pref,
		Country:         NormalizeCountry(country),
		Interests:       NormalizeInterests(req.Interests, opts.MaxInterests),
		IsPremium:       opts.IsPremium,
		BlockedIDs:      blocked,
	}
}

func ParseGender(raw string) Gender {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	default:
		return GenderUnknown
	}
}

func ParsePreference(raw string) Preference {
	switch Preference(strings.ToLower(strings.TrimSpace(raw))) {
	case PreferenceMale:
		return PreferenceMale
	case PreferenceFemale:
		return PreferenceFemale
	default:
		// "all", "both", "" and anything unrecognized
		return PreferenceAny
	}
}

func NormalizeCountry(raw string) string {
	c := strings.TrimSpace(raw)
	switch strings.ToLower(c) {
	case "", "any", "global", "all":
		return CountryGlobal
	}
	return c
}

// NormalizeInterests lowercases, trims and dedupes tags, keeping the first
// occurrence order. max <= 0 means no cap.
func NormalizeInterests(raw []string, max int) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Wants reports whether p's preference accepts other's display identity.
func (p *Profile) Wants(other *Profile) bool {
	return p.Preference == PreferenceAny || string(p.Preference) == string(other.DisplayIdentity)
}

// SameCountry is false only when both sides name a specific, different country.
func (p *Profile) SameCountry(other *Profile) bool {
	if p.Country == CountryGlobal || other.Country == CountryGlobal {
		return true
	}
	return strings.EqualFold(p.Country, other.Country)
}

// Blocks reports whether p's blocklist names any of the given ids.
func (p *Profile) Blocks(ids ...string) bool {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := p.BlockedIDs[id]; ok {
			return true
		}
	}
	return false
}

// CommonInterests returns the tags shared with other, in p's order.
func (p *Profile) CommonInterests(other *Profile) []string {
	if len(p.Interests) == 0 || len(other.Interests) == 0 {
		return []string{}
	}
	theirs := make(map[string]struct{}, len(other.Interests))
	for _, tag := range other.Interests {
		theirs[tag] = struct{}{}
	}
	common := make([]string, 0, len(p.Interests))
	for _, tag := range p.Interests {
		if _, ok := theirs[tag]; ok {
			common = append(common, tag)
		}
	}
	return common
}
