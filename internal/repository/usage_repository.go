package repository

import (
	"context"
	"time"
)

type UsageKind string

const (
	UsageMatches      UsageKind = "matches"
	UsageGenderFilter UsageKind = "gender_filter"
)

// UsageRepository keeps per-subject daily counters.
type UsageRepository interface {
	Get(ctx context.Context, kind UsageKind, subject string, day time.Time) (int, error)
	Increment(ctx context.Context, kind UsageKind, subject string, day time.Time) (int, error)
}

// UsageKey is the storage key shared by all implementations.
func UsageKey(kind UsageKind, subject string, day time.Time) string {
	return "usage:" + string(kind) + ":" + subject + ":" + day.UTC().Format(time.DateOnly)
}
