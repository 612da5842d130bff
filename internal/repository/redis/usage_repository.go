package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/skipsee/skipsee-backend/internal/repository"
)

// counters outlive their day so late increments near midnight in other
// time zones still land on a live key
const usageTTL = 48 * time.Hour

type usageRepository struct {
	client *goredis.Client
}

func NewUsageRepository(client *goredis.Client) repository.UsageRepository {
	return &usageRepository{client: client}
}

func (r *usageRepository) Get(ctx context.Context, kind repository.UsageKind, subject string, day time.Time) (int, error) {
	n, err := r.client.Get(ctx, repository.UsageKey(kind, subject, day)).Int()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return n, nil
}

func (r *usageRepository) Increment(ctx context.Context, kind repository.UsageKind, subject string, day time.Time) (int, error) {
	key := repository.UsageKey(kind, subject, day)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, usageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return int(incr.Val()), nil
}
