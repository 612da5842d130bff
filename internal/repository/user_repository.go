package repository

import (
	"context"

	"github.com/skipsee/skipsee-backend/internal/domain"
)

type UserRepository interface {
	// Upsert inserts the user or updates its display fields, then loads the
	// stored premium and blocklist columns back into user.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
