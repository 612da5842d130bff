package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	// empty display fields never overwrite stored ones
	query := `
		INSERT INTO users (id, display_name, gender, country)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			gender       = COALESCE(NULLIF(EXCLUDED.gender, ''), users.gender),
			country      = COALESCE(NULLIF(EXCLUDED.country, ''), users.country),
			updated_at   = NOW()
		RETURNING display_name, gender, country, is_premium, premium_until, blocked_ids, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, user.ID, user.DisplayName, user.Gender, user.Country).Scan(
		&user.DisplayName, &user.Gender, &user.Country,
		&user.IsPremium, &user.PremiumUntil, pq.Array(&user.BlockedIDs),
		&user.CreatedAt, &user.UpdatedAt,
	)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, display_name, gender, country, is_premium, premium_until,
		       blocked_ids, created_at, updated_at
		FROM users WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.DisplayName, &user.Gender, &user.Country,
		&user.IsPremium, &user.PremiumUntil, pq.Array(&user.BlockedIDs),
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
