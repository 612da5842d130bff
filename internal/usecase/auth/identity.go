package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/repository"
	"go.uber.org/zap"
)

// JoinRequest is the join payload. Token wins over UID when a signing
// secret is configured.
type JoinRequest struct {
	UID         string `json:"uid" validate:"omitempty,max=128"`
	Token       string `json:"token" validate:"omitempty,max=4096"`
	DisplayName string `json:"displayName" validate:"omitempty,max=64"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	Flag        string `json:"flag" validate:"omitempty,max=16"`
	Gender      string `json:"gender" validate:"omitempty,max=16"`
}

type IdentityUseCase struct {
	userRepo  repository.UserRepository
	jwtSecret string
	now       func() time.Time
	logger    *zap.Logger
}

// NewIdentityUseCase builds the join resolver. userRepo may be nil when no
// user directory is configured.
func NewIdentityUseCase(userRepo repository.UserRepository, jwtSecret string, logger *zap.Logger) *IdentityUseCase {
	return &IdentityUseCase{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		now:       time.Now,
		logger:    logger,
	}
}

// Resolve turns a join request into the identity attached to the
// connection. It never fails: a bad token yields an anonymous identity and
// an unreachable directory yields a non-premium one. Only a verified token
// reaches the directory; a bare uid is a label and carries no premium or
// blocklist.
func (uc *IdentityUseCase) Resolve(ctx context.Context, req *JoinRequest) domain.Identity {
	identity := domain.Identity{
		DisplayName: strings.TrimSpace(req.DisplayName),
		Country:     strings.TrimSpace(req.Country),
		Flag:        strings.TrimSpace(req.Flag),
		Gender:      domain.ParseGender(req.Gender),
	}

	if uc.jwtSecret != "" {
		userID, err := uc.VerifyToken(req.Token)
		if err != nil {
			uc.logger.Debug("join token rejected", zap.Error(err))
			return identity
		}
		identity.UserID = userID
	} else {
		identity.UserID = strings.TrimSpace(req.UID)
		return identity
	}

	if identity.UserID == "" || uc.userRepo == nil {
		return identity
	}

	user := &domain.User{
		ID:          identity.UserID,
		DisplayName: identity.DisplayName,
		Country:     identity.Country,
	}
	if identity.Gender != domain.GenderUnknown {
		user.Gender = string(identity.Gender)
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		uc.logger.Warn("user directory unavailable, continuing without it",
			zap.String("user_id", identity.UserID),
			zap.Error(err),
		)
		return identity
	}

	identity.DisplayName = user.DisplayName
	identity.Country = user.Country
	if identity.Gender == domain.GenderUnknown {
		identity.Gender = domain.ParseGender(user.Gender)
	}
	identity.IsPremium = user.HasPremium(uc.now())
	identity.BlockedIDs = user.BlockedIDs
	return identity
}

// VerifyToken checks an HS256 token and returns its subject. Without a
// configured secret every token is rejected.
func (uc *IdentityUseCase) VerifyToken(tokenString string) (string, error) {
	if uc.jwtSecret == "" || tokenString == "" {
		return "", domain.ErrInvalidToken
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(uc.jwtSecret), nil
	}, jwt.WithTimeFunc(uc.now))
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		return sub, nil
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	}
	return "", domain.ErrInvalidToken
}

// IssueToken signs a token for userID. Used by tooling and tests; the
// production issuer is the account service.
func (uc *IdentityUseCase) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := uc.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(uc.jwtSecret))
}

// GetUser loads a user from the directory. Without a directory every user
// is unknown.
func (uc *IdentityUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if uc.userRepo == nil {
		return nil, domain.ErrUserNotFound
	}
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}
