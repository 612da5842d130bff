package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/usecase/auth"
)

type UserHandler struct {
	identity *auth.IdentityUseCase
}

func NewUserHandler(identity *auth.IdentityUseCase) *UserHandler {
	return &UserHandler{
		identity: identity,
	}
}

// UserResponse is the public part of a user row.
type UserResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	IsPremium   bool   `json:"is_premium"`
}

// GetUser handles GET /api/v1/users/:user_id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.identity.GetUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "user not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to get user",
		})
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Country:     user.Country,
		IsPremium:   user.IsPremium,
	})
}
