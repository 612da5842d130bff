package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skipsee/skipsee-backend/internal/usecase/auth"
)

type AuthHandler struct {
	identity *auth.IdentityUseCase
}

func NewAuthHandler(identity *auth.IdentityUseCase) *AuthHandler {
	return &AuthHandler{
		identity: identity,
	}
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type VerifyResponse struct {
	UserID string `json:"user_id"`
}

// Verify handles POST /api/v1/auth/verify. Clients use it to check a token
// before opening the socket.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	userID, err := h.identity.VerifyToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "invalid token",
		})
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{UserID: userID})
}
