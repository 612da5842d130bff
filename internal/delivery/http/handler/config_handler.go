package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PublicConfig struct {
	GoogleClientID string `json:"googleClientId"`
}

type ConfigHandler struct {
	public PublicConfig
}

func NewConfigHandler(public PublicConfig) *ConfigHandler {
	return &ConfigHandler{public: public}
}

// GetConfig handles GET /api/config with the settings the web client needs
// before it can sign in.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.public)
}
