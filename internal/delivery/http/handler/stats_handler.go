package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skipsee/skipsee-backend/internal/usecase/matchmaking"
)

type StatsProvider interface {
	Stats() matchmaking.Stats
}

type StatsHandler struct {
	stats StatsProvider
}

func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Stats())
}
