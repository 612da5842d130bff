package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skipsee/skipsee-backend/internal/delivery/http/handler"
	"github.com/skipsee/skipsee-backend/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

type Router struct {
	authHandler   *handler.AuthHandler
	userHandler   *handler.UserHandler
	statsHandler  *handler.StatsHandler
	configHandler *handler.ConfigHandler
	wsHandler     gin.HandlerFunc
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	statsHandler *handler.StatsHandler,
	configHandler *handler.ConfigHandler,
	wsHandler gin.HandlerFunc,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:   authHandler,
		userHandler:   userHandler,
		statsHandler:  statsHandler,
		configHandler: configHandler,
		wsHandler:     wsHandler,
		gatherer:      gatherer,
		logger:        logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(r.logger))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	router.GET("/ws", r.wsHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	router.GET("/api/config", r.configHandler.GetConfig)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", r.statsHandler.GetStats)
		v1.POST("/auth/verify", r.authHandler.Verify)
		v1.GET("/users/:user_id", r.userHandler.GetUser)
	}

	return router
}
