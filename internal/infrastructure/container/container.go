package container

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/skipsee/skipsee-backend/internal/config"
	"github.com/skipsee/skipsee-backend/internal/delivery/http"
	"github.com/skipsee/skipsee-backend/internal/delivery/http/handler"
	"github.com/skipsee/skipsee-backend/internal/delivery/ws"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/database"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/metrics"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/server"
	"github.com/skipsee/skipsee-backend/internal/repository"
	"github.com/skipsee/skipsee-backend/internal/repository/memory"
	"github.com/skipsee/skipsee-backend/internal/repository/postgres"
	redisrepo "github.com/skipsee/skipsee-backend/internal/repository/redis"
	"github.com/skipsee/skipsee-backend/internal/usecase/auth"
	"github.com/skipsee/skipsee-backend/internal/usecase/entitlement"
	"github.com/skipsee/skipsee-backend/internal/usecase/matchmaking"
	"github.com/skipsee/skipsee-backend/internal/usecase/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const usageTTL = 48 * time.Hour

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Matching  *matchmaking.Service
	WebSocket *ws.Handler
	Router    *gin.Engine
	Server    *server.Server

	stopHousekeeping context.CancelFunc
	housekeepingDone chan struct{}
}

// NewContainer creates a new dependency injection container. Postgres and
// Redis are optional: without them the relay runs anonymous with per-process
// usage counters.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	// Initialize database
	var userRepo repository.UserRepository
	if cfg.Database.Enabled() {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		userRepo = postgres.NewUserRepository(db)
	} else {
		logger.Info("no database configured, user directory disabled")
	}

	// Initialize Redis
	var usageRepo repository.UsageRepository
	if cfg.Redis.Enabled() {
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to initialize redis: %w", err), c.Close())
		}
		c.Redis = client
		usageRepo = redisrepo.NewUsageRepository(client)
	} else {
		logger.Info("no redis configured, usage counters kept in memory")
		usageRepo = memory.NewUsageRepository(cfg.Matching.UsageCacheSize, usageTTL)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize use cases
	c.Matching = matchmaking.NewService(matchmaking.Options{
		PremiumPriority: cfg.Matching.PremiumPriority,
		Metrics:         m,
	}, logger.Named("matchmaking"))

	identityUseCase := auth.NewIdentityUseCase(userRepo, cfg.JWT.AccessSecret, logger.Named("auth"))

	gateUseCase := entitlement.NewUseCase(usageRepo, entitlement.Config{
		DailyMatchLimit:      cfg.Matching.DailyLimit,
		GenderFilterFreeUses: cfg.Matching.GenderFilterFreeUses,
	}, logger.Named("entitlement"))

	sessionUseCase := session.NewUseCase(
		c.Matching,
		identityUseCase,
		gateUseCase,
		m,
		session.Config{MaxInterests: cfg.Matching.MaxInterests},
		logger.Named("session"),
	)

	// Initialize handlers
	c.WebSocket = ws.NewHandler(sessionUseCase, ws.Config{
		ReadLimit:      cfg.WebSocket.ReadLimit,
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		RateLimit:      cfg.WebSocket.RateLimit,
		RateBurst:      cfg.WebSocket.RateBurst,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, m, logger.Named("ws"))

	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := http.NewRouter(
		handler.NewAuthHandler(identityUseCase),
		handler.NewUserHandler(identityUseCase),
		handler.NewStatsHandler(c.Matching),
		handler.NewConfigHandler(handler.PublicConfig{GoogleClientID: cfg.Public.GoogleClientID}),
		c.WebSocket.Serve,
		registry,
		logger.Named("http"),
	)
	c.Router = router.Setup()

	// Initialize server
	c.Server = server.NewServer(&cfg.Server, c.Router, logger.Named("server"))

	return c, nil
}

// StartHousekeeping runs the registry audit loop until Shutdown.
func (c *Container) StartHousekeeping(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.stopHousekeeping = cancel
	c.housekeepingDone = make(chan struct{})
	go func() {
		defer close(c.housekeepingDone)
		c.Matching.Run(ctx, c.Config.Matching.HousekeepingInterval)
	}()
}

// Shutdown stops accepting requests, closes live sockets, stops background
// work and releases resources.
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Server.Shutdown(ctx)
	c.WebSocket.CloseAll()

	if c.stopHousekeeping != nil {
		c.stopHousekeeping()
		<-c.housekeepingDone
	}

	return multierr.Append(err, c.Close())
}

// Close closes all connections
func (c *Container) Close() error {
	var err error
	if c.Redis != nil {
		if cerr := c.Redis.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close redis: %w", cerr))
		}
		c.Redis = nil
	}
	if c.DB != nil {
		if cerr := c.DB.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close database: %w", cerr))
		}
		c.DB = nil
	}
	return err
}
