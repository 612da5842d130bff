package ws

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/metrics"
	"github.com/skipsee/skipsee-backend/internal/usecase/matchmaking"
	"go.uber.org/zap"
)

// Sessions is the lifecycle the transport drives for each connection.
type Sessions interface {
	frameHandler
	Connect(id string, sink matchmaking.Sink) bool
	Disconnect(id string)
}

type Handler struct {
	sessions Sessions
	upgrader websocket.Upgrader
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*client
}

func NewHandler(sessions Sessions, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Handler {
	h := &Handler{
		sessions: sessions,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		clients:  make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve upgrades the request and runs the connection until it ends. The
// disconnect transition always runs, whatever ended the connection.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(uuid.NewString(), conn, h.cfg, h.metrics, h.logger)
	if !h.sessions.Connect(cl.id, cl) {
		_ = conn.Close()
		return
	}
	h.track(cl)

	go cl.writePump()
	cl.readPump(c.Request.Context(), h.sessions)

	h.sessions.Disconnect(cl.id)
	h.untrack(cl)
	cl.close()
}

// CloseAll closes every live connection. Hijacked connections are not
// touched by http.Server.Shutdown.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.clients {
		cl.close()
	}
}

func (h *Handler) track(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl.id] = cl
}

func (h *Handler) untrack(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, cl.id)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.Debug("origin rejected", zap.String("origin", origin))
	return false
}
