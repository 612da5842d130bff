package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/skipsee/skipsee-backend/internal/domain"
	"github.com/skipsee/skipsee-backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	ReadLimit    int64
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	// RateLimit is inbound messages per second, RateBurst the bucket size.
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

// client is one WebSocket connection. It is the connection's Sink: Send
// never blocks, it queues for the write pump or gives up.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newClient(id string, conn *websocket.Conn, cfg Config, m *metrics.Metrics, logger *zap.Logger) *client {
	return &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cfg:     cfg,
		metrics: m,
		logger:  logger.With(zap.String("conn_id", id)),
	}
}

// Send queues ev for delivery. A full queue means the peer is not reading;
// the connection is closed rather than letting the queue grow.
func (c *client) Send(ev domain.Event) bool {
	data, err := encodeEvent(ev)
	if err != nil {
		c.logger.Error("failed to encode event", zap.String("event", ev.WireName()), zap.Error(err))
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.metrics.SlowConsumer()
		c.logger.Warn("send queue full, closing slow consumer", zap.Int("queued", len(c.send)))
		c.close()
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

type frameHandler interface {
	Handle(ctx context.Context, id, name string, payload json.RawMessage)
}

// readPump handles inbound frames in arrival order until the connection
// fails or is closed.
func (c *client) readPump(ctx context.Context, handler frameHandler) {
	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	throttled := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !c.closed() {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.metrics.EventDropped("rate_limited")
			// one error per throttled run
			if !throttled {
				throttled = true
				c.logger.Debug("inbound rate limit exceeded, dropping frames")
				c.Send(domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: "rate limit exceeded"}})
			}
			continue
		}
		throttled = false

		f, err := decodeFrame(data)
		if err != nil {
			c.Send(domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{Message: err.Error()}})
			continue
		}
		handler.Handle(ctx, c.id, f.Type, f.Payload)
	}
}

// writePump is the only writer on conn.
func (c *client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}
