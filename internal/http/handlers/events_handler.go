package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/http/middleware"
)

const (
	// clients only send control frames
	maxEventMessageSize = 1024

	defaultEventWriteTimeout = 10 * time.Second
	defaultEventPingInterval = 45 * time.Second
	defaultEventReadTimeout  = 90 * time.Second
)

// EventOptions configures the /events stream.
type EventOptions struct {
	// AllowedOrigins restricts browser origins; empty or "*" allows any.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string
	// PingInterval is the keep-alive period.
	PingInterval time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// ReadTimeout closes the stream when no pong arrives in time.
	ReadTimeout time.Duration
	// Done closes every open stream with a going-away frame when closed.
	Done <-chan struct{}
}

func defaultEventOptions() EventOptions {
	return EventOptions{}.withDefaults()
}

func (o EventOptions) withDefaults() EventOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultEventPingInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultEventWriteTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultEventReadTimeout
	}
	if o.ReadTimeout <= o.PingInterval {
		o.ReadTimeout = 2 * o.PingInterval
	}
	return o
}

func (o EventOptions) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(o.AllowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range o.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

// Event is one frame of the /events stream.
type Event struct {
	Type     string         `json:"type" example:"snapshot"`
	Snapshot cache.Snapshot `json:"snapshot"`
}

// Events godoc
// @ID          events
// @Summary     Subscribe to cache changes
// @Description Upgrades to a WebSocket. The server sends a snapshot immediately and again after every cache change; intermediate versions may be skipped when the client reads slowly.
// @Tags        Feed
// @Success     101  {object}  handlers.Event
// @Failure     400  {object}  handlers.ErrorResponse  "Not a WebSocket upgrade"
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "websocket upgrade required")
		return
	}

	up := websocket.Upgrader{CheckOrigin: h.events.checkOrigin}
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader already responded
		middleware.LoggerFrom(c).Debug().Err(err).Msg("events upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.cache.Subscribe()
	defer cancel()

	lg := middleware.LoggerFrom(c)
	lg.Debug().Msg("events stream opened")
	if err := h.stream(c.Request.Context(), conn, updates); err != nil {
		lg.Debug().Err(err).Msg("events stream closed")
	}
}

func (h *Handlers) stream(ctx context.Context, conn *websocket.Conn, updates <-chan uint64) error {
	o := h.events

	conn.SetReadLimit(maxEventMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(o.ReadTimeout))
	})

	// The reader only drives pong and close handling.
	readErr := make(chan error, 1)
	go func() {
		if err := conn.SetReadDeadline(time.Now().Add(o.ReadTimeout)); err != nil {
			readErr <- err
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()

	if err := h.sendSnapshot(conn); err != nil {
		return err
	}

	ping := time.NewTicker(o.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return goingAway(conn, o.WriteTimeout)
		case <-o.Done:
			return goingAway(conn, o.WriteTimeout)
		case err := <-readErr:
			return err
		case _, open := <-updates:
			if !open {
				return errors.New("subscription closed")
			}
			if err := h.sendSnapshot(conn); err != nil {
				return err
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(o.WriteTimeout)); err != nil {
				return err
			}
		}
	}
}

func (h *Handlers) sendSnapshot(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.events.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(Event{Type: "snapshot", Snapshot: h.cache.Snapshot()})
}

func goingAway(conn *websocket.Conn, timeout time.Duration) error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
}
