package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/bravo-music/live/internal/adapters/secondary/messenger"
	"github.com/bravo-music/live/internal/domain"
	"github.com/bravo-music/live/internal/infrastructure/idgen"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const maxFrameSize = 64 << 10

type Dispatcher interface {
	Connect(ctx context.Context, connID string)
	Handle(ctx context.Context, connID string, ev domain.Event)
	Disconnect(ctx context.Context, connID string)
}

type Poster interface {
	Post(f func())
}

type Options struct {
	AllowedOrigins []string
	EventsPerSec   float64
	EventBurst     int
}

type Handler struct {
	hub        *messenger.Hub
	dispatcher Dispatcher
	loop       Poster
	upgrader   websocket.Upgrader
	limit      rate.Limit
	burst      int
	newID      func() string
}

func NewHandler(hub *messenger.Hub, dispatcher Dispatcher, loop Poster, opts Options) *Handler {
	if opts.EventsPerSec <= 0 {
		opts.EventsPerSec = 20
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 40
	}

	origins := opts.AllowedOrigins
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		loop:       loop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
					return true
				}
				return slices.Contains(origins, origin)
			},
		},
		limit: rate.Limit(opts.EventsPerSec),
		burst: opts.EventBurst,
		newID: idgen.NewConnectionID,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	// Room teardown on disconnect must outlive the request.
	ctx := context.WithoutCancel(r.Context())
	connID := h.newID()

	m := h.hub.Register(connID, conn)
	writeCtx, stopWriting := context.WithCancel(ctx)
	defer stopWriting()
	go m.WritePump(writeCtx)

	h.loop.Post(func() { h.dispatcher.Connect(ctx, connID) })
	slog.InfoContext(ctx, "client connected", "conn", connID, "remote", r.RemoteAddr)

	h.readLoop(ctx, connID, conn)

	h.hub.Unregister(connID)
	m.Close()
	h.loop.Post(func() { h.dispatcher.Disconnect(ctx, connID) })
	slog.InfoContext(ctx, "client disconnected", "conn", connID)
}

func (h *Handler) readLoop(ctx context.Context, connID string, conn *websocket.Conn) {
	limiter := rate.NewLimiter(h.limit, h.burst)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(messenger.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(messenger.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "error reading frame", "conn", connID, "error", err)
			}
			return
		}

		if !limiter.Allow() {
			slog.WarnContext(ctx, "event rate exceeded, frame dropped", "conn", connID)
			continue
		}

		ev, err := domain.DecodeEvent(data)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidEvent) {
				slog.WarnContext(ctx, "invalid event dropped", "conn", connID, "error", err)
			}
			continue
		}

		h.loop.Post(func() { h.dispatcher.Handle(ctx, connID, ev) })
	}
}
