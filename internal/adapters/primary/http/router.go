package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bravo-music/live/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RoomLister interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewRouter(rooms RoomLister, pinger Pinger, ws http.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/ready", ready(pinger))
	r.Get("/api/live", listLive(rooms))
	r.Handle("/ws", ws)

	return r
}

func ready(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "readiness check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// listLive returns every room of the durable projection, live or stale.
func listLive(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := rooms.ListRooms(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "error listing live sessions", "error", err)
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
			return
		}

		respondJSON(w, http.StatusOK, list)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}
