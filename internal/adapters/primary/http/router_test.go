package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/bravo-music/live/internal/adapters/primary/http"
	"github.com/bravo-music/live/internal/adapters/secondary/store"
	"github.com/bravo-music/live/internal/domain"
	"github.com/stretchr/testify/require"
)

type pinger struct {
	err error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.err
}

type brokenLister struct{}

func (brokenLister) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return nil, domain.ErrStoreUnavailable
}

var wsStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func do(h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestRouter(t *testing.T) {
	t.Parallel()

	t.Run("it should answer the liveness probe", func(t *testing.T) {
		r := httpadapter.NewRouter(store.NewMemoryRoomStore(), nil, wsStub, nil)
		require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", nil).Code)
	})

	t.Run("it should report readiness from the store ping", func(t *testing.T) {
		ok := httpadapter.NewRouter(store.NewMemoryRoomStore(), pinger{}, wsStub, nil)
		require.Equal(t, http.StatusOK, do(ok, http.MethodGet, "/ready", nil).Code)

		down := httpadapter.NewRouter(store.NewMemoryRoomStore(), pinger{err: errors.New("dial tcp: refused")}, wsStub, nil)
		require.Equal(t, http.StatusServiceUnavailable, do(down, http.MethodGet, "/ready", nil).Code)
	})

	t.Run("it should list live sessions", func(t *testing.T) {
		rooms := store.NewMemoryRoomStore()
		_, err := rooms.CreateRoom(context.Background(), domain.User{Email: "host@example.com"}, &domain.Track{Name: "So What", Artist: "Miles Davis"})
		require.NoError(t, err)

		rec := do(httpadapter.NewRouter(rooms, nil, wsStub, nil), http.MethodGet, "/api/live", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got []domain.Room
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		require.Equal(t, "host@example.com", got[0].HostEmail)
		require.Equal(t, "So What", got[0].Track.Name)
	})

	t.Run("it should return an empty array when nobody is live", func(t *testing.T) {
		rec := do(httpadapter.NewRouter(store.NewMemoryRoomStore(), nil, wsStub, nil), http.MethodGet, "/api/live", nil)
		require.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("it should fail listing when the store is down", func(t *testing.T) {
		rec := do(httpadapter.NewRouter(brokenLister{}, nil, wsStub, nil), http.MethodGet, "/api/live", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	})

	t.Run("it should route websocket upgrades", func(t *testing.T) {
		r := httpadapter.NewRouter(store.NewMemoryRoomStore(), nil, wsStub, nil)
		require.Equal(t, http.StatusTeapot, do(r, http.MethodGet, "/ws", nil).Code)
	})

	t.Run("it should answer cors preflight for allowed origins", func(t *testing.T) {
		r := httpadapter.NewRouter(store.NewMemoryRoomStore(), nil, wsStub, []string{"https://app.example"})

		rec := do(r, http.MethodOptions, "/api/live", http.Header{
			"Origin":                        {"https://app.example"},
			"Access-Control-Request-Method": {"GET"},
		})
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
