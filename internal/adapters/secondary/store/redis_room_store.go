package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bravo-music/live/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	sessionsKey   = "liveSessions"
	roomKeyPrefix = "liveRoom:"
)

func roomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

// createScript writes the host record and the reverse index in one step.
// Returns 1 on success, 0 when the host already has a room and -1 when the
// room id is taken.
var createScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

// updateScript overwrites the host record only while it still belongs to the
// room ARGV[2], so a late update never resurrects a deleted room nor rewrites
// the room that replaced it.
var updateScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then
	return 0
end
local ok, current = pcall(cjson.decode, raw)
if not ok or current['roomId'] ~= ARGV[2] then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// deleteScript removes the host record and the reverse key of the room it
// names together.
var deleteScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then
	return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
local ok, current = pcall(cjson.decode, raw)
if ok and type(current) == 'table' and type(current['roomId']) == 'string' then
	local key = ARGV[2] .. current['roomId']
	if redis.call('GET', key) == ARGV[1] then
		redis.call('DEL', key)
	end
end
return 1
`)

// RedisRoomStore persists rooms in the hash liveSessions (host email -> room
// JSON) with a liveRoom:<id> -> host email reverse index.
type RedisRoomStore struct {
	rdb   redis.Cmdable
	newID func() string
	now   func() time.Time
}

func NewRedisRoomStore(rdb redis.Cmdable) *RedisRoomStore {
	return &RedisRoomStore{
		rdb:   rdb,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func (s *RedisRoomStore) CreateRoom(ctx context.Context, host domain.User, track *domain.Track) (domain.Room, error) {
	email := domain.NormalizeEmail(host.Email)
	host.Email = email
	now := s.now().UTC()

	for i := 0; i < maxIDAttempts; i++ {
		room := domain.Room{
			RoomID:    s.newID(),
			HostEmail: email,
			Host:      host,
			Track:     track,
			StartedAt: now,
			UpdatedAt: now,
		}

		b, err := json.Marshal(room)
		if err != nil {
			return domain.Room{}, fmt.Errorf("json.Marshal: %w", err)
		}

		res, err := createScript.Run(ctx, s.rdb, []string{sessionsKey, roomKey(room.RoomID)}, email, b).Int()
		if err != nil {
			return domain.Room{}, unavailable("createScript.Run", err)
		}

		switch res {
		case 1:
			return room, nil
		case 0:
			return domain.Room{}, domain.ErrRoomExists
		default:
			slog.DebugContext(ctx, "room id collision, retrying", "room", room.RoomID)
		}
	}

	return domain.Room{}, domain.ErrRoomIDGenerationFailed
}

func (s *RedisRoomStore) GetRoomByHost(ctx context.Context, email string) (domain.Room, bool, error) {
	raw, err := s.rdb.HGet(ctx, sessionsKey, domain.NormalizeEmail(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Room{}, false, nil
	}
	if err != nil {
		return domain.Room{}, false, unavailable("rdb.HGet", err)
	}

	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return domain.Room{}, false, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return room, true, nil
}

func (s *RedisRoomStore) GetHostByRoom(ctx context.Context, roomID string) (string, bool, error) {
	email, err := s.rdb.Get(ctx, roomKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("rdb.Get", err)
	}

	return email, true, nil
}

func (s *RedisRoomStore) GetRoom(ctx context.Context, roomID string) (domain.Room, bool, error) {
	email, ok, err := s.GetHostByRoom(ctx, roomID)
	if err != nil || !ok {
		return domain.Room{}, false, err
	}

	room, ok, err := s.GetRoomByHost(ctx, email)
	if err != nil || !ok {
		return domain.Room{}, false, err
	}

	// A reverse key left behind by an older room of the same host.
	if room.RoomID != roomID {
		return domain.Room{}, false, nil
	}

	return room, true, nil
}

func (s *RedisRoomStore) UpdateTrack(ctx context.Context, email string, track *domain.Track) error {
	room, ok, err := s.GetRoomByHost(ctx, email)
	if err != nil {
		return fmt.Errorf("s.GetRoomByHost: %w", err)
	}
	if !ok {
		return nil
	}

	room.Track = track
	room.UpdatedAt = s.now().UTC()

	b, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := updateScript.Run(ctx, s.rdb, []string{sessionsKey}, room.HostEmail, room.RoomID, b).Err(); err != nil {
		return unavailable("updateScript.Run", err)
	}

	return nil
}

func (s *RedisRoomStore) DeleteRoom(ctx context.Context, email string) error {
	if err := deleteScript.Run(ctx, s.rdb, []string{sessionsKey}, domain.NormalizeEmail(email), roomKeyPrefix).Err(); err != nil {
		return unavailable("deleteScript.Run", err)
	}

	return nil
}

func (s *RedisRoomStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	all, err := s.rdb.HGetAll(ctx, sessionsKey).Result()
	if err != nil {
		return nil, unavailable("rdb.HGetAll", err)
	}

	rooms := make([]domain.Room, 0, len(all))
	for email, raw := range all {
		var room domain.Room
		if err := json.Unmarshal([]byte(raw), &room); err != nil {
			slog.WarnContext(ctx, "skipping unreadable room record", "host", email, "error", err)
			continue
		}
		rooms = append(rooms, room)
	}
	sortRooms(rooms)

	return rooms, nil
}
