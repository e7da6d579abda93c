package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bravo-music/live/internal/domain"
	"github.com/google/uuid"
)

const maxIDAttempts = 10

// MemoryRoomStore keeps rooms in process memory. It backs tests and single
// node deployments that run without Redis.
type MemoryRoomStore struct {
	rooms map[string]domain.Room
	index map[string]string
	newID func() string
	now   func() time.Time
	sync.RWMutex
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms: make(map[string]domain.Room),
		index: make(map[string]string),
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

func (s *MemoryRoomStore) CreateRoom(ctx context.Context, host domain.User, track *domain.Track) (domain.Room, error) {
	s.Lock()
	defer s.Unlock()

	email := domain.NormalizeEmail(host.Email)
	if _, ok := s.rooms[email]; ok {
		return domain.Room{}, domain.ErrRoomExists
	}

	roomID := ""
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if _, taken := s.index[id]; !taken {
			roomID = id
			break
		}
	}
	if roomID == "" {
		return domain.Room{}, domain.ErrRoomIDGenerationFailed
	}

	host.Email = email
	now := s.now().UTC()
	room := domain.Room{
		RoomID:    roomID,
		HostEmail: email,
		Host:      host,
		Track:     track,
		StartedAt: now,
		UpdatedAt: now,
	}

	s.rooms[email] = room
	s.index[roomID] = email

	return room, nil
}

func (s *MemoryRoomStore) GetRoomByHost(ctx context.Context, email string) (domain.Room, bool, error) {
	s.RLock()
	defer s.RUnlock()

	room, ok := s.rooms[domain.NormalizeEmail(email)]
	return room, ok, nil
}

func (s *MemoryRoomStore) GetHostByRoom(ctx context.Context, roomID string) (string, bool, error) {
	s.RLock()
	defer s.RUnlock()

	email, ok := s.index[roomID]
	return email, ok, nil
}

func (s *MemoryRoomStore) GetRoom(ctx context.Context, roomID string) (domain.Room, bool, error) {
	s.RLock()
	defer s.RUnlock()

	email, ok := s.index[roomID]
	if !ok {
		return domain.Room{}, false, nil
	}

	room, ok := s.rooms[email]
	return room, ok, nil
}

func (s *MemoryRoomStore) UpdateTrack(ctx context.Context, email string, track *domain.Track) error {
	s.Lock()
	defer s.Unlock()

	email = domain.NormalizeEmail(email)
	room, ok := s.rooms[email]
	if !ok {
		return nil
	}

	room.Track = track
	room.UpdatedAt = s.now().UTC()
	s.rooms[email] = room

	return nil
}

func (s *MemoryRoomStore) DeleteRoom(ctx context.Context, email string) error {
	s.Lock()
	defer s.Unlock()

	email = domain.NormalizeEmail(email)
	room, ok := s.rooms[email]
	if !ok {
		return nil
	}

	delete(s.rooms, email)
	if s.index[room.RoomID] == email {
		delete(s.index, room.RoomID)
	}

	return nil
}

func (s *MemoryRoomStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	s.RLock()
	defer s.RUnlock()

	rooms := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	sortRooms(rooms)

	return rooms, nil
}

func sortRooms(rooms []domain.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].StartedAt.Equal(rooms[j].StartedAt) {
			return rooms[i].HostEmail < rooms[j].HostEmail
		}
		return rooms[i].StartedAt.Before(rooms[j].StartedAt)
	})
}
