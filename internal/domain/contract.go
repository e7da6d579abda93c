package domain

import (
	"context"
	"time"
)

type RoomStore interface {
	CreateRoom(ctx context.Context, host User, track *Track) (Room, error)
	GetRoomByHost(ctx context.Context, email string) (Room, bool, error)
	GetHostByRoom(ctx context.Context, roomID string) (string, bool, error)
	GetRoom(ctx context.Context, roomID string) (Room, bool, error)
	UpdateTrack(ctx context.Context, email string, track *Track) error
	DeleteRoom(ctx context.Context, email string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// Emitter is the connection transport. Broadcasts never report partial
// failures: a connection that cannot keep up is dropped by the transport.
type Emitter interface {
	Emit(connID string, msg Message)
	Broadcast(roomID string, msg Message, except ...string)
	Join(connID string, roomID string)
	Leave(connID string, roomID string)
}

type Persister interface {
	PersistTrack(ctx context.Context, email string, track *Track)
}

type Announcer interface {
	Announce(ctx context.Context, notice SessionNotice) error
}

// Executor schedules work around the event loop. Post runs f on the loop, Go
// runs f off the loop and AfterFunc posts f to the loop once d has elapsed.
type Executor interface {
	Post(f func())
	Go(f func())
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}
