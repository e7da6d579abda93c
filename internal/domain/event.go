package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	EventGoLive           = "goLive"
	EventGoOffLive        = "goOffLive"
	EventJoinRoom         = "joinRoom"
	EventLeaveRoom        = "leaveRoom"
	EventHostSync         = "hostSync"
	EventSyncReceived     = "syncReceived"
	EventPlayStateChanged = "playStateChanged"
	EventTimeUpdate       = "timeUpdate"
	EventPing             = "ping"
)

// Event is one of the inbound protocol variants below.
type Event interface {
	Name() string
	validate() error
}

type GoLive struct {
	User        User    `json:"user"`
	Track       *Track  `json:"track"`
	CurrentTime float64 `json:"currentTime"`
}

type GoOffLive struct {
	User User `json:"user"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type HostSync struct {
	Target      string  `json:"targetConnection"`
	Track       *Track  `json:"track"`
	CurrentTime float64 `json:"currentTime"`
	IsPaused    bool    `json:"isPaused"`
}

type SyncReceived struct {
	RoomID string `json:"roomId"`
}

type PlayStateChanged struct {
	IsPaused bool `json:"isPaused"`
}

type TimeUpdate struct {
	CurrentTime float64 `json:"currentTime"`
}

type Ping struct{}

func (GoLive) Name() string           { return EventGoLive }
func (GoOffLive) Name() string        { return EventGoOffLive }
func (JoinRoom) Name() string         { return EventJoinRoom }
func (LeaveRoom) Name() string        { return EventLeaveRoom }
func (HostSync) Name() string         { return EventHostSync }
func (SyncReceived) Name() string     { return EventSyncReceived }
func (PlayStateChanged) Name() string { return EventPlayStateChanged }
func (TimeUpdate) Name() string       { return EventTimeUpdate }
func (Ping) Name() string             { return EventPing }

func (e GoLive) validate() error {
	if NormalizeEmail(e.User.Email) == "" {
		return fmt.Errorf("%s: user.email is required", EventGoLive)
	}

	if e.Track != nil && strings.TrimSpace(e.Track.Name) == "" {
		return fmt.Errorf("%s: track.name is required", EventGoLive)
	}

	return nil
}

func (e GoOffLive) validate() error {
	if NormalizeEmail(e.User.Email) == "" {
		return fmt.Errorf("%s: user.email is required", EventGoOffLive)
	}

	return nil
}

func (e JoinRoom) validate() error     { return requireRoomID(EventJoinRoom, e.RoomID) }
func (e LeaveRoom) validate() error    { return requireRoomID(EventLeaveRoom, e.RoomID) }
func (e SyncReceived) validate() error { return requireRoomID(EventSyncReceived, e.RoomID) }

func (e HostSync) validate() error {
	if strings.TrimSpace(e.Target) == "" {
		return fmt.Errorf("%s: targetConnection is required", EventHostSync)
	}

	return nil
}

func (PlayStateChanged) validate() error { return nil }
func (TimeUpdate) validate() error       { return nil }
func (Ping) validate() error             { return nil }

func requireRoomID(event, roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("%s: roomId is required", event)
	}

	return nil
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEvent parses one wire frame into its event variant. Every failure
// wraps ErrInvalidEvent.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w: %w", ErrInvalidEvent, err)
	}

	var ev Event
	switch env.Type {
	case EventGoLive:
		ev = &GoLive{}
	case EventGoOffLive:
		ev = &GoOffLive{}
	case EventJoinRoom:
		ev = &JoinRoom{}
	case EventLeaveRoom:
		ev = &LeaveRoom{}
	case EventHostSync:
		ev = &HostSync{}
	case EventSyncReceived:
		ev = &SyncReceived{}
	case EventPlayStateChanged:
		ev = &PlayStateChanged{}
	case EventTimeUpdate:
		ev = &TimeUpdate{}
	case EventPing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q: %w", env.Type, ErrInvalidEvent)
	}

	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, fmt.Errorf("%s: missing payload: %w", env.Type, ErrInvalidEvent)
	}

	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, fmt.Errorf("json.Unmarshal %s: %w: %w", env.Type, ErrInvalidEvent, err)
	}

	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *GoLive:
		return *e
	case *GoOffLive:
		return *e
	case *JoinRoom:
		e.RoomID = strings.TrimSpace(e.RoomID)
		return *e
	case *LeaveRoom:
		e.RoomID = strings.TrimSpace(e.RoomID)
		return *e
	case *HostSync:
		e.Target = strings.TrimSpace(e.Target)
		return *e
	case *SyncReceived:
		e.RoomID = strings.TrimSpace(e.RoomID)
		return *e
	case *PlayStateChanged:
		return *e
	case *TimeUpdate:
		return *e
	default:
		return ev
	}
}
