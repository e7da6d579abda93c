package domain

const (
	MessageConnected        = "connected"
	MessageRoomCreated      = "roomCreated"
	MessageRoomJoined       = "roomJoined"
	MessageLiveSync         = "liveSync"
	MessageSyncRequest      = "syncRequest"
	MessageSessionNotFound  = "sessionNotFound"
	MessagePlayStateChanged = "playStateChanged"
	MessageTimeUpdate       = "timeUpdate"
	MessageLiveSessions     = "liveSessions"
	MessagePong             = "pong"
)

// Message is an outbound frame. It marshals to the same {type, payload}
// envelope the clients send.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// LiveSyncPayload carries the playback state of a room. A nil Track tells
// listeners the session ended.
type LiveSyncPayload struct {
	RoomID      string  `json:"roomId"`
	User        User    `json:"user"`
	Track       *Track  `json:"track"`
	CurrentTime float64 `json:"currentTime"`
	IsPaused    bool    `json:"isPaused"`
	InitialSync bool    `json:"initialSync"`
}

type SyncRequestPayload struct {
	RoomID string `json:"roomId"`
	Target string `json:"targetConnection"`
}

type PlayStatePayload struct {
	RoomID   string `json:"roomId"`
	IsPaused bool   `json:"isPaused"`
}

type TimeUpdatePayload struct {
	RoomID      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
}

// SessionNotice announces that a room went live or ended. It is published to
// every coordinator process and pushed to every connected client.
type SessionNotice struct {
	RoomID    string `json:"roomId"`
	HostEmail string `json:"hostEmail"`
	Host      User   `json:"host"`
	Track     *Track `json:"track"`
	Live      bool   `json:"live"`
}

func RoomCreated(roomID string) Message {
	return Message{Type: MessageRoomCreated, Payload: RoomPayload{RoomID: roomID}}
}

func RoomJoined(roomID string) Message {
	return Message{Type: MessageRoomJoined, Payload: RoomPayload{RoomID: roomID}}
}

func SessionNotFound(roomID string) Message {
	return Message{Type: MessageSessionNotFound, Payload: RoomPayload{RoomID: roomID}}
}

func Connected(connID string) Message {
	return Message{Type: MessageConnected, Payload: ConnectedPayload{ConnectionID: connID}}
}

func LiveSync(p LiveSyncPayload) Message {
	return Message{Type: MessageLiveSync, Payload: p}
}

func LiveSessions(n SessionNotice) Message {
	return Message{Type: MessageLiveSessions, Payload: n}
}

func Pong() Message {
	return Message{Type: MessagePong}
}
