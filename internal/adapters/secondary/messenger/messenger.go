package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bravo-music/live/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

// Messenger is the outbound side of one websocket connection. Frames are
// queued and written by WritePump, so senders never block on the network.
type Messenger struct {
	ID        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

var (
	errMessengerClosed = errors.New("messenger closed")
	errSendQueueFull   = errors.New("send queue full")
)

func (m *Messenger) enqueue(frame []byte) error {
	select {
	case <-m.closed:
		return errMessengerClosed
	default:
	}

	select {
	case m.send <- frame:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops the write pump and closes the underlying connection, which in
// turn ends the connection's read loop.
func (m *Messenger) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
		_ = m.conn.Close()
	})
}

func (m *Messenger) WritePump(ctx context.Context) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		m.Close()
	}()

	for {
		select {
		case <-m.closed:
			return
		case <-ctx.Done():
			_ = m.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is closing"), time.Now().Add(WriteWait))
			return
		case frame := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := m.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.DebugContext(ctx, "error writing frame", "conn", m.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = m.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.DebugContext(ctx, "error writing ping", "conn", m.ID, "error", err)
				return
			}
		}
	}
}

// Hub tracks live connections and their room groups. It implements
// domain.Emitter and is safe for concurrent use.
type Hub struct {
	mu         sync.RWMutex
	messengers map[string]*Messenger
	rooms      map[string]map[string]struct{}
	memberOf   map[string]map[string]struct{}
	sendBuffer int
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}

	return &Hub{
		messengers: make(map[string]*Messenger),
		rooms:      make(map[string]map[string]struct{}),
		memberOf:   make(map[string]map[string]struct{}),
		sendBuffer: sendBuffer,
	}
}

func (h *Hub) Register(id string, conn *websocket.Conn) *Messenger {
	m := &Messenger{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		closed: make(chan struct{}),
	}

	h.mu.Lock()
	h.messengers[id] = m
	h.mu.Unlock()

	return m
}

// Unregister forgets the connection and removes it from every room group.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.messengers, id)
	for roomID := range h.memberOf[id] {
		h.leaveLocked(id, roomID)
	}
	delete(h.memberOf, id)
}

func (h *Hub) Join(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.messengers[connID]; !ok {
		return
	}

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}

	rooms, ok := h.memberOf[connID]
	if !ok {
		rooms = make(map[string]struct{})
		h.memberOf[connID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(connID, roomID)
}

func (h *Hub) leaveLocked(connID, roomID string) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}

	if rooms, ok := h.memberOf[connID]; ok {
		delete(rooms, roomID)
	}
}

func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		out = append(out, connID)
	}

	return out
}

func (h *Hub) Emit(connID string, msg domain.Message) {
	frame, ok := encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	m, ok := h.messengers[connID]
	h.mu.RUnlock()

	if ok {
		h.deliver(m, frame)
	}
}

func (h *Hub) Broadcast(roomID string, msg domain.Message, except ...string) {
	frame, ok := encode(msg)
	if !ok {
		return
	}

	skip := make(map[string]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}

	h.mu.RLock()
	targets := make([]*Messenger, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		if _, ok := skip[connID]; ok {
			continue
		}
		if m, ok := h.messengers[connID]; ok {
			targets = append(targets, m)
		}
	}
	h.mu.RUnlock()

	for _, m := range targets {
		h.deliver(m, frame)
	}
}

func (h *Hub) BroadcastAll(msg domain.Message) {
	frame, ok := encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	targets := make([]*Messenger, 0, len(h.messengers))
	for _, m := range h.messengers {
		targets = append(targets, m)
	}
	h.mu.RUnlock()

	for _, m := range targets {
		h.deliver(m, frame)
	}
}

// deliver queues a frame. A connection whose queue is full is closed rather
// than allowed to stall the fan-out.
func (h *Hub) deliver(m *Messenger, frame []byte) {
	err := m.enqueue(frame)
	if !errors.Is(err, errSendQueueFull) {
		return
	}

	slog.Warn("send queue full, closing slow connection", "conn", m.ID)
	m.Close()
}

// Close tells every client the server is going away.
func (h *Hub) Close() {
	h.mu.RLock()
	targets := make([]*Messenger, 0, len(h.messengers))
	for _, m := range h.messengers {
		targets = append(targets, m)
	}
	h.mu.RUnlock()

	for _, m := range targets {
		_ = m.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is closing"), time.Now().Add(WriteWait))
		m.Close()
	}
}

func encode(msg domain.Message) ([]byte, bool) {
	frame, err := json.Marshal(msg)
	if err != nil {
		slog.Error("error encoding message", "type", msg.Type, "error", err)
		return nil, false
	}

	return frame, true
}
