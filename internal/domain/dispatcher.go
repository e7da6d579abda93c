package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type DispatcherConfig struct {
	DebounceWindow    time.Duration
	SyncRetryInterval time.Duration
	SyncMaxAttempts   int
	StaleGrace        time.Duration
	Now               func() time.Time
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 2 * time.Second
	}
	if c.SyncRetryInterval <= 0 {
		c.SyncRetryInterval = 3 * time.Second
	}
	if c.SyncMaxAttempts <= 0 {
		c.SyncMaxAttempts = 3
	}
	if c.StaleGrace <= 0 {
		c.StaleGrace = 2 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

type lastGoLive struct {
	email string
	track string
	at    time.Time
}

// claim is a go-live waiting on the store. Later announcements for the same
// host overwrite the claim so the last writer ends up as host.
type claim struct {
	connID string
	user   User
	track  *Track
	at     float64
	queued bool
}

// Dispatcher drives the room state machine. Every exported method must be
// called from the event loop; store I/O is pushed off the loop through the
// Executor and resumed with Post.
type Dispatcher struct {
	store     RoomStore
	registry  *Registry
	emitter   Emitter
	persister Persister
	announcer Announcer
	exec      Executor
	cfg       DispatcherConfig

	conns        map[string]struct{}
	debounce     map[string]lastGoLive
	claims       map[string]*claim
	deleting     map[string]bool
	unboundSince map[string]time.Time
}

func NewDispatcher(
	store RoomStore,
	registry *Registry,
	emitter Emitter,
	persister Persister,
	announcer Announcer,
	exec Executor,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		store:        store,
		registry:     registry,
		emitter:      emitter,
		persister:    persister,
		announcer:    announcer,
		exec:         exec,
		cfg:          cfg.withDefaults(),
		conns:        make(map[string]struct{}),
		debounce:     make(map[string]lastGoLive),
		claims:       make(map[string]*claim),
		deleting:     make(map[string]bool),
		unboundSince: make(map[string]time.Time),
	}
}

func (d *Dispatcher) Connect(ctx context.Context, connID string) {
	d.conns[connID] = struct{}{}
	d.emitter.Emit(connID, Connected(connID))
	slog.DebugContext(ctx, "connection opened", "conn", connID)
}

func (d *Dispatcher) connected(connID string) bool {
	_, ok := d.conns[connID]
	return ok
}

func (d *Dispatcher) Handle(ctx context.Context, connID string, ev Event) {
	if !d.connected(connID) {
		slog.DebugContext(ctx, "event from unknown connection dropped", "conn", connID, "event", ev.Name())
		return
	}

	switch e := ev.(type) {
	case GoLive:
		d.GoLive(ctx, connID, e)
	case GoOffLive:
		d.GoOffLive(ctx, connID, e)
	case JoinRoom:
		d.JoinRoom(ctx, connID, e)
	case LeaveRoom:
		d.LeaveRoom(ctx, connID, e)
	case HostSync:
		d.HostSync(ctx, connID, e)
	case SyncReceived:
		d.SyncReceived(ctx, connID, e)
	case PlayStateChanged:
		d.PlayStateChanged(ctx, connID, e)
	case TimeUpdate:
		d.TimeUpdate(ctx, connID, e)
	case Ping:
		d.emitter.Emit(connID, Pong())
	default:
		slog.WarnContext(ctx, "unhandled event", "conn", connID, "event", ev.Name())
	}
}

func (d *Dispatcher) GoLive(ctx context.Context, connID string, e GoLive) {
	email := NormalizeEmail(e.User.Email)
	if email == "" {
		slog.WarnContext(ctx, "goLive without email dropped", "conn", connID)
		return
	}
	user := e.User
	user.Email = email

	now := d.cfg.Now()
	key := trackKey(e.Track)
	if last, ok := d.debounce[connID]; ok && last.email == email && last.track == key && now.Sub(last.at) < d.cfg.DebounceWindow {
		if b, ok := d.registry.HostedBy(connID); ok && b.Email() == email {
			b.CurrentTime = e.CurrentTime
		}
		slog.DebugContext(ctx, "duplicate goLive ignored", "conn", connID, "host", email)
		return
	}
	d.debounce[connID] = lastGoLive{email: email, track: key, at: now}

	if b, ok := d.registry.HostedBy(connID); ok {
		if b.Email() == email {
			d.updateLive(ctx, b, e)
			return
		}

		d.endSession(ctx, b)
	}

	if b, ok := d.registry.HostByEmail(email); ok {
		slog.InfoContext(ctx, "host re-announced from new connection", "room", b.RoomID, "host", email, "conn", connID, "previous", b.ConnID)
		d.emitter.Leave(b.ConnID, b.RoomID)
		b = d.registry.RegisterHost(b.RoomID, connID, user, b.Track)
		d.emitter.Join(connID, b.RoomID)
		d.emitter.Emit(connID, RoomCreated(b.RoomID))
		d.updateLive(ctx, b, e)
		return
	}

	if c, ok := d.claims[email]; ok {
		c.connID, c.user, c.track, c.at = connID, user, e.Track, e.CurrentTime
		return
	}

	c := &claim{connID: connID, user: user, track: e.Track, at: e.CurrentTime}
	d.claims[email] = c
	if d.deleting[email] {
		c.queued = true
		return
	}

	d.loadOrCreate(ctx, email, c)
}

func (d *Dispatcher) loadOrCreate(ctx context.Context, email string, c *claim) {
	user, track := c.user, c.track

	d.exec.Go(func() {
		room, created, err := d.fetchOrCreateRoom(ctx, email, user, track)
		d.exec.Post(func() {
			d.finishGoLive(ctx, email, room, created, err)
		})
	})
}

func (d *Dispatcher) fetchOrCreateRoom(ctx context.Context, email string, user User, track *Track) (Room, bool, error) {
	room, found, err := d.store.GetRoomByHost(ctx, email)
	if err != nil {
		return Room{}, false, err
	}
	if found {
		return room, false, nil
	}

	room, err = d.store.CreateRoom(ctx, user, track)
	if errors.Is(err, ErrRoomExists) {
		room, found, err = d.store.GetRoomByHost(ctx, email)
		if err == nil && !found {
			err = ErrSessionNotFound
		}
		return room, false, err
	}
	if err != nil {
		return Room{}, false, err
	}

	return room, true, nil
}

func (d *Dispatcher) finishGoLive(ctx context.Context, email string, room Room, created bool, err error) {
	c, ok := d.claims[email]
	delete(d.claims, email)

	if err != nil {
		slog.ErrorContext(ctx, "error loading room for goLive", "host", email, "error", err)
		if ok {
			if last, found := d.debounce[c.connID]; found && last.email == email {
				delete(d.debounce, c.connID)
			}
		}
		return
	}

	if !ok || !d.connected(c.connID) {
		if created {
			slog.InfoContext(ctx, "host left before room was ready, removing room", "room", room.RoomID, "host", email)
			d.deleteRoom(ctx, email)
		}
		return
	}

	delete(d.unboundSince, room.RoomID)

	b := d.registry.RegisterHost(room.RoomID, c.connID, c.user, room.Track)
	b.CurrentTime = c.at
	d.emitter.Join(c.connID, room.RoomID)
	d.emitter.Emit(c.connID, RoomCreated(room.RoomID))

	changed := c.track != nil && !SameTrack(room.Track, c.track)
	if changed {
		b.Track = c.track
		d.persister.PersistTrack(ctx, email, c.track)
	}

	if created {
		slog.InfoContext(ctx, "room created", "room", room.RoomID, "host", email, "conn", c.connID)
		d.broadcastState(b)
		d.announce(ctx, b, true)
		return
	}

	slog.InfoContext(ctx, "host bound to existing room", "room", room.RoomID, "host", email, "conn", c.connID)
	if changed {
		d.broadcastState(b)
	}
}

// updateLive applies a goLive from the current host. Offset-only reports are
// absorbed without a broadcast. A null track is reserved for termination, so
// it never replaces the room's track.
func (d *Dispatcher) updateLive(ctx context.Context, b *HostBinding, e GoLive) {
	b.CurrentTime = e.CurrentTime
	if e.User.Name != "" {
		b.Host.Name = e.User.Name
	}
	if e.User.Picture != "" {
		b.Host.Picture = e.User.Picture
	}

	if e.Track == nil || SameTrack(b.Track, e.Track) {
		return
	}

	b.Track = e.Track
	d.broadcastState(b)
	d.persister.PersistTrack(ctx, b.Email(), e.Track)
}

func (d *Dispatcher) GoOffLive(ctx context.Context, connID string, e GoOffLive) {
	email := NormalizeEmail(e.User.Email)

	if b, ok := d.registry.HostedBy(connID); ok && b.Email() == email {
		d.endSession(ctx, b)
		return
	}

	if b, ok := d.registry.HostByEmail(email); ok {
		slog.WarnContext(ctx, "goOffLive from non-host connection ignored", "room", b.RoomID, "host", email, "conn", connID)
		return
	}

	if c, ok := d.claims[email]; ok && c.connID == connID {
		delete(d.claims, email)
	}

	// No binding in this process: the room may be stale from a restart.
	d.exec.Go(func() {
		room, found, err := d.store.GetRoomByHost(ctx, email)
		d.exec.Post(func() {
			if err != nil {
				slog.ErrorContext(ctx, "error loading room for goOffLive", "host", email, "error", err)
				return
			}
			if !found {
				return
			}
			if _, ok := d.registry.Host(room.RoomID); ok {
				return
			}
			d.endStale(ctx, room)
		})
	})
}

// endSession tears a live room down: binding, pending listeners, durable
// record. Listeners get a termination liveSync.
func (d *Dispatcher) endSession(ctx context.Context, b *HostBinding) {
	d.registry.RemoveHost(b.RoomID)
	d.registry.ClearPending(b.RoomID)

	d.emitter.Broadcast(b.RoomID, LiveSync(LiveSyncPayload{RoomID: b.RoomID, User: b.Host}), b.ConnID)
	d.emitter.Leave(b.ConnID, b.RoomID)

	slog.InfoContext(ctx, "room ended", "room", b.RoomID, "host", b.Email())
	d.deleteRoom(ctx, b.Email())
	d.announce(ctx, b, false)
}

func (d *Dispatcher) endStale(ctx context.Context, room Room) {
	delete(d.unboundSince, room.RoomID)
	d.registry.ClearPending(room.RoomID)
	d.emitter.Broadcast(room.RoomID, LiveSync(LiveSyncPayload{RoomID: room.RoomID, User: room.Host}))

	slog.InfoContext(ctx, "stale room removed", "room", room.RoomID, "host", room.HostEmail)
	d.deleteRoom(ctx, room.HostEmail)
	d.announce(ctx, &HostBinding{RoomID: room.RoomID, Host: room.Host}, false)
}

func (d *Dispatcher) deleteRoom(ctx context.Context, email string) {
	d.deleting[email] = true

	d.exec.Go(func() {
		err := d.store.DeleteRoom(ctx, email)
		d.exec.Post(func() {
			delete(d.deleting, email)
			if err != nil {
				slog.ErrorContext(ctx, "error deleting room", "host", email, "error", err)
			}

			if c, ok := d.claims[email]; ok && c.queued {
				c.queued = false
				d.loadOrCreate(ctx, email, c)
			}
		})
	})
}

func (d *Dispatcher) JoinRoom(ctx context.Context, connID string, e JoinRoom) {
	if b, ok := d.registry.Host(e.RoomID); ok {
		d.joinLive(ctx, connID, b)
		return
	}

	roomID := e.RoomID
	d.exec.Go(func() {
		room, found, err := d.store.GetRoom(ctx, roomID)
		d.exec.Post(func() {
			d.finishJoin(ctx, connID, roomID, room, found, err)
		})
	})
}

func (d *Dispatcher) finishJoin(ctx context.Context, connID, roomID string, room Room, found bool, err error) {
	if !d.connected(connID) {
		return
	}

	// The host may have (re)bound while the store was being read.
	if b, ok := d.registry.Host(roomID); ok {
		d.joinLive(ctx, connID, b)
		return
	}

	if err != nil {
		slog.ErrorContext(ctx, "error loading room for joinRoom", "room", roomID, "error", err)
	}

	if err != nil || !found {
		d.emitter.Emit(connID, SessionNotFound(roomID))
		return
	}

	d.emitter.Join(connID, roomID)
	d.emitter.Emit(connID, RoomJoined(roomID))
	d.emitter.Emit(connID, LiveSync(LiveSyncPayload{
		RoomID:      roomID,
		User:        room.Host,
		Track:       room.Track,
		InitialSync: true,
	}))
	slog.InfoContext(ctx, "listener joined stale room", "room", roomID, "conn", connID)
}

func (d *Dispatcher) joinLive(ctx context.Context, connID string, b *HostBinding) {
	d.emitter.Join(connID, b.RoomID)
	d.emitter.Emit(connID, RoomJoined(b.RoomID))
	if b.ConnID == connID {
		return
	}

	p := d.registry.AddPendingListener(b.RoomID, connID)
	if p.Delivered {
		return
	}

	d.requestSync(ctx, p)
	slog.InfoContext(ctx, "listener joined live room", "room", b.RoomID, "conn", connID)
}

func (d *Dispatcher) requestSync(ctx context.Context, p *PendingSync) {
	b, ok := d.registry.Host(p.RoomID)
	if !ok {
		d.registry.RemovePendingListener(p.RoomID, p.ConnID)
		return
	}

	p.Attempts++
	d.emitter.Emit(b.ConnID, Message{Type: MessageSyncRequest, Payload: SyncRequestPayload{RoomID: p.RoomID, Target: p.ConnID}})

	roomID, connID := p.RoomID, p.ConnID
	d.exec.AfterFunc(d.cfg.SyncRetryInterval, func() {
		d.retrySync(ctx, roomID, connID)
	})
}

func (d *Dispatcher) retrySync(ctx context.Context, roomID, connID string) {
	p, ok := d.registry.Pending(roomID, connID)
	if !ok || p.Delivered {
		return
	}

	if p.Attempts < d.cfg.SyncMaxAttempts {
		slog.DebugContext(ctx, "host did not sync listener, asking again", "room", roomID, "conn", connID, "attempts", p.Attempts)
		d.requestSync(ctx, p)
		return
	}

	b, ok := d.registry.Host(roomID)
	if !ok {
		d.registry.RemovePendingListener(roomID, connID)
		return
	}

	slog.WarnContext(ctx, "host never answered sync request, sending cached state", "room", roomID, "conn", connID)
	d.emitter.Emit(connID, LiveSync(b.snapshot(true)))
	p.Delivered = true
}

func (d *Dispatcher) HostSync(ctx context.Context, connID string, e HostSync) {
	b, ok := d.registry.HostedBy(connID)
	if !ok {
		slog.WarnContext(ctx, "hostSync from non-host connection dropped", "conn", connID)
		return
	}

	p, ok := d.registry.Pending(b.RoomID, e.Target)
	if !ok || p.Delivered {
		return
	}

	state := b.snapshot(true)
	if e.Track != nil {
		state.Track = e.Track
	}
	state.CurrentTime = e.CurrentTime
	state.IsPaused = e.IsPaused

	d.emitter.Emit(e.Target, LiveSync(state))
	p.Delivered = true
}

func (d *Dispatcher) SyncReceived(ctx context.Context, connID string, e SyncReceived) {
	d.registry.RemovePendingListener(e.RoomID, connID)
}

func (d *Dispatcher) LeaveRoom(ctx context.Context, connID string, e LeaveRoom) {
	if b, ok := d.registry.HostedBy(connID); ok && b.RoomID == e.RoomID {
		slog.WarnContext(ctx, "host cannot leave its own room, use goOffLive", "room", e.RoomID, "conn", connID)
		return
	}

	d.registry.RemovePendingListener(e.RoomID, connID)
	d.emitter.Leave(connID, e.RoomID)
}

func (d *Dispatcher) PlayStateChanged(ctx context.Context, connID string, e PlayStateChanged) {
	b, ok := d.registry.HostedBy(connID)
	if !ok {
		return
	}

	b.IsPaused = e.IsPaused
	d.broadcast(b, Message{Type: MessagePlayStateChanged, Payload: PlayStatePayload{RoomID: b.RoomID, IsPaused: e.IsPaused}})
}

func (d *Dispatcher) TimeUpdate(ctx context.Context, connID string, e TimeUpdate) {
	b, ok := d.registry.HostedBy(connID)
	if !ok {
		return
	}

	b.CurrentTime = e.CurrentTime
	d.broadcast(b, Message{Type: MessageTimeUpdate, Payload: TimeUpdatePayload{RoomID: b.RoomID, CurrentTime: e.CurrentTime}})
}

func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	delete(d.conns, connID)
	delete(d.debounce, connID)

	for _, b := range d.registry.DropConnection(connID) {
		slog.InfoContext(ctx, "host disconnected", "room", b.RoomID, "host", b.Email(), "conn", connID)
		d.endSession(ctx, b)
	}
}

// Sweep reconciles rooms that exist in the store without a host binding in
// this process. A room left unbound for longer than the stale grace period is
// removed. Every stored room counts, so only one coordinator may share a
// Redis keyspace.
func (d *Dispatcher) Sweep(ctx context.Context) {
	d.exec.Go(func() {
		rooms, err := d.store.ListRooms(ctx)
		d.exec.Post(func() {
			if err != nil {
				slog.ErrorContext(ctx, "error listing rooms for sweep", "error", err)
				return
			}
			d.reconcile(ctx, rooms)
		})
	})
}

func (d *Dispatcher) reconcile(ctx context.Context, rooms []Room) {
	now := d.cfg.Now()
	seen := make(map[string]struct{}, len(rooms))

	for _, room := range rooms {
		seen[room.RoomID] = struct{}{}

		if _, ok := d.registry.Host(room.RoomID); ok {
			delete(d.unboundSince, room.RoomID)
			continue
		}
		if _, ok := d.claims[room.HostEmail]; ok || d.deleting[room.HostEmail] {
			continue
		}

		since, ok := d.unboundSince[room.RoomID]
		if !ok {
			d.unboundSince[room.RoomID] = now
			continue
		}

		if now.Sub(since) >= d.cfg.StaleGrace {
			d.endStale(ctx, room)
		}
	}

	for roomID := range d.unboundSince {
		if _, ok := seen[roomID]; !ok {
			delete(d.unboundSince, roomID)
		}
	}
}

func (d *Dispatcher) broadcastState(b *HostBinding) {
	d.broadcast(b, LiveSync(b.snapshot(false)))
}

// broadcast fans msg out to the room, skipping the host and listeners still
// waiting for their first snapshot.
func (d *Dispatcher) broadcast(b *HostBinding, msg Message) {
	except := append([]string{b.ConnID}, d.registry.Unsynced(b.RoomID)...)
	d.emitter.Broadcast(b.RoomID, msg, except...)
}

func (d *Dispatcher) announce(ctx context.Context, b *HostBinding, live bool) {
	if d.announcer == nil {
		return
	}

	notice := SessionNotice{
		RoomID:    b.RoomID,
		HostEmail: b.Email(),
		Host:      b.Host,
		Track:     b.Track,
		Live:      live,
	}

	d.exec.Go(func() {
		if err := d.announcer.Announce(ctx, notice); err != nil {
			slog.ErrorContext(ctx, "error announcing session", "room", notice.RoomID, "error", err)
		}
	})
}
