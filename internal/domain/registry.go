package domain

// HostBinding ties a room to the connection currently acting as its host,
// together with the last state that host reported.
type HostBinding struct {
	RoomID      string
	ConnID      string
	Host        User
	Track       *Track
	CurrentTime float64
	IsPaused    bool
}

func (b *HostBinding) Email() string {
	return NormalizeEmail(b.Host.Email)
}

func (b *HostBinding) snapshot(initial bool) LiveSyncPayload {
	return LiveSyncPayload{
		RoomID:      b.RoomID,
		User:        b.Host,
		Track:       b.Track,
		CurrentTime: b.CurrentTime,
		IsPaused:    b.IsPaused,
		InitialSync: initial,
	}
}

// PendingSync is a listener that joined a live room and has not acknowledged
// its initial snapshot yet.
type PendingSync struct {
	RoomID    string
	ConnID    string
	Attempts  int
	Delivered bool
}

// Registry is the process-local bookkeeping of host bindings and pending
// listeners. It is not safe for concurrent use; the event loop owns it.
type Registry struct {
	hosts   map[string]*HostBinding
	byConn  map[string]string
	byEmail map[string]string
	pending map[string]map[string]*PendingSync
}

func NewRegistry() *Registry {
	return &Registry{
		hosts:   make(map[string]*HostBinding),
		byConn:  make(map[string]string),
		byEmail: make(map[string]string),
		pending: make(map[string]map[string]*PendingSync),
	}
}

// RegisterHost binds connID as the host of roomID, replacing any previous
// binding for the room. Live state from the previous binding is kept when the
// new registration does not carry a track.
func (r *Registry) RegisterHost(roomID, connID string, host User, track *Track) *HostBinding {
	binding := &HostBinding{RoomID: roomID, ConnID: connID, Host: host, Track: track}

	if prev, ok := r.hosts[roomID]; ok {
		delete(r.byConn, prev.ConnID)
		delete(r.byEmail, prev.Email())
		if track == nil {
			binding.Track = prev.Track
		}
		binding.CurrentTime = prev.CurrentTime
		binding.IsPaused = prev.IsPaused
	}

	if other, ok := r.byConn[connID]; ok && other != roomID {
		r.RemoveHost(other)
	}

	r.hosts[roomID] = binding
	r.byConn[connID] = roomID
	r.byEmail[binding.Email()] = roomID

	return binding
}

func (r *Registry) Host(roomID string) (*HostBinding, bool) {
	b, ok := r.hosts[roomID]
	return b, ok
}

func (r *Registry) HostedBy(connID string) (*HostBinding, bool) {
	roomID, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}

	return r.Host(roomID)
}

func (r *Registry) HostByEmail(email string) (*HostBinding, bool) {
	roomID, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, false
	}

	return r.Host(roomID)
}

func (r *Registry) RemoveHost(roomID string) {
	b, ok := r.hosts[roomID]
	if !ok {
		return
	}

	delete(r.hosts, roomID)
	if r.byConn[b.ConnID] == roomID {
		delete(r.byConn, b.ConnID)
	}
	if r.byEmail[b.Email()] == roomID {
		delete(r.byEmail, b.Email())
	}
}

func (r *Registry) AddPendingListener(roomID, connID string) *PendingSync {
	listeners, ok := r.pending[roomID]
	if !ok {
		listeners = make(map[string]*PendingSync)
		r.pending[roomID] = listeners
	}

	if p, ok := listeners[connID]; ok {
		return p
	}

	p := &PendingSync{RoomID: roomID, ConnID: connID}
	listeners[connID] = p

	return p
}

func (r *Registry) RemovePendingListener(roomID, connID string) {
	listeners, ok := r.pending[roomID]
	if !ok {
		return
	}

	delete(listeners, connID)
	if len(listeners) == 0 {
		delete(r.pending, roomID)
	}
}

func (r *Registry) Pending(roomID, connID string) (*PendingSync, bool) {
	p, ok := r.pending[roomID][connID]
	return p, ok
}

func (r *Registry) ClearPending(roomID string) {
	delete(r.pending, roomID)
}

// Unsynced lists the pending listeners of roomID that have not been sent a
// snapshot yet. Live fan-out skips them so their first message is the snapshot.
func (r *Registry) Unsynced(roomID string) []string {
	var out []string
	for connID, p := range r.pending[roomID] {
		if !p.Delivered {
			out = append(out, connID)
		}
	}

	return out
}

// DropConnection removes connID from every role it held and returns the host
// bindings it owned.
func (r *Registry) DropConnection(connID string) []*HostBinding {
	var dropped []*HostBinding
	if b, ok := r.HostedBy(connID); ok {
		r.RemoveHost(b.RoomID)
		dropped = append(dropped, b)
	}

	for roomID := range r.pending {
		r.RemovePendingListener(roomID, connID)
	}

	return dropped
}
