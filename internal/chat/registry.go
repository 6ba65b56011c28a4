package chat

import (
	"slices"
	"sync"
	"time"
)

// Registry holds the user's rooms, most recent activity first, and which room
// is currently open.
type Registry struct {
	mu     sync.RWMutex
	rooms  []Room
	active RoomKey
	open   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Replace swaps in a freshly fetched room list, keeping its order.
func (r *Registry) Replace(rooms []Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = slices.Clone(rooms)
	r.rerankLocked()
}

// Rooms returns a snapshot of the room list.
func (r *Registry) Rooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.rooms)
}

// Get returns the room with key.
func (r *Registry) Get(key RoomKey) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(key); i >= 0 {
		return r.rooms[i], true
	}
	return Room{}, false
}

// UpdateRoomOrder moves the room with key to the front.
func (r *Registry) UpdateRoomOrder(key RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moveFrontLocked(key)
}

// NoteMessage records a new message for key and moves the room to the front.
// The unread count grows only when the room is not the open one.
func (r *Registry) NoteMessage(key RoomKey, preview string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(key)
	if i < 0 {
		return false
	}
	r.rooms[i].LastMessage = preview
	r.rooms[i].LastMessageAt = at
	if !r.open || r.active != key {
		r.rooms[i].UnreadCount++
	}
	return r.moveFrontLocked(key)
}

// ClearUnread zeroes the unread count of key.
func (r *Registry) ClearUnread(key RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(key); i >= 0 {
		r.rooms[i].UnreadCount = 0
	}
}

// SetHidden flags the room as hidden or visible.
func (r *Registry) SetHidden(key RoomKey, hidden bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(key)
	if i < 0 {
		return false
	}
	r.rooms[i].Hidden = hidden
	return true
}

// Remove deletes the room with key. Removing the open room closes it.
func (r *Registry) Remove(key RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(key)
	if i < 0 {
		return false
	}
	r.rooms = slices.Delete(r.rooms, i, i+1)
	if r.open && r.active == key {
		r.open = false
		r.active = RoomKey{}
	}
	r.rerankLocked()
	return true
}

// AddOrSelectPrivate is AddOrSelect for private chats. Rooms of any other
// type are ignored.
func (r *Registry) AddOrSelectPrivate(room Room) bool {
	if room.Key.Type != Private {
		return false
	}
	return r.AddOrSelect(room)
}

// AddOrSelect inserts room at the front if it is unknown, then makes it the
// active room. It reports whether the room was inserted.
func (r *Registry) AddOrSelect(room Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := false
	if r.indexLocked(room.Key) < 0 {
		r.rooms = slices.Insert(r.rooms, 0, room)
		r.rerankLocked()
		added = true
	}
	r.active = room.Key
	r.open = true
	return added
}

// SetActive marks key as the open room.
func (r *Registry) SetActive(key RoomKey) {
	r.mu.Lock()
	r.active = key
	r.open = true
	r.mu.Unlock()
}

// Active returns the open room.
func (r *Registry) Active() (RoomKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.open
}

// ClearActive marks that no room is open.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	r.active = RoomKey{}
	r.open = false
	r.mu.Unlock()
}

func (r *Registry) indexLocked(key RoomKey) int {
	return slices.IndexFunc(r.rooms, func(room Room) bool { return room.Key == key })
}

func (r *Registry) moveFrontLocked(key RoomKey) bool {
	i := r.indexLocked(key)
	if i < 0 {
		return false
	}
	room := r.rooms[i]
	r.rooms = slices.Delete(r.rooms, i, i+1)
	r.rooms = slices.Insert(r.rooms, 0, room)
	r.rerankLocked()
	return true
}

func (r *Registry) rerankLocked() {
	for i := range r.rooms {
		r.rooms[i].Rank = i
	}
}
