package chat

import (
	"cmp"
	"slices"
	"sync"
)

// Typist is a participant currently typing in the open room.
type Typist struct {
	UserID   int64
	Nickname string
}

// Typing is the set of participants typing in the open room. Entries only
// leave on a stop event, a message from the typist, or Clear.
type Typing struct {
	mu    sync.RWMutex
	users map[int64]string
}

// NewTyping creates an empty typing set.
func NewTyping() *Typing {
	return &Typing{users: make(map[int64]string)}
}

// Start inserts or renames a typist.
func (t *Typing) Start(userID int64, nickname string) {
	t.mu.Lock()
	t.users[userID] = nickname
	t.mu.Unlock()
}

// Stop removes a typist. It reports whether the user was typing.
func (t *Typing) Stop(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.users[userID]
	delete(t.users, userID)
	return ok
}

// Clear empties the set.
func (t *Typing) Clear() {
	t.mu.Lock()
	clear(t.users)
	t.mu.Unlock()
}

// Snapshot lists typists ordered by nickname, then user id.
func (t *Typing) Snapshot() []Typist {
	t.mu.RLock()
	out := make([]Typist, 0, len(t.users))
	for id, name := range t.users {
		out = append(out, Typist{UserID: id, Nickname: name})
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Typist) int {
		if c := cmp.Compare(a.Nickname, b.Nickname); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}
