package chat

import (
	"slices"
	"sync"
)

// NoDivider marks a read state without an unread divider.
const NoDivider = -1

// ReadState is the read bookkeeping of one open room.
type ReadState struct {
	Room RoomKey

	// EntryReadMessageID is the server's last-read id when the room was
	// opened. Only Initialize writes it.
	EntryReadMessageID int64

	MyLastReadMessageID    int64
	OtherLastReadMessageID int64
	Participants           []Participant

	// InitialUnreadIndex is the feed index where the "new messages" divider
	// is drawn, or NoDivider.
	InitialUnreadIndex int
}

// Divider returns the unread divider index and whether one is shown.
func (s ReadState) Divider() (int, bool) {
	return s.InitialUnreadIndex, s.InitialUnreadIndex != NoDivider
}

// ReadStates owns the read state of every open room.
type ReadStates struct {
	mu     sync.RWMutex
	states map[RoomKey]*ReadState
}

// NewReadStates creates an empty reconciler.
func NewReadStates() *ReadStates {
	return &ReadStates{states: make(map[RoomKey]*ReadState)}
}

// Initialize records the read state of a room being entered and returns the
// unread divider index. A second call for the same room overwrites the record;
// callers Cleanup between entries.
func (r *ReadStates) Initialize(room RoomKey, entry, myLast, otherLast int64, participants []Participant, feed []Message, currentUserID int64) (int, bool) {
	idx := unreadIndex(entry, feed, currentUserID)

	r.mu.Lock()
	r.states[room] = &ReadState{
		Room:                   room,
		EntryReadMessageID:     entry,
		MyLastReadMessageID:    myLast,
		OtherLastReadMessageID: otherLast,
		Participants:           slices.Clone(participants),
		InitialUnreadIndex:     idx,
	}
	r.mu.Unlock()

	return idx, idx != NoDivider
}

func unreadIndex(entry int64, feed []Message, currentUserID int64) int {
	if entry <= 0 {
		return NoDivider
	}
	for _, m := range feed {
		if m.ID.IsPersisted() && m.ID.Value() == entry {
			if m.SenderID == currentUserID {
				return NoDivider
			}
			break
		}
	}
	for i, m := range feed {
		if m.ID.IsPersisted() && m.ID.Value() > entry {
			return i
		}
	}
	return NoDivider
}

// ApplyReadEvent folds a read notification into the room's record. Events
// for rooms without a record are dropped; the return value reports whether
// the event was applied.
func (r *ReadStates) ApplyReadEvent(room RoomKey, readerID, lastRead, currentUserID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[room]
	if !ok {
		return false
	}

	if readerID == currentUserID && lastRead >= s.EntryReadMessageID {
		s.InitialUnreadIndex = NoDivider
		s.MyLastReadMessageID = lastRead
		return true
	}

	switch room.Type {
	case Private:
		if readerID == currentUserID {
			s.MyLastReadMessageID = lastRead
		} else {
			s.OtherLastReadMessageID = lastRead
		}
	case Group:
		for i := range s.Participants {
			if s.Participants[i].UserID == readerID {
				s.Participants[i].LastReadMessageID = lastRead
			}
		}
		// Two-person groups count unread like private rooms.
		if len(s.Participants) == 2 {
			if readerID == currentUserID {
				s.MyLastReadMessageID = lastRead
			} else {
				s.OtherLastReadMessageID = lastRead
			}
		}
	}
	return true
}

// Cleanup discards the record of room.
func (r *ReadStates) Cleanup(room RoomKey) {
	r.mu.Lock()
	delete(r.states, room)
	r.mu.Unlock()
}

// Get returns a copy of the record of room.
func (r *ReadStates) Get(room RoomKey) (ReadState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[room]
	if !ok {
		return ReadState{}, false
	}
	cp := *s
	cp.Participants = slices.Clone(s.Participants)
	return cp, true
}

// UnreadBy counts the persisted messages in feed after lastRead.
func UnreadBy(feed []Message, lastRead int64) int {
	n := 0
	for _, m := range feed {
		if m.ID.IsPersisted() && m.ID.Value() > lastRead {
			n++
		}
	}
	return n
}
