package chat

import "testing"

const me = int64(1)

func persisted(id, sender int64) Message {
	return Message{ID: Persisted(id), SenderID: sender, Content: Text{Body: "m"}}
}

func feedOf(sender func(id int64) int64, ids ...int64) []Message {
	out := make([]Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, persisted(id, sender(id)))
	}
	return out
}

func TestInitializeDividerAfterOthersMessage(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Private, ID: 7}
	feed := feedOf(func(int64) int64 { return 2 }, 3, 4, 5, 6, 7)

	idx, ok := r.Initialize(room, 5, 5, 5, nil, feed, me)
	if !ok || idx != 3 {
		t.Fatalf("Initialize = (%d, %v), want (3, true)", idx, ok)
	}
	s, _ := r.Get(room)
	if got, ok := s.Divider(); !ok || got != 3 {
		t.Errorf("Divider() = (%d, %v), want (3, true)", got, ok)
	}
}

// TestInitializeSuppressesDividerAfterOwnMessage covers the case where the
// entry marker is the viewer's own last message: newer messages exist but no
// divider is drawn.
func TestInitializeSuppressesDividerAfterOwnMessage(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Private, ID: 7}
	feed := feedOf(func(id int64) int64 {
		if id == 5 {
			return me
		}
		return 2
	}, 3, 4, 5, 6, 7)

	if idx, ok := r.Initialize(room, 5, 5, 5, nil, feed, me); ok || idx != NoDivider {
		t.Errorf("Initialize = (%d, %v), want (NoDivider, false)", idx, ok)
	}
}

func TestInitializeNoDivider(t *testing.T) {
	others := func(int64) int64 { return 2 }
	tests := []struct {
		name  string
		entry int64
		feed  []Message
	}{
		{"zero entry", 0, feedOf(others, 1, 2)},
		{"nothing newer", 9, feedOf(others, 7, 8, 9)},
		{"empty feed", 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReadStates()
			if idx, ok := r.Initialize(RoomKey{Type: Group, ID: 1}, tt.entry, 0, 0, nil, tt.feed, me); ok {
				t.Errorf("Initialize = (%d, true), want no divider", idx)
			}
		})
	}
}

func TestInitializeEntryMissingFromFeed(t *testing.T) {
	r := NewReadStates()
	feed := feedOf(func(int64) int64 { return 2 }, 10, 12, 14)
	idx, ok := r.Initialize(RoomKey{Type: Group, ID: 1}, 11, 0, 0, nil, feed, me)
	if !ok || idx != 1 {
		t.Errorf("Initialize = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestSelfCatchUpClearsDivider(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Private, ID: 7}
	feed := feedOf(func(int64) int64 { return 2 }, 3, 4, 5, 6, 7)
	r.Initialize(room, 5, 5, 4, nil, feed, me)

	if !r.ApplyReadEvent(room, me, 7, me) {
		t.Fatal("ApplyReadEvent dropped an event for an initialized room")
	}
	s, _ := r.Get(room)
	if _, ok := s.Divider(); ok {
		t.Error("divider still shown after viewer caught up")
	}
	if s.MyLastReadMessageID != 7 {
		t.Errorf("MyLastReadMessageID = %d, want 7", s.MyLastReadMessageID)
	}

	// Later events never bring the divider back.
	r.ApplyReadEvent(room, 2, 7, me)
	r.ApplyReadEvent(room, me, 3, me)
	s, _ = r.Get(room)
	if _, ok := s.Divider(); ok {
		t.Error("divider reappeared before the next Initialize")
	}
}

func TestEntryMarkerIsWriteOnce(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Group, ID: 3}
	participants := []Participant{{UserID: me}, {UserID: 2}, {UserID: 3}}
	r.Initialize(room, 5, 5, 5, participants, feedOf(func(int64) int64 { return 2 }, 5, 6), me)

	events := []struct{ reader, last int64 }{
		{me, 2}, {me, 9}, {2, 11}, {3, 1}, {me, 0},
	}
	for _, e := range events {
		r.ApplyReadEvent(room, e.reader, e.last, me)
		s, _ := r.Get(room)
		if s.EntryReadMessageID != 5 {
			t.Fatalf("EntryReadMessageID = %d after event %+v, want 5", s.EntryReadMessageID, e)
		}
	}
}

func TestPrivateReadEvents(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Private, ID: 7}
	r.Initialize(room, 10, 10, 3, nil, nil, me)

	r.ApplyReadEvent(room, 2, 8, me)
	r.ApplyReadEvent(room, me, 4, me)

	s, _ := r.Get(room)
	if s.OtherLastReadMessageID != 8 {
		t.Errorf("OtherLastReadMessageID = %d, want 8", s.OtherLastReadMessageID)
	}
	if s.MyLastReadMessageID != 4 {
		t.Errorf("MyLastReadMessageID = %d, want 4", s.MyLastReadMessageID)
	}
}

// TestTwoPersonGroupMirrorsPrivate: self sends id 10, the peer reads up to 10.
func TestTwoPersonGroupMirrorsPrivate(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Group, ID: 4}
	participants := []Participant{{UserID: me, LastReadMessageID: 10}, {UserID: 2, LastReadMessageID: 9}}
	feed := []Message{persisted(9, 2), persisted(10, me)}
	r.Initialize(room, 10, 10, 9, participants, feed, me)

	r.ApplyReadEvent(room, 2, 10, me)

	s, _ := r.Get(room)
	if s.OtherLastReadMessageID != 10 {
		t.Errorf("OtherLastReadMessageID = %d, want 10", s.OtherLastReadMessageID)
	}
	if s.Participants[1].LastReadMessageID != 10 {
		t.Errorf("participant 2 last read = %d, want 10", s.Participants[1].LastReadMessageID)
	}
}

func TestLargerGroupDoesNotMirror(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Group, ID: 4}
	participants := []Participant{{UserID: me}, {UserID: 2}, {UserID: 3}}
	r.Initialize(room, 1, 1, 1, participants, nil, me)

	r.ApplyReadEvent(room, 3, 6, me)

	s, _ := r.Get(room)
	if s.OtherLastReadMessageID != 1 {
		t.Errorf("OtherLastReadMessageID = %d, want 1 (no mirroring in 3-person group)", s.OtherLastReadMessageID)
	}
	if s.Participants[2].LastReadMessageID != 6 {
		t.Errorf("participant 3 last read = %d, want 6", s.Participants[2].LastReadMessageID)
	}
}

func TestReadEventWithoutRecordIsDropped(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Private, ID: 7}
	if r.ApplyReadEvent(room, 2, 5, me) {
		t.Error("event applied before Initialize")
	}

	r.Initialize(room, 5, 5, 5, nil, nil, me)
	r.Cleanup(room)
	if r.ApplyReadEvent(room, 2, 9, me) {
		t.Error("event applied after Cleanup")
	}
	if _, ok := r.Get(room); ok {
		t.Error("record recreated by a dropped event")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewReadStates()
	room := RoomKey{Type: Group, ID: 1}
	r.Initialize(room, 1, 1, 1, []Participant{{UserID: 2}}, nil, me)

	s, _ := r.Get(room)
	s.Participants[0].LastReadMessageID = 99

	again, _ := r.Get(room)
	if again.Participants[0].LastReadMessageID != 0 {
		t.Error("mutating a snapshot changed the stored record")
	}
}

func TestUnreadBy(t *testing.T) {
	feed := []Message{persisted(1, 2), persisted(2, 2), persisted(3, 2), {ID: Pending("k")}}
	if got := UnreadBy(feed, 1); got != 2 {
		t.Errorf("UnreadBy = %d, want 2", got)
	}
}
