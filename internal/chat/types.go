package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RoomType distinguishes group rooms from one-to-one rooms.
type RoomType string

const (
	Group   RoomType = "GROUP"
	Private RoomType = "PRIVATE"
)

// ParseRoomType accepts the backend spelling in any case.
func ParseRoomType(s string) (RoomType, error) {
	switch RoomType(strings.ToUpper(strings.TrimSpace(s))) {
	case Group:
		return Group, nil
	case Private:
		return Private, nil
	default:
		return "", fmt.Errorf("unknown room type %q", s)
	}
}

// RoomKey identifies a room across the registry, read states and push topics.
type RoomKey struct {
	Type RoomType
	ID   int64
}

func (k RoomKey) String() string {
	return string(k.Type) + "/" + strconv.FormatInt(k.ID, 10)
}

// MarshalText encodes the key in its "TYPE/id" form.
func (k RoomKey) MarshalText() ([]byte, error) {
	if k == (RoomKey{}) {
		return []byte{}, nil
	}
	return []byte(k.String()), nil
}

func (k *RoomKey) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = RoomKey{}
		return nil
	}
	key, err := ParseRoomKey(string(b))
	if err != nil {
		return err
	}
	*k = key
	return nil
}

// ParseRoomKey parses the "TYPE/id" form produced by RoomKey.String.
func ParseRoomKey(s string) (RoomKey, error) {
	typ, id, ok := strings.Cut(s, "/")
	if !ok {
		return RoomKey{}, fmt.Errorf("invalid room key %q: want TYPE/id", s)
	}
	rt, err := ParseRoomType(typ)
	if err != nil {
		return RoomKey{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return RoomKey{}, fmt.Errorf("invalid room id %q", id)
	}
	return RoomKey{Type: rt, ID: n}, nil
}

// Room is an entry in the user's room list.
type Room struct {
	Key           RoomKey
	Name          string
	IconURL       string
	PopupID       int64
	Rank          int
	UnreadCount   int
	LastMessage   string
	LastMessageAt time.Time
	Hidden        bool
}

// MessageID is either a server-assigned numeric id or, before the server has
// echoed the message back, the client idempotency key.
type MessageID struct {
	id        int64
	key       string
	persisted bool
}

const pendingPrefix = "local-"

// Persisted returns the id of a message the server has stored.
func Persisted(id int64) MessageID {
	return MessageID{id: id, persisted: true}
}

// Pending returns the id of an optimistic message keyed by its client key.
func Pending(key string) MessageID {
	return MessageID{key: key}
}

// IsPersisted reports whether the id was assigned by the server.
func (m MessageID) IsPersisted() bool { return m.persisted }

// Value returns the numeric id, or 0 for pending messages.
func (m MessageID) Value() int64 { return m.id }

// PendingKey returns the client key of a pending message.
func (m MessageID) PendingKey() string { return m.key }

// Compare orders persisted ids ascending and every pending id after all
// persisted ones. Pending ids compare equal to each other.
func (m MessageID) Compare(o MessageID) int {
	switch {
	case m.persisted && o.persisted:
		switch {
		case m.id < o.id:
			return -1
		case m.id > o.id:
			return 1
		}
		return 0
	case m.persisted:
		return -1
	case o.persisted:
		return 1
	default:
		return 0
	}
}

func (m MessageID) String() string {
	if m.persisted {
		return strconv.FormatInt(m.id, 10)
	}
	return pendingPrefix + m.key
}

// MessageType is the backend message type tag.
type MessageType string

const (
	TypeText   MessageType = "TEXT"
	TypeImage  MessageType = "IMAGE"
	TypePopup  MessageType = "POPUP"
	TypeSystem MessageType = "SYSTEM"
)

// Content is the body of a message. Implemented by Text, Image and PopupShare.
type Content interface {
	Type() MessageType
	Preview() string
}

// Text is a plain text body.
type Text struct {
	Body string
}

func (Text) Type() MessageType { return TypeText }
func (t Text) Preview() string { return t.Body }

// Image references an uploaded image. URL is empty while the upload is pending.
type Image struct {
	URL       string
	LocalPath string
}

func (Image) Type() MessageType { return TypeImage }
func (Image) Preview() string   { return "[image]" }

// PopupShare is a shared popup-store card.
type PopupShare struct {
	PopupID  int64
	Name     string
	ImageURL string
	Address  string
}

func (PopupShare) Type() MessageType { return TypePopup }
func (p PopupShare) Preview() string { return "[popup] " + p.Name }

// UploadState tracks image uploads of optimistic messages.
type UploadState int

const (
	UploadNone UploadState = iota
	UploadPending
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadPending:
		return "pending"
	case UploadFailed:
		return "failed"
	default:
		return "none"
	}
}

// Message is one entry of a room feed.
type Message struct {
	ID               MessageID
	ClientMessageKey string
	Room             RoomKey
	SenderID         int64
	SenderNickname   string
	Content          Content
	CreatedAt        time.Time
	Upload           UploadState
	PendingEcho      bool

	// Display fields, recomputed by the feed after every change.
	TimeLabel   string
	MinuteKey   string
	DateDivider string
}

// Type returns the message type of the content, TEXT for empty content.
func (m Message) Type() MessageType {
	if m.Content == nil {
		return TypeText
	}
	return m.Content.Type()
}

// Participant is a group member with their read pointer.
type Participant struct {
	UserID            int64
	Nickname          string
	LastReadMessageID int64
}
