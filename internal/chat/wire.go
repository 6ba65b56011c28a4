package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PushKind discriminates inbound push frames and outbound typing frames.
type PushKind string

const (
	KindTypingStart PushKind = "TYPING_START"
	KindTypingStop  PushKind = "TYPING_STOP"
	KindMessage     PushKind = "MESSAGE"
	KindRead        PushKind = "READ"
)

// WireMessage is the message record as the backend sends it, both in page
// responses and in MESSAGE push payloads.
type WireMessage struct {
	CmID             *int64      `json:"cmId,omitempty"`
	ID               *int64      `json:"id,omitempty"`
	RoomID           json.Number `json:"roomId"`
	RoomType         string      `json:"roomType"`
	SenderID         int64       `json:"senderId"`
	SenderNickname   string      `json:"senderNickname"`
	Content          string      `json:"content"`
	MessageType      string      `json:"messageType"`
	ClientMessageKey string      `json:"clientMessageKey"`
	CreatedAt        string      `json:"createdAt"`
}

// wirePush is the union of every inbound push shape.
type wirePush struct {
	Type              PushKind     `json:"type"`
	Payload           *WireMessage `json:"payload"`
	RoomID            json.Number  `json:"roomId"`
	RoomType          string       `json:"roomType"`
	SenderID          int64        `json:"senderId"`
	SenderNickname    string       `json:"senderNickname"`
	UserID            int64        `json:"userId"`
	LastReadMessageID int64        `json:"lastReadMessageId"`
}

// TypingEvent reports a participant starting or stopping typing.
type TypingEvent struct {
	UserID   int64
	Nickname string
}

// ReadEvent reports that a user's read pointer advanced.
type ReadEvent struct {
	ReaderID          int64
	LastReadMessageID int64
}

// PushEvent is a decoded inbound push frame. Exactly one of Typing, Message
// and Read is set, matching Kind.
type PushEvent struct {
	Kind    PushKind
	Room    RoomKey
	Typing  *TypingEvent
	Message *Message
	Read    *ReadEvent
}

// DecodePush parses an inbound push frame body.
func DecodePush(data []byte) (PushEvent, error) {
	var w wirePush
	if err := json.Unmarshal(data, &w); err != nil {
		return PushEvent{}, fmt.Errorf("decode push frame: %w", err)
	}

	switch w.Type {
	case KindTypingStart, KindTypingStop:
		room, err := roomKeyFromWire(w.RoomType, w.RoomID)
		if err != nil {
			return PushEvent{}, err
		}
		return PushEvent{
			Kind:   w.Type,
			Room:   room,
			Typing: &TypingEvent{UserID: w.SenderID, Nickname: w.SenderNickname},
		}, nil
	case KindMessage:
		if w.Payload == nil {
			return PushEvent{}, fmt.Errorf("MESSAGE frame without payload")
		}
		msg, err := NormalizeMessage(*w.Payload)
		if err != nil {
			return PushEvent{}, err
		}
		return PushEvent{Kind: KindMessage, Room: msg.Room, Message: &msg}, nil
	case KindRead:
		room, err := roomKeyFromWire(w.RoomType, w.RoomID)
		if err != nil {
			return PushEvent{}, err
		}
		reader := w.UserID
		if reader == 0 {
			reader = w.SenderID
		}
		return PushEvent{
			Kind: KindRead,
			Room: room,
			Read: &ReadEvent{ReaderID: reader, LastReadMessageID: w.LastReadMessageID},
		}, nil
	default:
		return PushEvent{}, fmt.Errorf("unknown push frame type %q", w.Type)
	}
}

// NormalizeMessage converts a wire record into the canonical Message.
func NormalizeMessage(w WireMessage) (Message, error) {
	room, err := roomKeyFromWire(w.RoomType, w.RoomID)
	if err != nil {
		return Message{}, err
	}

	var id MessageID
	switch {
	case w.CmID != nil:
		id = Persisted(*w.CmID)
	case w.ID != nil:
		id = Persisted(*w.ID)
	case w.ClientMessageKey != "":
		id = Pending(w.ClientMessageKey)
	default:
		return Message{}, fmt.Errorf("message in room %s has neither id nor client key", room)
	}

	return Message{
		ID:               id,
		ClientMessageKey: w.ClientMessageKey,
		Room:             room,
		SenderID:         w.SenderID,
		SenderNickname:   w.SenderNickname,
		Content:          NormalizeContent(MessageType(strings.ToUpper(w.MessageType)), w.Content),
		CreatedAt:        parseWireTime(w.CreatedAt),
	}, nil
}

// NormalizeContent maps a typed wire body onto a Content variant. A popup
// share whose body is not valid JSON degrades to Text.
func NormalizeContent(typ MessageType, body string) Content {
	switch typ {
	case TypeImage:
		return Image{URL: body}
	case TypePopup:
		p, err := parsePopupShare(body)
		if err != nil {
			return Text{Body: body}
		}
		return p
	default:
		return Text{Body: body}
	}
}

// EncodeContent renders a Content as the wire "content" string.
func EncodeContent(c Content) string {
	switch v := c.(type) {
	case Text:
		return v.Body
	case Image:
		return v.URL
	case PopupShare:
		b, _ := json.Marshal(map[string]any{
			"popupId":  v.PopupID,
			"name":     v.Name,
			"imageUrl": v.ImageURL,
			"address":  v.Address,
		})
		return string(b)
	default:
		return ""
	}
}

// parsePopupShare accepts the historical spellings of the popup share body.
func parsePopupShare(body string) (PopupShare, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return PopupShare{}, err
	}
	id, ok := firstInt(raw, "popId", "popupId", "id")
	if !ok {
		return PopupShare{}, fmt.Errorf("popup share without id")
	}
	return PopupShare{
		PopupID:  id,
		Name:     firstString(raw, "popName", "popupName", "name", "title"),
		ImageURL: firstString(raw, "imageUrl", "thumbnail", "image", "mainImageUrl"),
		Address:  firstString(raw, "address", "location"),
	}, nil
}

func firstInt(raw map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func roomKeyFromWire(typ string, id json.Number) (RoomKey, error) {
	rt, err := ParseRoomType(typ)
	if err != nil {
		return RoomKey{}, err
	}
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return RoomKey{}, fmt.Errorf("invalid room id %q: %w", id, err)
	}
	return RoomKey{Type: rt, ID: n}, nil
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseWireTime returns the zero time for unparseable values. Zone-less
// timestamps are read as local time.
func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SendRequest is published to the send-message destination.
type SendRequest struct {
	RoomID           int64       `json:"roomId"`
	RoomType         RoomType    `json:"roomType"`
	Content          string      `json:"content"`
	SenderID         int64       `json:"senderId"`
	MessageType      MessageType `json:"messageType"`
	ClientMessageKey string      `json:"clientMessageKey"`
}

// TypingRequest is published to the typing destination.
type TypingRequest struct {
	Type           PushKind `json:"type"`
	RoomType       RoomType `json:"roomType"`
	RoomID         int64    `json:"roomId"`
	SenderID       int64    `json:"senderId"`
	SenderNickname string   `json:"senderNickname"`
}
