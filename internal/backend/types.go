package backend

import (
	"encoding/json"
	"time"

	"github.com/popspot/popchat/internal/chat"
)

// RoomSummary is an entry of the user's room list.
type RoomSummary struct {
	RoomID        int64  `json:"roomId"`
	RoomType      string `json:"roomType"`
	RoomName      string `json:"roomName"`
	ImageURL      string `json:"imageUrl"`
	PopupID       int64  `json:"popupId"`
	UnreadCount   int    `json:"unreadCount"`
	LastMessage   string `json:"lastMessage"`
	LastMessageAt string `json:"lastMessageAt"`
	Hidden        bool   `json:"hidden"`
}

// Room converts the summary to a registry entry.
func (r RoomSummary) Room() (chat.Room, error) {
	rt, err := chat.ParseRoomType(r.RoomType)
	if err != nil {
		return chat.Room{}, err
	}
	at, _ := time.Parse(time.RFC3339, r.LastMessageAt)
	return chat.Room{
		Key:           chat.RoomKey{Type: rt, ID: r.RoomID},
		Name:          r.RoomName,
		IconURL:       r.ImageURL,
		PopupID:       r.PopupID,
		UnreadCount:   r.UnreadCount,
		LastMessage:   r.LastMessage,
		LastMessageAt: at,
		Hidden:        r.Hidden,
	}, nil
}

// Popup is a popup store.
type Popup struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MainImageURL string `json:"mainImageUrl"`
	Address      string `json:"address"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

// Share returns the popup as a shareable message body.
func (p Popup) Share() chat.PopupShare {
	return chat.PopupShare{PopupID: p.ID, Name: p.Name, ImageURL: p.MainImageURL, Address: p.Address}
}

// GroupRoom is a group chat room created around a popup.
type GroupRoom struct {
	RoomID              int64  `json:"roomId"`
	RoomName            string `json:"roomName"`
	PopupID             int64  `json:"popupId"`
	PopupName           string `json:"popupName"`
	OwnerID             int64  `json:"ownerId"`
	MaxParticipants     int    `json:"maxParticipants"`
	CurrentParticipants int    `json:"currentParticipants"`
	Joined              bool   `json:"joined"`
	CreatedAt           string `json:"createdAt"`
}

// Key returns the room key of the group.
func (g GroupRoom) Key() chat.RoomKey {
	return chat.RoomKey{Type: chat.Group, ID: g.RoomID}
}

// UpdateGroupRoomRequest changes a group room. Nil fields are left as is.
type UpdateGroupRoomRequest struct {
	RoomName        *string `json:"roomName,omitempty"`
	MaxParticipants *int    `json:"maxParticipants,omitempty"`
}

// ParticipantInfo is a group member as the backend reports it.
type ParticipantInfo struct {
	UserID            int64  `json:"userId"`
	Nickname          string `json:"nickname"`
	ProfileImageURL   string `json:"profileImageUrl"`
	LastReadMessageID int64  `json:"lastReadMessageId"`
}

func participants(in []ParticipantInfo) []chat.Participant {
	out := make([]chat.Participant, len(in))
	for i, p := range in {
		out[i] = chat.Participant{UserID: p.UserID, Nickname: p.Nickname, LastReadMessageID: p.LastReadMessageID}
	}
	return out
}

// PrivateRoom is a one-to-one room.
type PrivateRoom struct {
	RoomID        int64  `json:"roomId"`
	OtherUserID   int64  `json:"otherUserId"`
	OtherNickname string `json:"otherNickname"`
	OtherImageURL string `json:"otherProfileImageUrl"`
}

// Room converts the private room to a registry entry.
func (p PrivateRoom) Room() chat.Room {
	return chat.Room{
		Key:     chat.RoomKey{Type: chat.Private, ID: p.RoomID},
		Name:    p.OtherNickname,
		IconURL: p.OtherImageURL,
	}
}

// MiniProfile is the short user card shown from a chat.
type MiniProfile struct {
	UserID          int64  `json:"userId"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl"`
	Introduction    string `json:"introduction"`
}

// messagePage is the raw message page response.
type messagePage struct {
	Messages               []json.RawMessage `json:"messages"`
	LastReadMessageID      int64             `json:"lastReadMessageId"`
	MyLastReadMessageID    int64             `json:"myLastReadMessageId"`
	OtherLastReadMessageID int64             `json:"otherLastReadMessageId"`
	Participants           []ParticipantInfo `json:"participants"`
}

// Page is a normalized message page, newest first as the backend sends it,
// with the read markers needed to initialize read state.
type Page struct {
	Messages               []chat.Message
	EntryReadMessageID     int64
	MyLastReadMessageID    int64
	OtherLastReadMessageID int64
	Participants           []chat.Participant
	// Skipped counts records that could not be normalized.
	Skipped int
}

// ScheduledMessage is a message the backend sends at ScheduledAt.
type ScheduledMessage struct {
	ID          int64            `json:"id,omitempty"`
	RoomID      int64            `json:"roomId"`
	RoomType    chat.RoomType    `json:"roomType"`
	Content     string           `json:"content"`
	MessageType chat.MessageType `json:"messageType"`
	ScheduledAt time.Time        `json:"scheduledAt"`
}

// ReportRequest reports a message or room to the moderators.
type ReportRequest struct {
	RoomID    int64         `json:"roomId"`
	RoomType  chat.RoomType `json:"roomType"`
	MessageID int64         `json:"messageId,omitempty"`
	Reason    string        `json:"reason"`
}
