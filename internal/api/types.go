package api

import (
	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/chat"
)

// StatusResponse describes the daemon and its push connection.
type StatusResponse struct {
	Profile        string `json:"profile"`
	UserID         int64  `json:"userId"`
	Nickname       string `json:"nickname"`
	PushState      string `json:"pushState"`
	Reconnects     int    `json:"reconnects"`
	ActiveRoom     string `json:"activeRoom,omitempty"`
	RoomCount      int    `json:"roomCount"`
	PendingUploads int    `json:"pendingUploads"`
	DroppedEvents  uint64 `json:"droppedEvents"`
	UptimeMs       int64  `json:"uptimeMs"`
}

// Room is a room list entry.
type Room struct {
	Key           string `json:"key"`
	Type          string `json:"type"`
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	IconURL       string `json:"iconUrl,omitempty"`
	PopupID       int64  `json:"popupId,omitempty"`
	Rank          int    `json:"rank"`
	UnreadCount   int    `json:"unreadCount"`
	LastMessage   string `json:"lastMessage,omitempty"`
	LastMessageAt int64  `json:"lastMessageAtUnixMs,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
	Active        bool   `json:"active,omitempty"`
}

// ListRoomsRequest lists rooms, optionally re-fetching them from the backend.
type ListRoomsRequest struct {
	Refresh    bool `json:"refresh"`
	WithHidden bool `json:"withHidden"`
}

type ListRoomsResponse struct {
	Rooms []Room `json:"rooms"`
}

// RoomRequest names a room as "TYPE/ID".
type RoomRequest struct {
	Room string `json:"room"`
}

type RoomResponse struct {
	Room string `json:"room"`
}

// StartPrivateRequest starts a private chat with UserID, or with the
// assistant bot when AI is set.
type StartPrivateRequest struct {
	UserID int64 `json:"userId,omitempty"`
	AI     bool  `json:"ai,omitempty"`
}

type CreateRoomRequest struct {
	PopupID         int64  `json:"popupId"`
	Name            string `json:"name"`
	MaxParticipants int    `json:"maxParticipants"`
}

type HideRoomRequest struct {
	Room   string `json:"room"`
	Hidden bool   `json:"hidden"`
}

type ListPopupsRequest struct {
	Keyword string `json:"keyword"`
}

type ListPopupsResponse struct {
	Popups []Popup `json:"popups"`
}

type PopupRequest struct {
	ID int64 `json:"id"`
}

// Popup is a popup store.
type Popup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Address   string `json:"address,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type ProfileRequest struct {
	UserID int64 `json:"userId"`
}

// Profile is a user's mini profile.
type Profile struct {
	UserID       int64  `json:"userId"`
	Nickname     string `json:"nickname"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Introduction string `json:"introduction,omitempty"`
}

// PopupCard is the body of a popup-share message.
type PopupCard struct {
	PopupID  int64  `json:"popupId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Message is one feed entry with its display fields.
type Message struct {
	ID               string     `json:"id"`
	Persisted        bool       `json:"persisted"`
	ClientMessageKey string     `json:"clientMessageKey,omitempty"`
	SenderID         int64      `json:"senderId"`
	SenderNickname   string     `json:"senderNickname,omitempty"`
	Mine             bool       `json:"mine"`
	Type             string     `json:"type"`
	Text             string     `json:"text,omitempty"`
	ImageURL         string     `json:"imageUrl,omitempty"`
	LocalPath        string     `json:"localPath,omitempty"`
	Popup            *PopupCard `json:"popup,omitempty"`
	CreatedAt        int64      `json:"createdAtUnixMs"`
	Upload           string     `json:"upload,omitempty"`
	PendingEcho      bool       `json:"pendingEcho,omitempty"`
	TimeLabel        string     `json:"timeLabel"`
	MinuteKey        string     `json:"minuteKey"`
	DateDivider      string     `json:"dateDivider,omitempty"`
	// UnreadBy counts the other participants that have not read an own message.
	UnreadBy int `json:"unreadBy,omitempty"`
}

type Typist struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

// FeedResponse is the open room's feed and read state.
type FeedResponse struct {
	Room     string    `json:"room"`
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
	// Divider is the index of the first unread message, or -1.
	Divider int      `json:"divider"`
	Typing  []Typist `json:"typing"`
}

// SendMessageRequest sends text, or a popup share when PopupID is set.
type SendMessageRequest struct {
	Text    string `json:"text,omitempty"`
	PopupID int64  `json:"popupId,omitempty"`
}

type SendMessageResponse struct {
	ClientMessageKey string `json:"clientMessageKey"`
}

type SendImageRequest struct {
	Path string `json:"path"`
}

type UploadRequest struct {
	ClientMessageKey string `json:"clientMessageKey"`
}

type TypingRequest struct {
	Typing bool `json:"typing"`
}

type ListGroupRoomsRequest struct {
	// PopupID limits the list to one popup; 0 lists every open room.
	PopupID int64 `json:"popupId,omitempty"`
}

type ListGroupRoomsResponse struct {
	Rooms []GroupRoom `json:"rooms"`
}

// GroupRoom is a group room as the directory shows it, joined or not.
type GroupRoom struct {
	Room                string `json:"room"`
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	PopupID             int64  `json:"popupId"`
	PopupName           string `json:"popupName,omitempty"`
	OwnerID             int64  `json:"ownerId"`
	Owned               bool   `json:"owned,omitempty"`
	MaxParticipants     int    `json:"maxParticipants"`
	CurrentParticipants int    `json:"currentParticipants"`
	Joined              bool   `json:"joined"`
	CreatedAt           string `json:"createdAt,omitempty"`
}

type ListParticipantsResponse struct {
	Participants []Participant `json:"participants"`
}

type Participant struct {
	UserID            int64  `json:"userId"`
	Nickname          string `json:"nickname"`
	LastReadMessageID int64  `json:"lastReadMessageId"`
	Self              bool   `json:"self,omitempty"`
}

// UpdateGroupRoomRequest changes the fields that are set.
type UpdateGroupRoomRequest struct {
	Room            string  `json:"room"`
	Name            *string `json:"name,omitempty"`
	MaxParticipants *int    `json:"maxParticipants,omitempty"`
}

// ScheduleMessageRequest schedules text for Room, or the open room when
// Room is empty.
type ScheduleMessageRequest struct {
	Room string `json:"room,omitempty"`
	Text string `json:"text"`
	At   int64  `json:"atUnixMs"`
}

// UpdateScheduledRequest replaces the text and time of a scheduled message.
type UpdateScheduledRequest struct {
	ID   int64  `json:"id"`
	Room string `json:"room,omitempty"`
	Text string `json:"text"`
	At   int64  `json:"atUnixMs"`
}

type ScheduledRequest struct {
	ID int64 `json:"id"`
}

type ScheduledMessage struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
	Text string `json:"text"`
	Type string `json:"type"`
	At   int64  `json:"atUnixMs"`
}

type ListScheduledResponse struct {
	Messages []ScheduledMessage `json:"messages"`
}

// ReportRequest reports a room, or one message in it when MessageID is set.
// An empty Room reports the open room.
type ReportRequest struct {
	Room      string `json:"room,omitempty"`
	MessageID int64  `json:"messageId,omitempty"`
	Reason    string `json:"reason"`
}

// WatchEventsRequest filters the event stream by namespace prefix. An empty
// list receives everything.
type WatchEventsRequest struct {
	Namespaces []string `json:"namespaces"`
}

func roomToAPI(r chat.Room, active chat.RoomKey) Room {
	out := Room{
		Key:         r.Key.String(),
		Type:        string(r.Key.Type),
		ID:          r.Key.ID,
		Name:        r.Name,
		IconURL:     r.IconURL,
		PopupID:     r.PopupID,
		Rank:        r.Rank,
		UnreadCount: r.UnreadCount,
		LastMessage: r.LastMessage,
		Hidden:      r.Hidden,
		Active:      r.Key == active,
	}
	if !r.LastMessageAt.IsZero() {
		out.LastMessageAt = r.LastMessageAt.UnixMilli()
	}
	return out
}

func groupRoomToAPI(g backend.GroupRoom, self int64) GroupRoom {
	return GroupRoom{
		Room:                g.Key().String(),
		ID:                  g.RoomID,
		Name:                g.RoomName,
		PopupID:             g.PopupID,
		PopupName:           g.PopupName,
		OwnerID:             g.OwnerID,
		Owned:               g.OwnerID == self,
		MaxParticipants:     g.MaxParticipants,
		CurrentParticipants: g.CurrentParticipants,
		Joined:              g.Joined,
		CreatedAt:           g.CreatedAt,
	}
}

func scheduledToAPI(m backend.ScheduledMessage) ScheduledMessage {
	return ScheduledMessage{
		ID:   m.ID,
		Room: chat.RoomKey{Type: m.RoomType, ID: m.RoomID}.String(),
		Text: m.Content,
		Type: string(m.MessageType),
		At:   m.ScheduledAt.UnixMilli(),
	}
}

func popupToAPI(p backend.Popup) Popup {
	return Popup{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.MainImageURL,
		Address:   p.Address,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
}

func messageToAPI(m chat.Message, self int64) Message {
	out := Message{
		ID:               m.ID.String(),
		Persisted:        m.ID.IsPersisted(),
		ClientMessageKey: m.ClientMessageKey,
		SenderID:         m.SenderID,
		SenderNickname:   m.SenderNickname,
		Mine:             m.SenderID == self,
		Type:             string(m.Type()),
		PendingEcho:      m.PendingEcho,
		TimeLabel:        m.TimeLabel,
		MinuteKey:        m.MinuteKey,
		DateDivider:      m.DateDivider,
	}
	if !m.CreatedAt.IsZero() {
		out.CreatedAt = m.CreatedAt.UnixMilli()
	}
	if m.Upload != chat.UploadNone {
		out.Upload = m.Upload.String()
	}
	switch c := m.Content.(type) {
	case chat.Text:
		out.Text = c.Body
	case chat.Image:
		out.ImageURL, out.LocalPath = c.URL, c.LocalPath
	case chat.PopupShare:
		out.Popup = &PopupCard{PopupID: c.PopupID, Name: c.Name, ImageURL: c.ImageURL, Address: c.Address}
	}
	return out
}

// feedToAPI converts the open room's feed. Own persisted messages carry the
// number of other participants that have not read them.
func feedToAPI(room chat.Room, msgs []chat.Message, rs chat.ReadState, hasState bool, typists []chat.Typist, self int64) *FeedResponse {
	resp := &FeedResponse{
		Room:     room.Key.String(),
		Name:     room.Name,
		Messages: make([]Message, len(msgs)),
		Divider:  chat.NoDivider,
		Typing:   make([]Typist, len(typists)),
	}
	if hasState {
		if idx, ok := rs.Divider(); ok {
			resp.Divider = idx
		}
	}
	for i, m := range msgs {
		resp.Messages[i] = messageToAPI(m, self)
		if hasState && m.SenderID == self && m.ID.IsPersisted() {
			resp.Messages[i].UnreadBy = unreadBy(room.Key, rs, m, self)
		}
	}
	for i, t := range typists {
		resp.Typing[i] = Typist{UserID: t.UserID, Nickname: t.Nickname}
	}
	return resp
}

func unreadBy(key chat.RoomKey, rs chat.ReadState, m chat.Message, self int64) int {
	id := m.ID.Value()
	if key.Type == chat.Private || len(rs.Participants) <= 2 {
		if rs.OtherLastReadMessageID < id {
			return 1
		}
		return 0
	}
	n := 0
	for _, p := range rs.Participants {
		if p.UserID != self && p.LastReadMessageID < id {
			n++
		}
	}
	return n
}
