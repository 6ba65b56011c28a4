package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/popspot/popchat/internal/chat"
)

// Rooms fetches the user's room list in backend order.
func (c *Client) Rooms(ctx context.Context) ([]chat.Room, error) {
	var raw []RoomSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/rooms", nil, nil, &raw); err != nil {
		return nil, err
	}
	rooms := make([]chat.Room, 0, len(raw))
	for _, r := range raw {
		room, err := r.Room()
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", r.RoomID, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// HideRoom hides a room from the list without leaving it.
func (c *Client) HideRoom(ctx context.Context, key chat.RoomKey) error {
	return c.doJSON(ctx, http.MethodPost, roomPath(key)+"/hide", nil, nil, nil)
}

// UnhideRoom shows a hidden room again.
func (c *Client) UnhideRoom(ctx context.Context, key chat.RoomKey) error {
	return c.doJSON(ctx, http.MethodDelete, roomPath(key)+"/hide", nil, nil, nil)
}

// Popups lists popup stores, optionally filtered by a search keyword.
func (c *Client) Popups(ctx context.Context, keyword string) ([]Popup, error) {
	var q url.Values
	if keyword != "" {
		q = url.Values{"keyword": {keyword}}
	}
	var out []Popup
	err := c.doJSON(ctx, http.MethodGet, "/api/popups", q, nil, &out)
	return out, err
}

// Popup fetches one popup store.
func (c *Client) Popup(ctx context.Context, popupID int64) (Popup, error) {
	var out Popup
	err := c.doJSON(ctx, http.MethodGet, "/api/popups/"+id(popupID), nil, nil, &out)
	return out, err
}

// MiniProfile fetches the short profile card of a user.
func (c *Client) MiniProfile(ctx context.Context, userID int64) (MiniProfile, error) {
	var out MiniProfile
	err := c.doJSON(ctx, http.MethodGet, "/api/users/"+id(userID)+"/mini-profile", nil, nil, &out)
	return out, err
}

// Report files a moderation report.
func (c *Client) Report(ctx context.Context, req ReportRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/chat/reports", nil, req, nil)
}

func roomPath(key chat.RoomKey) string {
	return "/api/chat/rooms/" + string(key.Type) + "/" + id(key.ID)
}
