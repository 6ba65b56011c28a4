package backend

import (
	"context"
	"net/http"
)

// StartPrivateChat returns the one-to-one room with userID, creating it if needed.
func (c *Client) StartPrivateChat(ctx context.Context, userID int64) (PrivateRoom, error) {
	var out PrivateRoom
	body := struct {
		TargetUserID int64 `json:"targetUserId"`
	}{userID}
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/private-rooms", nil, body, &out)
	return out, err
}

// DeletePrivateChat deletes a one-to-one room.
func (c *Client) DeletePrivateChat(ctx context.Context, roomID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/chat/private-rooms/"+id(roomID), nil, nil, nil)
}

// StartAIChat returns the private room with the assistant bot.
func (c *Client) StartAIChat(ctx context.Context) (PrivateRoom, error) {
	var out PrivateRoom
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/ai-rooms", nil, nil, &out)
	return out, err
}
