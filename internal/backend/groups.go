package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/popspot/popchat/internal/chat"
)

const groupRooms = "/api/chat/group-rooms"

// CreateGroupRoom creates a group room around a popup.
func (c *Client) CreateGroupRoom(ctx context.Context, req chat.CreateRoomRequest) (GroupRoom, error) {
	var out GroupRoom
	err := c.doJSON(ctx, http.MethodPost, groupRooms, nil, req, &out)
	return out, err
}

// GroupRooms lists the group rooms of a popup, or all open ones when popupID is 0.
func (c *Client) GroupRooms(ctx context.Context, popupID int64) ([]GroupRoom, error) {
	var q url.Values
	if popupID > 0 {
		q = url.Values{"popupId": {id(popupID)}}
	}
	var out []GroupRoom
	err := c.doJSON(ctx, http.MethodGet, groupRooms, q, nil, &out)
	return out, err
}

// GroupRoom fetches one group room.
func (c *Client) GroupRoom(ctx context.Context, roomID int64) (GroupRoom, error) {
	var out GroupRoom
	err := c.doJSON(ctx, http.MethodGet, groupRooms+"/"+id(roomID), nil, nil, &out)
	return out, err
}

// Participants lists the members of a group room with their read pointers.
func (c *Client) Participants(ctx context.Context, roomID int64) ([]chat.Participant, error) {
	var out []ParticipantInfo
	if err := c.doJSON(ctx, http.MethodGet, groupRooms+"/"+id(roomID)+"/participants", nil, nil, &out); err != nil {
		return nil, err
	}
	return participants(out), nil
}

// UpdateGroupRoom renames a room or changes its participant limit.
func (c *Client) UpdateGroupRoom(ctx context.Context, roomID int64, req UpdateGroupRoomRequest) (GroupRoom, error) {
	var out GroupRoom
	err := c.doJSON(ctx, http.MethodPatch, groupRooms+"/"+id(roomID), nil, req, &out)
	return out, err
}

// DeleteGroupRoom deletes a room the user owns.
func (c *Client) DeleteGroupRoom(ctx context.Context, roomID int64) error {
	return c.doJSON(ctx, http.MethodDelete, groupRooms+"/"+id(roomID), nil, nil, nil)
}

// JoinGroupRoom adds the user to a group room.
func (c *Client) JoinGroupRoom(ctx context.Context, roomID int64) (GroupRoom, error) {
	var out GroupRoom
	err := c.doJSON(ctx, http.MethodPost, groupRooms+"/"+id(roomID)+"/join", nil, nil, &out)
	return out, err
}

// LeaveGroupRoom removes the user from a group room.
func (c *Client) LeaveGroupRoom(ctx context.Context, roomID int64) error {
	return c.doJSON(ctx, http.MethodPost, groupRooms+"/"+id(roomID)+"/leave", nil, nil, nil)
}
