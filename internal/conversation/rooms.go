package conversation

import (
	"context"
	"fmt"

	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
)

// RefreshRooms replaces the room list from the backend.
func (c *Controller) RefreshRooms(ctx context.Context) ([]chat.Room, error) {
	rooms, err := c.backend.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	c.registry.Replace(rooms)
	c.bus.Emit(bus.KindRoomsReplaced, len(rooms))
	return c.registry.Rooms(), nil
}

// Rooms returns the cached room list.
func (c *Controller) Rooms() []chat.Room {
	return c.registry.Rooms()
}

// StartPrivate opens the one-to-one room with userID, adding it to the list
// if it is new.
func (c *Controller) StartPrivate(ctx context.Context, userID int64) (chat.RoomKey, error) {
	pr, err := c.backend.StartPrivateChat(ctx, userID)
	if err != nil {
		return chat.RoomKey{}, fmt.Errorf("start private chat: %w", err)
	}
	return c.selectPrivate(ctx, pr.Room())
}

// StartAI opens the private room with the assistant bot.
func (c *Controller) StartAI(ctx context.Context) (chat.RoomKey, error) {
	pr, err := c.backend.StartAIChat(ctx)
	if err != nil {
		return chat.RoomKey{}, fmt.Errorf("start ai chat: %w", err)
	}
	return c.selectPrivate(ctx, pr.Room())
}

func (c *Controller) selectPrivate(ctx context.Context, room chat.Room) (chat.RoomKey, error) {
	if c.registry.AddOrSelectPrivate(room) {
		c.bus.Emit(bus.KindRoomUpdated, room.Key)
	}
	return room.Key, c.Open(ctx, room.Key)
}

// CreateGroup submits the flow and opens the created room.
func (c *Controller) CreateGroup(ctx context.Context, flow *chat.CreateFlow) (chat.RoomKey, error) {
	req, err := flow.Submit()
	if err != nil {
		return chat.RoomKey{}, err
	}
	g, err := c.backend.CreateGroupRoom(ctx, req)
	if cErr := flow.Complete(g.Key(), err); cErr != nil {
		return chat.RoomKey{}, cErr
	}
	if err != nil {
		return chat.RoomKey{}, fmt.Errorf("create room: %w", err)
	}
	if _, err := c.RefreshRooms(ctx); err != nil {
		c.registry.AddOrSelect(chat.Room{Key: g.Key(), Name: g.RoomName, PopupID: g.PopupID})
	}
	return g.Key(), c.Open(ctx, g.Key())
}

// JoinGroup joins a group room and opens it.
func (c *Controller) JoinGroup(ctx context.Context, roomID int64) (chat.RoomKey, error) {
	g, err := c.backend.JoinGroupRoom(ctx, roomID)
	if err != nil {
		return chat.RoomKey{}, fmt.Errorf("join room: %w", err)
	}
	if _, err := c.RefreshRooms(ctx); err != nil {
		return chat.RoomKey{}, err
	}
	return g.Key(), c.Open(ctx, g.Key())
}

// Leave leaves a group room or deletes a private one, then drops it from the
// list. Leaving the open room closes it.
func (c *Controller) Leave(ctx context.Context, key chat.RoomKey) error {
	var err error
	if key.Type == chat.Private {
		err = c.backend.DeletePrivateChat(ctx, key.ID)
	} else {
		err = c.backend.LeaveGroupRoom(ctx, key.ID)
	}
	if err != nil {
		return fmt.Errorf("leave %s: %w", key, err)
	}
	c.forget(key)
	return nil
}

// DeleteGroup deletes a group room the user owns.
func (c *Controller) DeleteGroup(ctx context.Context, roomID int64) error {
	key := chat.RoomKey{Type: chat.Group, ID: roomID}
	if err := c.backend.DeleteGroupRoom(ctx, roomID); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	c.forget(key)
	return nil
}

func (c *Controller) forget(key chat.RoomKey) {
	if open, ok := c.Active(); ok && open == key {
		c.Close()
	}
	if c.registry.Remove(key) {
		c.bus.Emit(bus.KindRoomRemoved, key)
	}
}

// SetHidden hides or unhides a room.
func (c *Controller) SetHidden(ctx context.Context, key chat.RoomKey, hidden bool) error {
	var err error
	if hidden {
		err = c.backend.HideRoom(ctx, key)
	} else {
		err = c.backend.UnhideRoom(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("hide %s: %w", key, err)
	}
	if c.registry.SetHidden(key, hidden) {
		c.bus.Emit(bus.KindRoomUpdated, key)
	}
	return nil
}

// Room returns the cached entry of key.
func (c *Controller) Room(key chat.RoomKey) (chat.Room, bool) {
	return c.registry.Get(key)
}
