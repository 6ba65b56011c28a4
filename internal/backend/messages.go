package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/popspot/popchat/internal/chat"
)

// Messages fetches the latest limit messages of a room, newest first, with the
// read markers as of now. Records that fail to normalize are skipped.
func (c *Client) Messages(ctx context.Context, key chat.RoomKey, limit int) (Page, error) {
	q := url.Values{
		"roomId":   {id(key.ID)},
		"roomType": {string(key.Type)},
		"limit":    {strconv.Itoa(limit)},
	}
	var raw messagePage
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/messages", q, nil, &raw); err != nil {
		return Page{}, err
	}

	page := Page{
		Messages:               make([]chat.Message, 0, len(raw.Messages)),
		EntryReadMessageID:     raw.LastReadMessageID,
		MyLastReadMessageID:    raw.MyLastReadMessageID,
		OtherLastReadMessageID: raw.OtherLastReadMessageID,
		Participants:           participants(raw.Participants),
	}
	for _, r := range raw.Messages {
		var w chat.WireMessage
		if err := json.Unmarshal(r, &w); err != nil {
			page.Skipped++
			continue
		}
		// Page records omit the room when it is implied by the query.
		if w.RoomType == "" {
			w.RoomType = string(key.Type)
		}
		if w.RoomID == "" {
			w.RoomID = json.Number(id(key.ID))
		}
		m, err := chat.NormalizeMessage(w)
		if err != nil {
			page.Skipped++
			continue
		}
		page.Messages = append(page.Messages, m)
	}
	return page, nil
}

const scheduled = "/api/chat/scheduled-messages"

// CreateScheduledMessage schedules a message for later delivery.
func (c *Client) CreateScheduledMessage(ctx context.Context, m ScheduledMessage) (ScheduledMessage, error) {
	var out ScheduledMessage
	err := c.doJSON(ctx, http.MethodPost, scheduled, nil, m, &out)
	return out, err
}

// ScheduledMessages lists the pending scheduled messages of a room.
func (c *Client) ScheduledMessages(ctx context.Context, key chat.RoomKey) ([]ScheduledMessage, error) {
	q := url.Values{"roomId": {id(key.ID)}, "roomType": {string(key.Type)}}
	var out []ScheduledMessage
	err := c.doJSON(ctx, http.MethodGet, scheduled, q, nil, &out)
	return out, err
}

// UpdateScheduledMessage changes the content or time of a scheduled message.
func (c *Client) UpdateScheduledMessage(ctx context.Context, m ScheduledMessage) (ScheduledMessage, error) {
	var out ScheduledMessage
	err := c.doJSON(ctx, http.MethodPut, scheduled+"/"+id(m.ID), nil, m, &out)
	return out, err
}

// DeleteScheduledMessage cancels a scheduled message.
func (c *Client) DeleteScheduledMessage(ctx context.Context, messageID int64) error {
	return c.doJSON(ctx, http.MethodDelete, scheduled+"/"+id(messageID), nil, nil, nil)
}
