package bus

import "time"

// Event kinds. Subscribers filter by namespace prefix, e.g. "feed." or "room.".
const (
	KindPushStatus = "push.status_changed"

	KindRoomsReplaced = "room.list_replaced"
	KindRoomUpdated   = "room.updated"
	KindRoomRemoved   = "room.removed"
	KindRoomOpened    = "room.opened"
	KindRoomClosed    = "room.closed"

	KindFeedLoaded  = "feed.loaded"
	KindFeedUpdated = "feed.updated"

	KindTypingChanged = "typing.changed"

	KindReadChanged = "read.changed"

	KindUploadQueued = "upload.queued"
	KindUploadDone   = "upload.done"
	KindUploadFailed = "upload.failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
