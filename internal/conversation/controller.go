// Package conversation drives the open room: it loads the page, owns the
// push subscription, and routes push frames into the chat state owners.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/metrics"
	"github.com/popspot/popchat/internal/outbox"
	"github.com/popspot/popchat/internal/push"
	"github.com/popspot/popchat/internal/store"
)

// ErrNoRoom is returned by room actions when no room is open.
var ErrNoRoom = errors.New("no room is open")

// Identity is the signed-in user.
type Identity struct {
	UserID    int64
	Nickname  string
	BotUserID int64
}

// Backend is the REST surface the controller uses.
type Backend interface {
	Messages(ctx context.Context, key chat.RoomKey, limit int) (backend.Page, error)
	Rooms(ctx context.Context) ([]chat.Room, error)
	StartPrivateChat(ctx context.Context, userID int64) (backend.PrivateRoom, error)
	StartAIChat(ctx context.Context) (backend.PrivateRoom, error)
	DeletePrivateChat(ctx context.Context, roomID int64) error
	CreateGroupRoom(ctx context.Context, req chat.CreateRoomRequest) (backend.GroupRoom, error)
	JoinGroupRoom(ctx context.Context, roomID int64) (backend.GroupRoom, error)
	LeaveGroupRoom(ctx context.Context, roomID int64) error
	DeleteGroupRoom(ctx context.Context, roomID int64) error
	HideRoom(ctx context.Context, key chat.RoomKey) error
	UnhideRoom(ctx context.Context, key chat.RoomKey) error
}

// Push is the push channel.
type Push interface {
	Subscribe(ctx context.Context, topic string, h push.Handler) error
	Unsubscribe()
	SendMessage(ctx context.Context, req chat.SendRequest) error
	SendTyping(ctx context.Context, req chat.TypingRequest) error
}

// Uploads is the image upload outbox.
type Uploads interface {
	Queue(u store.Upload) error
	Retry(key string) (store.Upload, error)
	Cancel(key string) error
	PendingForRoom(room chat.RoomKey) ([]store.Upload, error)
}

// Options configures a Controller.
type Options struct {
	Self     Identity
	PageSize int
	Location *time.Location
}

// Controller orchestrates one open room at a time.
type Controller struct {
	self     Identity
	pageSize int
	loc      *time.Location

	backend  Backend
	push     Push
	uploads  Uploads
	registry *chat.Registry
	reads    *chat.ReadStates
	typing   *chat.Typing
	bus      *bus.Bus
	logger   *zap.Logger
	newKey   func() string

	// opMu serializes Open and Close.
	opMu sync.Mutex

	mu     sync.RWMutex
	room   chat.RoomKey
	isOpen bool
	epoch  uint64
	feed   *chat.Feed
}

// New creates a controller.
func New(opts Options, be Backend, p Push, up Uploads, registry *chat.Registry, reads *chat.ReadStates, typing *chat.Typing, b *bus.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Controller{
		self:     opts.Self,
		pageSize: opts.PageSize,
		loc:      opts.Location,
		backend:  be,
		push:     p,
		uploads:  up,
		registry: registry,
		reads:    reads,
		typing:   typing,
		bus:      b,
		logger:   logger.Named("conversation"),
		newKey:   uuid.NewString,
	}
}

// Open makes key the active room. The previous room is closed first. The
// topic subscription is made once the page fetch is in flight, so pushes that
// race the page are merged into it.
func (c *Controller) Open(ctx context.Context, key chat.RoomKey) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.closeLocked()

	feed := chat.NewFeed(c.loc)
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.room, c.isOpen, c.feed = key, true, feed
	c.mu.Unlock()

	c.registry.SetActive(key)
	c.registry.ClearUnread(key)
	c.bus.Emit(bus.KindRoomOpened, key)

	type result struct {
		page backend.Page
		err  error
	}
	fetched := make(chan result, 1)
	go func() {
		page, err := c.backend.Messages(ctx, key, c.pageSize)
		fetched <- result{page, err}
	}()

	subErr := c.push.Subscribe(ctx, push.Topic(key), func(body []byte) {
		c.handle(epoch, body)
	})
	if subErr != nil {
		subErr = fmt.Errorf("subscribe %s: %w", key, subErr)
		c.logger.Warn("room opened without live updates", zap.Stringer("room", key), zap.Error(subErr))
	}

	res := <-fetched
	if res.err != nil {
		return errors.Join(fmt.Errorf("load %s: %w", key, res.err), subErr)
	}
	if res.page.Skipped > 0 {
		c.logger.Warn("skipped malformed messages", zap.Stringer("room", key), zap.Int("count", res.page.Skipped))
	}

	feed.Load(res.page.Messages)
	c.restoreUploads(feed, key)

	msgs := feed.Messages()
	idx, ok := c.reads.Initialize(key, res.page.EntryReadMessageID, res.page.MyLastReadMessageID,
		res.page.OtherLastReadMessageID, res.page.Participants, msgs, c.self.UserID)
	c.logger.Debug("room loaded", zap.Stringer("room", key), zap.Int("messages", len(msgs)),
		zap.Int("unread_index", idx), zap.Bool("divider", ok))

	c.bus.Emit(bus.KindFeedLoaded, key)
	c.bus.Emit(bus.KindReadChanged, key)
	return subErr
}

// restoreUploads shows placeholders for uploads queued or failed in an
// earlier session of this room.
func (c *Controller) restoreUploads(feed *chat.Feed, key chat.RoomKey) {
	if c.uploads == nil {
		return
	}
	pending, err := c.uploads.PendingForRoom(key)
	if err != nil {
		c.logger.Warn("failed to read pending uploads", zap.Error(err))
		return
	}
	for _, u := range pending {
		// The echo can land before the outbox row is marked done, e.g. when
		// the daemon stopped in between. The server copy wins.
		if feed.HasPersisted(u.ClientMessageKey) {
			c.logger.Debug("upload already delivered", zap.String("key", u.ClientMessageKey))
			continue
		}
		state := chat.UploadPending
		if u.Status == store.UploadFailed {
			state = chat.UploadFailed
		}
		feed.AppendOptimistic(chat.Message{
			ClientMessageKey: u.ClientMessageKey,
			Room:             key,
			SenderID:         u.SenderID,
			SenderNickname:   c.self.Nickname,
			Content:          chat.Image{URL: u.ImageURL, LocalPath: u.LocalPath},
			CreatedAt:        u.CreatedAt,
			Upload:           state,
		})
	}
}

// Close leaves the open room: unsubscribe, drop its read state and typing set.
func (c *Controller) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	c.mu.Lock()
	if !c.isOpen {
		c.mu.Unlock()
		return
	}
	key := c.room
	c.isOpen = false
	c.feed = nil
	c.epoch++
	c.mu.Unlock()

	c.push.Unsubscribe()
	c.reads.Cleanup(key)
	c.typing.Clear()
	c.registry.ClearActive()
	c.bus.Emit(bus.KindRoomClosed, key)
}

// Active returns the open room.
func (c *Controller) Active() (chat.RoomKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.isOpen
}

// Feed returns a snapshot of the open room's messages.
func (c *Controller) Feed() ([]chat.Message, error) {
	feed, _, err := c.current()
	if err != nil {
		return nil, err
	}
	return feed.Messages(), nil
}

// ReadState returns the open room's read state.
func (c *Controller) ReadState() (chat.ReadState, bool) {
	_, key, err := c.current()
	if err != nil {
		return chat.ReadState{}, false
	}
	return c.reads.Get(key)
}

// Typists returns who is typing in the open room.
func (c *Controller) Typists() []chat.Typist {
	return c.typing.Snapshot()
}

func (c *Controller) current() (*chat.Feed, chat.RoomKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.isOpen {
		return nil, chat.RoomKey{}, ErrNoRoom
	}
	return c.feed, c.room, nil
}

// HandlePush applies one inbound frame to the open room.
func (c *Controller) HandlePush(body []byte) {
	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()
	c.handle(epoch, body)
}

func (c *Controller) handle(epoch uint64, body []byte) {
	evt, err := chat.DecodePush(body)
	if err != nil {
		metrics.PushFramesTotal.WithLabelValues("invalid").Inc()
		c.logger.Warn("dropping malformed push frame", zap.Error(err))
		return
	}
	metrics.PushFramesTotal.WithLabelValues(string(evt.Kind)).Inc()

	c.mu.RLock()
	stale := epoch != c.epoch || !c.isOpen
	feed, open := c.feed, c.room
	c.mu.RUnlock()

	if stale || evt.Room != open {
		// Only the room list cares about other rooms.
		if evt.Kind == chat.KindMessage {
			c.noteMessage(*evt.Message)
		}
		return
	}

	switch evt.Kind {
	case chat.KindTypingStart:
		if evt.Typing.UserID == c.self.UserID {
			return
		}
		c.typing.Start(evt.Typing.UserID, evt.Typing.Nickname)
		c.bus.Emit(bus.KindTypingChanged, open)
	case chat.KindTypingStop:
		if c.typing.Stop(evt.Typing.UserID) {
			c.bus.Emit(bus.KindTypingChanged, open)
		}
	case chat.KindMessage:
		m := *evt.Message
		// A reply ends the sender's typing, which is how the bot's "thinking" ends.
		stopped := c.typing.Stop(m.SenderID)
		if c.self.BotUserID != 0 && m.SenderID == c.self.BotUserID {
			stopped = c.typing.Stop(c.self.BotUserID) || stopped
		}
		feed.ApplyMessage(m)
		c.bus.Emit(bus.KindFeedUpdated, open)
		if stopped {
			c.bus.Emit(bus.KindTypingChanged, open)
		}
		c.noteMessage(m)
	case chat.KindRead:
		if c.reads.ApplyReadEvent(open, evt.Read.ReaderID, evt.Read.LastReadMessageID, c.self.UserID) {
			c.bus.Emit(bus.KindReadChanged, open)
		}
	}
}

func (c *Controller) noteMessage(m chat.Message) {
	preview := ""
	if m.Content != nil {
		preview = m.Content.Preview()
	}
	if c.registry.NoteMessage(m.Room, preview, m.CreatedAt) {
		c.bus.Emit(bus.KindRoomUpdated, m.Room)
	}
}

// Run applies upload outcomes to the open feed until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	events, unsub := c.bus.Subscribe("upload.", 64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			res, ok := evt.Payload.(outbox.Result)
			if !ok {
				continue
			}
			c.applyUpload(evt.Kind, res)
		}
	}
}

func (c *Controller) applyUpload(kind string, res outbox.Result) {
	feed, key, err := c.current()
	if err != nil || key != res.Room {
		return
	}
	changed := false
	switch kind {
	case bus.KindUploadFailed:
		changed = feed.MarkUploadFailed(res.Key)
	case bus.KindUploadDone:
		changed = feed.SetImageURL(res.Key, res.ImageURL)
	}
	if changed {
		c.bus.Emit(bus.KindFeedUpdated, key)
	}
}
