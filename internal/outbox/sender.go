package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/metrics"
	"github.com/popspot/popchat/internal/store"
)

const pollInterval = 500 * time.Millisecond

// Uploader stores an image on the backend and returns its public URL.
type Uploader interface {
	UploadImage(ctx context.Context, path string) (url string, err error)
}

// Publisher sends a message on the push channel.
type Publisher interface {
	SendMessage(ctx context.Context, req chat.SendRequest) error
}

// Result is the payload of upload.* bus events.
type Result struct {
	Key      string       `json:"clientMessageKey"`
	Room     chat.RoomKey `json:"room"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Err      string       `json:"error,omitempty"`
}

// Sender drains queued image uploads: upload the file, then publish an IMAGE
// message carrying the same client key as the optimistic placeholder.
type Sender struct {
	db        *store.DB
	uploader  Uploader
	publisher Publisher
	bus       *bus.Bus
	logger    *zap.Logger
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSender creates a new upload sender.
func NewSender(db *store.DB, uploader Uploader, publisher Publisher, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:        db,
		uploader:  uploader,
		publisher: publisher,
		bus:       b,
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}
}

// Start requeues uploads interrupted by a previous run and begins polling.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.ResetInterrupted(); err != nil {
		s.logger.Error("failed to reset interrupted uploads", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted uploads", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for the current upload to finish.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Queue persists a new upload and wakes the loop.
func (s *Sender) Queue(u store.Upload) error {
	if err := s.db.QueueUpload(u); err != nil {
		return err
	}
	s.bus.Emit(bus.KindUploadQueued, Result{Key: u.ClientMessageKey, Room: u.Room})
	s.poke()
	return nil
}

// Retry requeues a failed upload under its original key.
func (s *Sender) Retry(key string) (store.Upload, error) {
	if err := s.db.RequeueUpload(key); err != nil {
		return store.Upload{}, err
	}
	u, err := s.db.GetUpload(key)
	if err != nil {
		return store.Upload{}, err
	}
	s.bus.Emit(bus.KindUploadQueued, Result{Key: key, Room: u.Room})
	s.poke()
	return u, nil
}

// Cancel drops a queued or failed upload.
func (s *Sender) Cancel(key string) error {
	return s.db.DeleteUpload(key)
}

// PendingForRoom lists the undelivered uploads of a room.
func (s *Sender) PendingForRoom(room chat.RoomKey) ([]store.Upload, error) {
	return s.db.UploadsForRoom(room)
}

func (s *Sender) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.wake:
		case <-ctx.Done():
			return
		}
		s.processPending(ctx)
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.UploadsByStatus(store.UploadQueued)
	if err != nil {
		s.logger.Error("failed to read upload queue", zap.Error(err))
		return
	}

	for _, u := range pending {
		if ctx.Err() != nil {
			return
		}
		claimed, err := s.db.ClaimUpload(u.ClientMessageKey)
		if err != nil {
			s.logger.Error("failed to claim upload", zap.Error(err), zap.String("client_message_key", u.ClientMessageKey))
			continue
		}
		if !claimed {
			continue
		}
		s.deliver(ctx, u)
	}
}

func (s *Sender) deliver(ctx context.Context, u store.Upload) {
	log := s.logger.With(zap.String("client_message_key", u.ClientMessageKey), zap.Stringer("room", u.Room))

	url := u.ImageURL
	if url == "" {
		var err error
		url, err = s.uploader.UploadImage(ctx, u.LocalPath)
		if err != nil {
			s.fail(u, fmt.Errorf("upload %s: %w", u.LocalPath, err))
			return
		}
		// Keep the URL so a retry after a failed publish skips the upload.
		if err := s.db.SetUploadURL(u.ClientMessageKey, url); err != nil {
			log.Error("failed to record upload url", zap.Error(err))
		}
	}

	err := s.publisher.SendMessage(ctx, chat.SendRequest{
		RoomID:           u.Room.ID,
		RoomType:         u.Room.Type,
		Content:          url,
		SenderID:         u.SenderID,
		MessageType:      chat.TypeImage,
		ClientMessageKey: u.ClientMessageKey,
	})
	if err != nil {
		s.fail(u, fmt.Errorf("publish image message: %w", err))
		return
	}

	if err := s.db.MarkUploadDone(u.ClientMessageKey, url); err != nil {
		log.Error("failed to mark upload done", zap.Error(err))
	}
	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.MessagesSentTotal.WithLabelValues(string(chat.TypeImage)).Inc()
	log.Info("image sent", zap.String("url", url))
	s.bus.Emit(bus.KindUploadDone, Result{Key: u.ClientMessageKey, Room: u.Room, ImageURL: url})
}

func (s *Sender) fail(u store.Upload, err error) {
	if errors.Is(err, context.Canceled) {
		// Shutdown mid-upload: leave it for ResetInterrupted on next start.
		return
	}
	s.logger.Warn("image upload failed", zap.Error(err), zap.String("client_message_key", u.ClientMessageKey))
	if dbErr := s.db.MarkUploadFailed(u.ClientMessageKey, err.Error()); dbErr != nil {
		s.logger.Error("failed to mark upload failed", zap.Error(dbErr))
	}
	metrics.UploadsTotal.WithLabelValues("failed").Inc()
	s.bus.Emit(bus.KindUploadFailed, Result{Key: u.ClientMessageKey, Room: u.Room, Err: err.Error()})
}
