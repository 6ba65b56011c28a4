package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/metrics"
	"github.com/popspot/popchat/internal/store"
)

// Send posts content to the open room. The message shows up at once as an
// optimistic copy that the server echo later replaces. It returns the client
// key of the message.
func (c *Controller) Send(ctx context.Context, content chat.Content) (string, error) {
	if t, ok := content.(chat.Text); ok && strings.TrimSpace(t.Body) == "" {
		return "", errors.New("message is empty")
	}
	feed, key, err := c.current()
	if err != nil {
		return "", err
	}

	// Sending ends the typing session.
	if err := c.publishTyping(ctx, key, chat.KindTypingStop); err != nil {
		c.logger.Debug("typing stop not sent", zap.Error(err))
	}

	clientKey := c.newKey()
	m := chat.Message{
		ClientMessageKey: clientKey,
		Room:             key,
		SenderID:         c.self.UserID,
		SenderNickname:   c.self.Nickname,
		Content:          content,
		CreatedAt:        time.Now(),
	}
	feed.AppendOptimistic(m)
	c.bus.Emit(bus.KindFeedUpdated, key)
	c.noteMessage(m)

	err = c.push.SendMessage(ctx, chat.SendRequest{
		RoomID:           key.ID,
		RoomType:         key.Type,
		Content:          chat.EncodeContent(content),
		SenderID:         c.self.UserID,
		MessageType:      content.Type(),
		ClientMessageKey: clientKey,
	})
	if err != nil {
		return clientKey, fmt.Errorf("send message: %w", err)
	}
	metrics.MessagesSentTotal.WithLabelValues(string(content.Type())).Inc()
	return clientKey, nil
}

// SendImage queues a local image for upload. A placeholder marked as
// uploading is shown until the echo of the image message arrives.
func (c *Controller) SendImage(ctx context.Context, path string) (string, error) {
	if c.uploads == nil {
		return "", errors.New("image uploads are not available")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("image: %s is a directory", path)
	}
	feed, key, err := c.current()
	if err != nil {
		return "", err
	}
	if err := c.publishTyping(ctx, key, chat.KindTypingStop); err != nil {
		c.logger.Debug("typing stop not sent", zap.Error(err))
	}

	clientKey := c.newKey()
	feed.AppendOptimistic(chat.Message{
		ClientMessageKey: clientKey,
		Room:             key,
		SenderID:         c.self.UserID,
		SenderNickname:   c.self.Nickname,
		Content:          chat.Image{LocalPath: path},
		CreatedAt:        time.Now(),
		Upload:           chat.UploadPending,
	})
	c.bus.Emit(bus.KindFeedUpdated, key)

	err = c.uploads.Queue(store.Upload{ClientMessageKey: clientKey, Room: key, SenderID: c.self.UserID, LocalPath: path})
	if err != nil {
		feed.MarkUploadFailed(clientKey)
		c.bus.Emit(bus.KindFeedUpdated, key)
		return clientKey, fmt.Errorf("queue upload: %w", err)
	}
	return clientKey, nil
}

// RetryUpload re-attempts a failed upload under the same client key.
func (c *Controller) RetryUpload(key string) error {
	if _, err := c.uploads.Retry(key); err != nil {
		return fmt.Errorf("retry upload: %w", err)
	}
	if feed, room, err := c.current(); err == nil && feed.MarkUploadPending(key) {
		c.bus.Emit(bus.KindFeedUpdated, room)
	}
	return nil
}

// CancelUpload drops a failed or queued upload and its placeholder.
func (c *Controller) CancelUpload(key string) error {
	if err := c.uploads.Cancel(key); err != nil {
		return fmt.Errorf("cancel upload: %w", err)
	}
	if feed, room, err := c.current(); err == nil && feed.RemovePending(key) {
		c.bus.Emit(bus.KindFeedUpdated, room)
	}
	return nil
}

// StartTyping tells the room the user is typing.
func (c *Controller) StartTyping(ctx context.Context) error {
	_, key, err := c.current()
	if err != nil {
		return err
	}
	return c.publishTyping(ctx, key, chat.KindTypingStart)
}

// StopTyping tells the room the user stopped typing.
func (c *Controller) StopTyping(ctx context.Context) error {
	_, key, err := c.current()
	if err != nil {
		return err
	}
	return c.publishTyping(ctx, key, chat.KindTypingStop)
}

func (c *Controller) publishTyping(ctx context.Context, key chat.RoomKey, kind chat.PushKind) error {
	return c.push.SendTyping(ctx, chat.TypingRequest{
		Type:           kind,
		RoomType:       key.Type,
		RoomID:         key.ID,
		SenderID:       c.self.UserID,
		SenderNickname: c.self.Nickname,
	})
}
