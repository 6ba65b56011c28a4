package api

import (
	"context"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/conversation"
)

// MessageBackend is what MessageService needs from the backend beyond the
// open room: popup lookups for shares, scheduled messages and reports.
type MessageBackend interface {
	Directory
	CreateScheduledMessage(ctx context.Context, m backend.ScheduledMessage) (backend.ScheduledMessage, error)
	ScheduledMessages(ctx context.Context, key chat.RoomKey) ([]backend.ScheduledMessage, error)
	UpdateScheduledMessage(ctx context.Context, m backend.ScheduledMessage) (backend.ScheduledMessage, error)
	DeleteScheduledMessage(ctx context.Context, messageID int64) error
	Report(ctx context.Context, req backend.ReportRequest) error
}

// MessageService implements the MessageService gRPC service.
type MessageService struct {
	conv *conversation.Controller
	dir  MessageBackend
	self int64
	now  func() time.Time
}

// NewMessageService creates a message service.
func NewMessageService(conv *conversation.Controller, dir MessageBackend, self conversation.Identity) *MessageService {
	return &MessageService{conv: conv, dir: dir, self: self.UserID, now: time.Now}
}

func (s *MessageService) GetFeed(_ context.Context, _ *emptypb.Empty) (*FeedResponse, error) {
	return currentFeed(s.conv, s.self)
}

func (s *MessageService) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	var content chat.Content
	switch {
	case req.PopupID > 0:
		p, err := s.dir.Popup(ctx, req.PopupID)
		if err != nil {
			return nil, toStatus("share popup", err)
		}
		content = p.Share()
	case strings.TrimSpace(req.Text) != "":
		content = chat.Text{Body: req.Text}
	default:
		return nil, invalid("message is empty")
	}
	key, err := s.conv.Send(ctx, content)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &SendMessageResponse{ClientMessageKey: key}, nil
}

func (s *MessageService) SendImage(ctx context.Context, req *SendImageRequest) (*SendMessageResponse, error) {
	if req.Path == "" {
		return nil, invalid("image path is required")
	}
	key, err := s.conv.SendImage(ctx, req.Path)
	if err != nil {
		return nil, toStatus("send image", err)
	}
	return &SendMessageResponse{ClientMessageKey: key}, nil
}

func (s *MessageService) RetryUpload(_ context.Context, req *UploadRequest) (*emptypb.Empty, error) {
	if err := s.conv.RetryUpload(req.ClientMessageKey); err != nil {
		return nil, toStatus("retry upload", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *MessageService) CancelUpload(_ context.Context, req *UploadRequest) (*emptypb.Empty, error) {
	if err := s.conv.CancelUpload(req.ClientMessageKey); err != nil {
		return nil, toStatus("cancel upload", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *MessageService) SetTyping(ctx context.Context, req *TypingRequest) (*emptypb.Empty, error) {
	var err error
	if req.Typing {
		err = s.conv.StartTyping(ctx)
	} else {
		err = s.conv.StopTyping(ctx)
	}
	if err != nil {
		return nil, toStatus("typing", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *MessageService) ScheduleMessage(ctx context.Context, req *ScheduleMessageRequest) (*ScheduledMessage, error) {
	m, err := s.scheduled(0, req.Room, req.Text, req.At)
	if err != nil {
		return nil, err
	}
	if m, err = s.dir.CreateScheduledMessage(ctx, m); err != nil {
		return nil, toStatus("schedule message", err)
	}
	out := scheduledToAPI(m)
	return &out, nil
}

func (s *MessageService) ListScheduled(ctx context.Context, req *RoomRequest) (*ListScheduledResponse, error) {
	key, err := s.roomOrActive(req.Room)
	if err != nil {
		return nil, err
	}
	msgs, err := s.dir.ScheduledMessages(ctx, key)
	if err != nil {
		return nil, toStatus("list scheduled messages", err)
	}
	resp := &ListScheduledResponse{Messages: make([]ScheduledMessage, len(msgs))}
	for i, m := range msgs {
		resp.Messages[i] = scheduledToAPI(m)
	}
	return resp, nil
}

func (s *MessageService) UpdateScheduled(ctx context.Context, req *UpdateScheduledRequest) (*ScheduledMessage, error) {
	if req.ID <= 0 {
		return nil, invalid("scheduled message id must be positive")
	}
	m, err := s.scheduled(req.ID, req.Room, req.Text, req.At)
	if err != nil {
		return nil, err
	}
	if m, err = s.dir.UpdateScheduledMessage(ctx, m); err != nil {
		return nil, toStatus("update scheduled message", err)
	}
	out := scheduledToAPI(m)
	return &out, nil
}

func (s *MessageService) DeleteScheduled(ctx context.Context, req *ScheduledRequest) (*emptypb.Empty, error) {
	if req.ID <= 0 {
		return nil, invalid("scheduled message id must be positive")
	}
	if err := s.dir.DeleteScheduledMessage(ctx, req.ID); err != nil {
		return nil, toStatus("delete scheduled message", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *MessageService) Report(ctx context.Context, req *ReportRequest) (*emptypb.Empty, error) {
	key, err := s.roomOrActive(req.Room)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("a report needs a reason")
	}
	if req.MessageID < 0 {
		return nil, invalid("message id must not be negative")
	}
	err = s.dir.Report(ctx, backend.ReportRequest{RoomID: key.ID, RoomType: key.Type, MessageID: req.MessageID, Reason: reason})
	if err != nil {
		return nil, toStatus("report", err)
	}
	return &emptypb.Empty{}, nil
}

// scheduled validates a text message to be sent at atMs.
func (s *MessageService) scheduled(id int64, room, text string, atMs int64) (backend.ScheduledMessage, error) {
	key, err := s.roomOrActive(room)
	if err != nil {
		return backend.ScheduledMessage{}, err
	}
	if strings.TrimSpace(text) == "" {
		return backend.ScheduledMessage{}, invalid("message is empty")
	}
	at := time.UnixMilli(atMs)
	if !at.After(s.now()) {
		return backend.ScheduledMessage{}, invalid("scheduled time %s is not in the future", at.Format(time.RFC3339))
	}
	return backend.ScheduledMessage{
		ID:          id,
		RoomID:      key.ID,
		RoomType:    key.Type,
		Content:     text,
		MessageType: chat.TypeText,
		ScheduledAt: at,
	}, nil
}

// roomOrActive parses room, falling back to the open room when it is empty.
func (s *MessageService) roomOrActive(room string) (chat.RoomKey, error) {
	if room != "" {
		key, err := chat.ParseRoomKey(room)
		if err != nil {
			return chat.RoomKey{}, invalid("%v", err)
		}
		return key, nil
	}
	key, ok := s.conv.Active()
	if !ok {
		return chat.RoomKey{}, toStatus("room", conversation.ErrNoRoom)
	}
	return key, nil
}
