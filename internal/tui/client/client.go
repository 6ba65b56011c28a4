package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/popspot/popchat/internal/api"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, service, method string, in, out any) error {
	return c.conn.Invoke(ctx, api.FullMethod(service, method), in, out)
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	out := new(api.StatusResponse)
	return out, c.invoke(ctx, api.SessionServiceName, "GetStatus", &emptypb.Empty{}, out)
}

func (c *Client) ListRooms(ctx context.Context, refresh, withHidden bool) ([]api.Room, error) {
	out := new(api.ListRoomsResponse)
	err := c.invoke(ctx, api.RoomServiceName, "ListRooms", &api.ListRoomsRequest{Refresh: refresh, WithHidden: withHidden}, out)
	return out.Rooms, err
}

// OpenRoom opens room ("TYPE/ID") and returns its first page.
func (c *Client) OpenRoom(ctx context.Context, room string) (*api.FeedResponse, error) {
	out := new(api.FeedResponse)
	return out, c.invoke(ctx, api.RoomServiceName, "OpenRoom", &api.RoomRequest{Room: room}, out)
}

func (c *Client) CloseRoom(ctx context.Context) error {
	return c.invoke(ctx, api.RoomServiceName, "CloseRoom", &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *Client) StartPrivate(ctx context.Context, userID int64) (string, error) {
	out := new(api.RoomResponse)
	err := c.invoke(ctx, api.RoomServiceName, "StartPrivate", &api.StartPrivateRequest{UserID: userID}, out)
	return out.Room, err
}

func (c *Client) StartAI(ctx context.Context) (string, error) {
	out := new(api.RoomResponse)
	err := c.invoke(ctx, api.RoomServiceName, "StartPrivate", &api.StartPrivateRequest{AI: true}, out)
	return out.Room, err
}

func (c *Client) CreateRoom(ctx context.Context, req api.CreateRoomRequest) (string, error) {
	out := new(api.RoomResponse)
	err := c.invoke(ctx, api.RoomServiceName, "CreateRoom", &req, out)
	return out.Room, err
}

func (c *Client) JoinRoom(ctx context.Context, room string) (string, error) {
	out := new(api.RoomResponse)
	err := c.invoke(ctx, api.RoomServiceName, "JoinRoom", &api.RoomRequest{Room: room}, out)
	return out.Room, err
}

func (c *Client) LeaveRoom(ctx context.Context, room string) error {
	return c.invoke(ctx, api.RoomServiceName, "LeaveRoom", &api.RoomRequest{Room: room}, &emptypb.Empty{})
}

func (c *Client) HideRoom(ctx context.Context, room string, hidden bool) error {
	return c.invoke(ctx, api.RoomServiceName, "HideRoom", &api.HideRoomRequest{Room: room, Hidden: hidden}, &emptypb.Empty{})
}

func (c *Client) ListPopups(ctx context.Context, keyword string) ([]api.Popup, error) {
	out := new(api.ListPopupsResponse)
	err := c.invoke(ctx, api.RoomServiceName, "ListPopups", &api.ListPopupsRequest{Keyword: keyword}, out)
	return out.Popups, err
}

func (c *Client) GetPopup(ctx context.Context, id int64) (*api.Popup, error) {
	out := new(api.Popup)
	return out, c.invoke(ctx, api.RoomServiceName, "GetPopup", &api.PopupRequest{ID: id}, out)
}

func (c *Client) GetProfile(ctx context.Context, userID int64) (*api.Profile, error) {
	out := new(api.Profile)
	return out, c.invoke(ctx, api.RoomServiceName, "GetProfile", &api.ProfileRequest{UserID: userID}, out)
}

// ListGroupRooms lists the group rooms of a popup, or every open one when
// popupID is 0.
func (c *Client) ListGroupRooms(ctx context.Context, popupID int64) ([]api.GroupRoom, error) {
	out := new(api.ListGroupRoomsResponse)
	err := c.invoke(ctx, api.RoomServiceName, "ListGroupRooms", &api.ListGroupRoomsRequest{PopupID: popupID}, out)
	return out.Rooms, err
}

func (c *Client) GetGroupRoom(ctx context.Context, room string) (*api.GroupRoom, error) {
	out := new(api.GroupRoom)
	return out, c.invoke(ctx, api.RoomServiceName, "GetGroupRoom", &api.RoomRequest{Room: room}, out)
}

func (c *Client) ListParticipants(ctx context.Context, room string) ([]api.Participant, error) {
	out := new(api.ListParticipantsResponse)
	err := c.invoke(ctx, api.RoomServiceName, "ListParticipants", &api.RoomRequest{Room: room}, out)
	return out.Participants, err
}

func (c *Client) UpdateGroupRoom(ctx context.Context, req api.UpdateGroupRoomRequest) (*api.GroupRoom, error) {
	out := new(api.GroupRoom)
	return out, c.invoke(ctx, api.RoomServiceName, "UpdateGroupRoom", &req, out)
}

func (c *Client) Feed(ctx context.Context) (*api.FeedResponse, error) {
	out := new(api.FeedResponse)
	return out, c.invoke(ctx, api.MessageServiceName, "GetFeed", &emptypb.Empty{}, out)
}

// SendText sends text to the open room and returns its client key.
func (c *Client) SendText(ctx context.Context, text string) (string, error) {
	out := new(api.SendMessageResponse)
	err := c.invoke(ctx, api.MessageServiceName, "SendMessage", &api.SendMessageRequest{Text: text}, out)
	return out.ClientMessageKey, err
}

// SharePopup shares a popup card in the open room.
func (c *Client) SharePopup(ctx context.Context, popupID int64) (string, error) {
	out := new(api.SendMessageResponse)
	err := c.invoke(ctx, api.MessageServiceName, "SendMessage", &api.SendMessageRequest{PopupID: popupID}, out)
	return out.ClientMessageKey, err
}

func (c *Client) SendImage(ctx context.Context, path string) (string, error) {
	out := new(api.SendMessageResponse)
	err := c.invoke(ctx, api.MessageServiceName, "SendImage", &api.SendImageRequest{Path: path}, out)
	return out.ClientMessageKey, err
}

func (c *Client) RetryUpload(ctx context.Context, key string) error {
	return c.invoke(ctx, api.MessageServiceName, "RetryUpload", &api.UploadRequest{ClientMessageKey: key}, &emptypb.Empty{})
}

func (c *Client) CancelUpload(ctx context.Context, key string) error {
	return c.invoke(ctx, api.MessageServiceName, "CancelUpload", &api.UploadRequest{ClientMessageKey: key}, &emptypb.Empty{})
}

func (c *Client) SetTyping(ctx context.Context, typing bool) error {
	return c.invoke(ctx, api.MessageServiceName, "SetTyping", &api.TypingRequest{Typing: typing}, &emptypb.Empty{})
}

// ScheduleMessage schedules text for room, or the open room when room is
// empty.
func (c *Client) ScheduleMessage(ctx context.Context, room, text string, at time.Time) (*api.ScheduledMessage, error) {
	out := new(api.ScheduledMessage)
	req := &api.ScheduleMessageRequest{Room: room, Text: text, At: at.UnixMilli()}
	return out, c.invoke(ctx, api.MessageServiceName, "ScheduleMessage", req, out)
}

func (c *Client) ListScheduled(ctx context.Context, room string) ([]api.ScheduledMessage, error) {
	out := new(api.ListScheduledResponse)
	err := c.invoke(ctx, api.MessageServiceName, "ListScheduled", &api.RoomRequest{Room: room}, out)
	return out.Messages, err
}

func (c *Client) UpdateScheduled(ctx context.Context, id int64, room, text string, at time.Time) (*api.ScheduledMessage, error) {
	out := new(api.ScheduledMessage)
	req := &api.UpdateScheduledRequest{ID: id, Room: room, Text: text, At: at.UnixMilli()}
	return out, c.invoke(ctx, api.MessageServiceName, "UpdateScheduled", req, out)
}

func (c *Client) DeleteScheduled(ctx context.Context, id int64) error {
	return c.invoke(ctx, api.MessageServiceName, "DeleteScheduled", &api.ScheduledRequest{ID: id}, &emptypb.Empty{})
}

func (c *Client) Report(ctx context.Context, req api.ReportRequest) error {
	return c.invoke(ctx, api.MessageServiceName, "Report", &req, &emptypb.Empty{})
}

// WatchEvents streams daemon events matching namespaces to fn until ctx is
// done or the stream breaks. It returns nil when ctx is cancelled.
func (c *Client) WatchEvents(ctx context.Context, namespaces []string, fn func(api.Event)) error {
	stream, err := c.conn.NewStream(ctx, &api.WatchEventsStream, api.FullMethod(api.EventServiceName, "WatchEvents"))
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}
	if err := stream.SendMsg(&api.WatchEventsRequest{Namespaces: namespaces}); err != nil {
		return fmt.Errorf("watch events: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("watch events: %w", err)
	}
	for {
		env := new(structpb.Struct)
		if err := stream.RecvMsg(env); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch events: %w", err)
		}
		fn(api.DecodeEvent(env))
	}
}
