package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names.
const (
	SessionServiceName = "popchat.v1.SessionService"
	RoomServiceName    = "popchat.v1.RoomService"
	MessageServiceName = "popchat.v1.MessageService"
	EventServiceName   = "popchat.v1.EventService"
)

// FullMethod returns the gRPC method path of a service method.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// SessionServer reports daemon state.
type SessionServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*StatusResponse, error)
}

// RoomServer manages the room list and the open room.
type RoomServer interface {
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	OpenRoom(context.Context, *RoomRequest) (*FeedResponse, error)
	CloseRoom(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	StartPrivate(context.Context, *StartPrivateRequest) (*RoomResponse, error)
	CreateRoom(context.Context, *CreateRoomRequest) (*RoomResponse, error)
	JoinRoom(context.Context, *RoomRequest) (*RoomResponse, error)
	LeaveRoom(context.Context, *RoomRequest) (*emptypb.Empty, error)
	HideRoom(context.Context, *HideRoomRequest) (*emptypb.Empty, error)
	ListPopups(context.Context, *ListPopupsRequest) (*ListPopupsResponse, error)
	GetPopup(context.Context, *PopupRequest) (*Popup, error)
	GetProfile(context.Context, *ProfileRequest) (*Profile, error)
	ListGroupRooms(context.Context, *ListGroupRoomsRequest) (*ListGroupRoomsResponse, error)
	GetGroupRoom(context.Context, *RoomRequest) (*GroupRoom, error)
	ListParticipants(context.Context, *RoomRequest) (*ListParticipantsResponse, error)
	UpdateGroupRoom(context.Context, *UpdateGroupRoomRequest) (*GroupRoom, error)
}

// MessageServer reads and writes the open room.
type MessageServer interface {
	GetFeed(context.Context, *emptypb.Empty) (*FeedResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	SendImage(context.Context, *SendImageRequest) (*SendMessageResponse, error)
	RetryUpload(context.Context, *UploadRequest) (*emptypb.Empty, error)
	CancelUpload(context.Context, *UploadRequest) (*emptypb.Empty, error)
	SetTyping(context.Context, *TypingRequest) (*emptypb.Empty, error)
	ScheduleMessage(context.Context, *ScheduleMessageRequest) (*ScheduledMessage, error)
	ListScheduled(context.Context, *RoomRequest) (*ListScheduledResponse, error)
	UpdateScheduled(context.Context, *UpdateScheduledRequest) (*ScheduledMessage, error)
	DeleteScheduled(context.Context, *ScheduledRequest) (*emptypb.Empty, error)
	Report(context.Context, *ReportRequest) (*emptypb.Empty, error)
}

// EventServer streams bus events.
type EventServer interface {
	WatchEvents(*WatchEventsRequest, EventStream) error
}

// EventStream is the server side of WatchEvents.
type EventStream interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

// unary builds a method descriptor from a method expression such as
// (RoomServer).ListRooms.
func unary[S, Req, Resp any](service, name string, fn func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(service, name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetStatus", SessionServer.GetStatus),
	},
	Metadata: "popchat/v1/session",
}

var roomServiceDesc = grpc.ServiceDesc{
	ServiceName: RoomServiceName,
	HandlerType: (*RoomServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(RoomServiceName, "ListRooms", RoomServer.ListRooms),
		unary(RoomServiceName, "OpenRoom", RoomServer.OpenRoom),
		unary(RoomServiceName, "CloseRoom", RoomServer.CloseRoom),
		unary(RoomServiceName, "StartPrivate", RoomServer.StartPrivate),
		unary(RoomServiceName, "CreateRoom", RoomServer.CreateRoom),
		unary(RoomServiceName, "JoinRoom", RoomServer.JoinRoom),
		unary(RoomServiceName, "LeaveRoom", RoomServer.LeaveRoom),
		unary(RoomServiceName, "HideRoom", RoomServer.HideRoom),
		unary(RoomServiceName, "ListPopups", RoomServer.ListPopups),
		unary(RoomServiceName, "GetPopup", RoomServer.GetPopup),
		unary(RoomServiceName, "GetProfile", RoomServer.GetProfile),
		unary(RoomServiceName, "ListGroupRooms", RoomServer.ListGroupRooms),
		unary(RoomServiceName, "GetGroupRoom", RoomServer.GetGroupRoom),
		unary(RoomServiceName, "ListParticipants", RoomServer.ListParticipants),
		unary(RoomServiceName, "UpdateGroupRoom", RoomServer.UpdateGroupRoom),
	},
	Metadata: "popchat/v1/room",
}

var messageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "GetFeed", MessageServer.GetFeed),
		unary(MessageServiceName, "SendMessage", MessageServer.SendMessage),
		unary(MessageServiceName, "SendImage", MessageServer.SendImage),
		unary(MessageServiceName, "RetryUpload", MessageServer.RetryUpload),
		unary(MessageServiceName, "CancelUpload", MessageServer.CancelUpload),
		unary(MessageServiceName, "SetTyping", MessageServer.SetTyping),
		unary(MessageServiceName, "ScheduleMessage", MessageServer.ScheduleMessage),
		unary(MessageServiceName, "ListScheduled", MessageServer.ListScheduled),
		unary(MessageServiceName, "UpdateScheduled", MessageServer.UpdateScheduled),
		unary(MessageServiceName, "DeleteScheduled", MessageServer.DeleteScheduled),
		unary(MessageServiceName, "Report", MessageServer.Report),
	},
	Metadata: "popchat/v1/message",
}

// WatchEventsStream describes the server-streaming WatchEvents call for
// clients.
var WatchEventsStream = grpc.StreamDesc{
	StreamName:    "WatchEvents",
	ServerStreams: true,
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: EventServiceName,
	HandlerType: (*EventServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "WatchEvents",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(WatchEventsRequest)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return srv.(EventServer).WatchEvents(in, &eventStream{stream})
		},
	}},
	Metadata: "popchat/v1/event",
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// Register attaches every popchat service to srv.
func Register(srv grpc.ServiceRegistrar, session SessionServer, rooms RoomServer, messages MessageServer, events EventServer) {
	srv.RegisterService(&sessionServiceDesc, session)
	srv.RegisterService(&roomServiceDesc, rooms)
	srv.RegisterService(&messageServiceDesc, messages)
	srv.RegisterService(&eventServiceDesc, events)
}
