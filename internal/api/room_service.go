package api

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/conversation"
)

// Directory looks up popups and user profiles on the backend.
type Directory interface {
	Popups(ctx context.Context, keyword string) ([]backend.Popup, error)
	Popup(ctx context.Context, popupID int64) (backend.Popup, error)
	MiniProfile(ctx context.Context, userID int64) (backend.MiniProfile, error)
}

// GroupDirectory browses and edits group rooms, including ones the user has
// not joined.
type GroupDirectory interface {
	Directory
	GroupRooms(ctx context.Context, popupID int64) ([]backend.GroupRoom, error)
	GroupRoom(ctx context.Context, roomID int64) (backend.GroupRoom, error)
	Participants(ctx context.Context, roomID int64) ([]chat.Participant, error)
	UpdateGroupRoom(ctx context.Context, roomID int64, req backend.UpdateGroupRoomRequest) (backend.GroupRoom, error)
}

// RoomService implements the RoomService gRPC service.
type RoomService struct {
	conv *conversation.Controller
	dir  GroupDirectory
	self int64
}

// NewRoomService creates a room service.
func NewRoomService(conv *conversation.Controller, dir GroupDirectory, self conversation.Identity) *RoomService {
	return &RoomService{conv: conv, dir: dir, self: self.UserID}
}

func (s *RoomService) ListRooms(ctx context.Context, req *ListRoomsRequest) (*ListRoomsResponse, error) {
	rooms := s.conv.Rooms()
	if req.Refresh {
		var err error
		if rooms, err = s.conv.RefreshRooms(ctx); err != nil {
			return nil, toStatus("list rooms", err)
		}
	}
	active, _ := s.conv.Active()
	resp := &ListRoomsResponse{Rooms: make([]Room, 0, len(rooms))}
	for _, r := range rooms {
		if r.Hidden && !req.WithHidden {
			continue
		}
		resp.Rooms = append(resp.Rooms, roomToAPI(r, active))
	}
	return resp, nil
}

func (s *RoomService) OpenRoom(ctx context.Context, req *RoomRequest) (*FeedResponse, error) {
	key, err := chat.ParseRoomKey(req.Room)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if err := s.conv.Open(ctx, key); err != nil {
		return nil, toStatus("open room", err)
	}
	return currentFeed(s.conv, s.self)
}

func (s *RoomService) CloseRoom(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.conv.Close()
	return &emptypb.Empty{}, nil
}

func (s *RoomService) StartPrivate(ctx context.Context, req *StartPrivateRequest) (*RoomResponse, error) {
	var (
		key chat.RoomKey
		err error
	)
	switch {
	case req.AI:
		key, err = s.conv.StartAI(ctx)
	case req.UserID > 0:
		key, err = s.conv.StartPrivate(ctx, req.UserID)
	default:
		return nil, invalid("user id or ai is required")
	}
	if err != nil {
		return nil, toStatus("start private chat", err)
	}
	return &RoomResponse{Room: key.String()}, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*RoomResponse, error) {
	flow := chat.NewCreateFlow()
	if err := flow.SelectPopup(chat.PopupShare{PopupID: req.PopupID}); err != nil {
		return nil, invalid("%v", err)
	}
	if err := flow.EnterDetails(req.Name, req.MaxParticipants); err != nil {
		return nil, invalid("%v", err)
	}
	key, err := s.conv.CreateGroup(ctx, flow)
	if err != nil {
		return nil, toStatus("create room", err)
	}
	return &RoomResponse{Room: key.String()}, nil
}

func (s *RoomService) JoinRoom(ctx context.Context, req *RoomRequest) (*RoomResponse, error) {
	key, err := chat.ParseRoomKey(req.Room)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if key.Type != chat.Group {
		return nil, invalid("only group rooms can be joined")
	}
	if key, err = s.conv.JoinGroup(ctx, key.ID); err != nil {
		return nil, toStatus("join room", err)
	}
	return &RoomResponse{Room: key.String()}, nil
}

func (s *RoomService) LeaveRoom(ctx context.Context, req *RoomRequest) (*emptypb.Empty, error) {
	key, err := chat.ParseRoomKey(req.Room)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if err := s.conv.Leave(ctx, key); err != nil {
		return nil, toStatus("leave room", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *RoomService) HideRoom(ctx context.Context, req *HideRoomRequest) (*emptypb.Empty, error) {
	key, err := chat.ParseRoomKey(req.Room)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if err := s.conv.SetHidden(ctx, key, req.Hidden); err != nil {
		return nil, toStatus("hide room", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *RoomService) ListPopups(ctx context.Context, req *ListPopupsRequest) (*ListPopupsResponse, error) {
	popups, err := s.dir.Popups(ctx, req.Keyword)
	if err != nil {
		return nil, toStatus("list popups", err)
	}
	resp := &ListPopupsResponse{Popups: make([]Popup, len(popups))}
	for i, p := range popups {
		resp.Popups[i] = popupToAPI(p)
	}
	return resp, nil
}

func (s *RoomService) GetPopup(ctx context.Context, req *PopupRequest) (*Popup, error) {
	if req.ID <= 0 {
		return nil, invalid("popup id must be positive")
	}
	p, err := s.dir.Popup(ctx, req.ID)
	if err != nil {
		return nil, toStatus("get popup", err)
	}
	out := popupToAPI(p)
	return &out, nil
}

func (s *RoomService) GetProfile(ctx context.Context, req *ProfileRequest) (*Profile, error) {
	p, err := s.dir.MiniProfile(ctx, req.UserID)
	if err != nil {
		return nil, toStatus("get profile", err)
	}
	return &Profile{UserID: p.UserID, Nickname: p.Nickname, ImageURL: p.ProfileImageURL, Introduction: p.Introduction}, nil
}

func (s *RoomService) ListGroupRooms(ctx context.Context, req *ListGroupRoomsRequest) (*ListGroupRoomsResponse, error) {
	if req.PopupID < 0 {
		return nil, invalid("popup id must not be negative")
	}
	rooms, err := s.dir.GroupRooms(ctx, req.PopupID)
	if err != nil {
		return nil, toStatus("list group rooms", err)
	}
	resp := &ListGroupRoomsResponse{Rooms: make([]GroupRoom, len(rooms))}
	for i, g := range rooms {
		resp.Rooms[i] = groupRoomToAPI(g, s.self)
	}
	return resp, nil
}

func (s *RoomService) GetGroupRoom(ctx context.Context, req *RoomRequest) (*GroupRoom, error) {
	key, err := groupKey(req.Room)
	if err != nil {
		return nil, err
	}
	g, err := s.dir.GroupRoom(ctx, key.ID)
	if err != nil {
		return nil, toStatus("get group room", err)
	}
	out := groupRoomToAPI(g, s.self)
	return &out, nil
}

func (s *RoomService) ListParticipants(ctx context.Context, req *RoomRequest) (*ListParticipantsResponse, error) {
	key, err := groupKey(req.Room)
	if err != nil {
		return nil, err
	}
	ps, err := s.dir.Participants(ctx, key.ID)
	if err != nil {
		return nil, toStatus("list participants", err)
	}
	resp := &ListParticipantsResponse{Participants: make([]Participant, len(ps))}
	for i, p := range ps {
		resp.Participants[i] = Participant{
			UserID:            p.UserID,
			Nickname:          p.Nickname,
			LastReadMessageID: p.LastReadMessageID,
			Self:              p.UserID == s.self,
		}
	}
	return resp, nil
}

// UpdateGroupRoom renames a room or changes its limit, then refreshes the
// room list so the new name shows up.
func (s *RoomService) UpdateGroupRoom(ctx context.Context, req *UpdateGroupRoomRequest) (*GroupRoom, error) {
	key, err := groupKey(req.Room)
	if err != nil {
		return nil, err
	}
	if req.Name == nil && req.MaxParticipants == nil {
		return nil, invalid("nothing to update")
	}
	var upd backend.UpdateGroupRoomRequest
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := chat.ValidateRoomName(name); err != nil {
			return nil, invalid("%v", err)
		}
		upd.RoomName = &name
	}
	if req.MaxParticipants != nil {
		if err := chat.ValidateRoomLimit(*req.MaxParticipants); err != nil {
			return nil, invalid("%v", err)
		}
		upd.MaxParticipants = req.MaxParticipants
	}
	g, err := s.dir.UpdateGroupRoom(ctx, key.ID, upd)
	if err != nil {
		return nil, toStatus("update group room", err)
	}
	if upd.RoomName != nil {
		// The update itself succeeded; a stale list is fixed by the next refresh.
		_, _ = s.conv.RefreshRooms(ctx)
	}
	out := groupRoomToAPI(g, s.self)
	return &out, nil
}

func groupKey(room string) (chat.RoomKey, error) {
	key, err := chat.ParseRoomKey(room)
	if err != nil {
		return chat.RoomKey{}, invalid("%v", err)
	}
	if key.Type != chat.Group {
		return chat.RoomKey{}, invalid("%s is not a group room", key)
	}
	return key, nil
}

// currentFeed snapshots the open room.
func currentFeed(conv *conversation.Controller, self int64) (*FeedResponse, error) {
	key, ok := conv.Active()
	if !ok {
		return nil, toStatus("feed", conversation.ErrNoRoom)
	}
	msgs, err := conv.Feed()
	if err != nil {
		return nil, toStatus("feed", err)
	}
	room, found := conv.Room(key)
	if !found {
		room = chat.Room{Key: key}
	}
	rs, hasState := conv.ReadState()
	return feedToAPI(room, msgs, rs, hasState, conv.Typists(), self), nil
}
