package model

import (
	"context"
	"errors"
	"testing"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
)

type fakeDaemon struct {
	open      string
	feed      *api.FeedResponse
	typing    []bool
	sent      []string
	retried   []string
	cancelled []string
	created   []api.CreateRoomRequest
	createErr error
	left      []string
	updates   []api.UpdateGroupRoomRequest
	reports   []api.ReportRequest
	lookups   int
}

func (f *fakeDaemon) Status(context.Context) (*api.StatusResponse, error) {
	return &api.StatusResponse{Profile: "main", PushState: "CONNECTED", UptimeMs: 90000}, nil
}

func (f *fakeDaemon) ListRooms(_ context.Context, _, withHidden bool) ([]api.Room, error) {
	rooms := []api.Room{{Key: "GROUP/1", Name: "pop"}}
	if withHidden {
		rooms = append(rooms, api.Room{Key: "GROUP/2", Hidden: true})
	}
	return rooms, nil
}

func (f *fakeDaemon) OpenRoom(_ context.Context, room string) (*api.FeedResponse, error) {
	f.open = room
	return f.Feed(context.Background())
}

func (f *fakeDaemon) CloseRoom(context.Context) error {
	f.open = ""
	return nil
}

func (f *fakeDaemon) Feed(context.Context) (*api.FeedResponse, error) {
	if f.open == "" {
		return nil, errors.New("no room is open")
	}
	if f.feed != nil {
		feed := *f.feed
		feed.Room = f.open
		return &feed, nil
	}
	return &api.FeedResponse{Room: f.open, Divider: -1}, nil
}

func (f *fakeDaemon) StartPrivate(_ context.Context, userID int64) (string, error) {
	f.open = "PRIVATE/50"
	return f.open, nil
}

func (f *fakeDaemon) StartAI(context.Context) (string, error) {
	f.open = "PRIVATE/99"
	return f.open, nil
}

func (f *fakeDaemon) CreateRoom(_ context.Context, req api.CreateRoomRequest) (string, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	f.open = "GROUP/77"
	return f.open, nil
}

func (f *fakeDaemon) JoinRoom(_ context.Context, room string) (string, error) {
	f.open = room
	return room, nil
}

func (f *fakeDaemon) LeaveRoom(_ context.Context, room string) error {
	f.left = append(f.left, room)
	if room == f.open {
		f.open = ""
	}
	return nil
}

func (f *fakeDaemon) HideRoom(context.Context, string, bool) error { return nil }

func (f *fakeDaemon) ListPopups(context.Context, string) ([]api.Popup, error) {
	return []api.Popup{{ID: 5, Name: "Pop"}}, nil
}

func (f *fakeDaemon) GetPopup(_ context.Context, id int64) (*api.Popup, error) {
	return &api.Popup{ID: id, Name: "Pop"}, nil
}

func (f *fakeDaemon) GetProfile(_ context.Context, userID int64) (*api.Profile, error) {
	return &api.Profile{UserID: userID, Nickname: "mina"}, nil
}

func (f *fakeDaemon) SendText(_ context.Context, text string) (string, error) {
	f.sent = append(f.sent, text)
	return "k1", nil
}

func (f *fakeDaemon) SharePopup(context.Context, int64) (string, error) { return "k2", nil }

func (f *fakeDaemon) SendImage(context.Context, string) (string, error) { return "k3", nil }

func (f *fakeDaemon) RetryUpload(_ context.Context, key string) error {
	f.retried = append(f.retried, key)
	return nil
}

func (f *fakeDaemon) CancelUpload(_ context.Context, key string) error {
	f.cancelled = append(f.cancelled, key)
	return nil
}

func (f *fakeDaemon) SetTyping(_ context.Context, typing bool) error {
	f.typing = append(f.typing, typing)
	return nil
}

func (f *fakeDaemon) GetGroupRoom(_ context.Context, room string) (*api.GroupRoom, error) {
	f.lookups++
	return &api.GroupRoom{Room: room, Name: "pop", MaxParticipants: 8, CurrentParticipants: 2}, nil
}

func (f *fakeDaemon) ListParticipants(context.Context, string) ([]api.Participant, error) {
	return []api.Participant{{UserID: 1, Nickname: "me", Self: true}, {UserID: 2, Nickname: "mina"}}, nil
}

func (f *fakeDaemon) UpdateGroupRoom(_ context.Context, req api.UpdateGroupRoomRequest) (*api.GroupRoom, error) {
	f.updates = append(f.updates, req)
	return &api.GroupRoom{Room: req.Room}, nil
}

func (f *fakeDaemon) Report(_ context.Context, req api.ReportRequest) error {
	f.reports = append(f.reports, req)
	return nil
}

func TestAffects(t *testing.T) {
	tests := []struct {
		kind string
		want Refresh
	}{
		{bus.KindPushStatus, RefreshStatus},
		{bus.KindRoomsReplaced, RefreshRooms},
		{bus.KindRoomUpdated, RefreshRooms},
		{bus.KindFeedUpdated, RefreshFeed},
		{bus.KindTypingChanged, RefreshFeed},
		{bus.KindReadChanged, RefreshFeed},
		{bus.KindUploadFailed, RefreshFeed | RefreshStatus},
		{"something.else", 0},
	}
	for _, tt := range tests {
		if got := Affects(tt.kind); got != tt.want {
			t.Errorf("Affects(%q) = %b, want %b", tt.kind, got, tt.want)
		}
	}
}

func TestTypingSentOnTransitionsOnly(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	ctx := context.Background()

	if err := vm.ComposerChanged(ctx, "h"); err != nil {
		t.Fatal(err)
	}
	if len(d.typing) != 0 {
		t.Fatalf("typing sent with no room open: %v", d.typing)
	}

	if err := vm.Open(ctx, "GROUP/1"); err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"h", "he", "hey", "", "  "} {
		if err := vm.ComposerChanged(ctx, text); err != nil {
			t.Fatal(err)
		}
	}
	if len(d.typing) != 2 || !d.typing[0] || d.typing[1] {
		t.Errorf("typing calls = %v, want [true false]", d.typing)
	}

	_ = vm.ComposerChanged(ctx, "again")
	if err := vm.Send(ctx, "again"); err != nil {
		t.Fatal(err)
	}
	_ = vm.ComposerChanged(ctx, "next")
	if n := len(d.typing); n != 4 || !d.typing[3] {
		t.Errorf("typing after send = %v, want a fresh start", d.typing)
	}

	if err := vm.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if d.typing[len(d.typing)-1] {
		t.Errorf("close left typing on: %v", d.typing)
	}
	if vm.ActiveRoom() != "" {
		t.Errorf("active = %q after close", vm.ActiveRoom())
	}
}

func TestSendWithoutRoom(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	if err := vm.Send(context.Background(), "hi"); !errors.Is(err, ErrNoRoom) {
		t.Errorf("err = %v, want ErrNoRoom", err)
	}
	if err := vm.Leave(context.Background(), ""); !errors.Is(err, ErrNoRoom) {
		t.Errorf("leave err = %v, want ErrNoRoom", err)
	}
}

func TestRetryPicksNewestFailedUpload(t *testing.T) {
	d := &fakeDaemon{feed: &api.FeedResponse{Messages: []api.Message{
		{ClientMessageKey: "old", Upload: chat.UploadFailed.String()},
		{ClientMessageKey: "mid", Upload: chat.UploadPending.String()},
		{ClientMessageKey: "new", Upload: chat.UploadFailed.String()},
		{ID: "9", Persisted: true},
	}}}
	vm := NewViewModel(d)
	ctx := context.Background()

	if err := vm.RetryUpload(ctx, ""); err == nil {
		t.Error("retry with no feed should fail")
	}
	if err := vm.Open(ctx, "GROUP/1"); err != nil {
		t.Fatal(err)
	}
	if err := vm.RetryUpload(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := vm.CancelUpload(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	if len(d.retried) != 1 || d.retried[0] != "new" {
		t.Errorf("retried = %v, want [new]", d.retried)
	}
	if len(d.cancelled) != 1 || d.cancelled[0] != "old" {
		t.Errorf("cancelled = %v, want [old]", d.cancelled)
	}
}

func TestCreateFlowThroughDaemon(t *testing.T) {
	d := &fakeDaemon{createErr: errors.New("backend down")}
	vm := NewViewModel(d)
	ctx := context.Background()

	vm.BeginCreate()
	if _, err := vm.SubmitCreate(ctx, "room", 4); err == nil {
		t.Fatal("submit before choosing a popup should fail")
	}
	if err := vm.SelectPopup(api.Popup{ID: 5, Name: "Pop"}); err != nil {
		t.Fatal(err)
	}
	if _, err := vm.SubmitCreate(ctx, "", 4); err == nil {
		t.Fatal("empty name should fail validation")
	}
	if len(d.created) != 0 {
		t.Fatalf("invalid details reached the daemon: %v", d.created)
	}

	if _, err := vm.SubmitCreate(ctx, "weekend", 4); err == nil {
		t.Fatal("backend failure not returned")
	}
	if vm.CreateStep() != chat.FlowFailed {
		t.Errorf("step = %s, want FAILED", vm.CreateStep())
	}

	d.createErr = nil
	key, err := vm.SubmitCreate(ctx, "weekend", 4)
	if err != nil {
		t.Fatal(err)
	}
	if key != "GROUP/77" || vm.ActiveRoom() != "GROUP/77" {
		t.Errorf("key = %q active = %q", key, vm.ActiveRoom())
	}
	want := api.CreateRoomRequest{PopupID: 5, Name: "weekend", MaxParticipants: 4}
	if last := d.created[len(d.created)-1]; last != want {
		t.Errorf("request = %+v, want %+v", last, want)
	}
	if vm.CreateStep() != chat.FlowCreated {
		t.Errorf("step = %s, want CREATED", vm.CreateStep())
	}
}

func TestStartPrivateLoadsFeed(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	if _, err := vm.StartPrivate(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if vm.ActiveRoom() != "PRIVATE/99" {
		t.Errorf("active = %q, want the assistant room", vm.ActiveRoom())
	}
	if err := vm.Leave(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if vm.ActiveRoom() != "" || len(d.left) != 1 {
		t.Errorf("after leave active = %q left = %v", vm.ActiveRoom(), d.left)
	}
}

func TestToggleHidden(t *testing.T) {
	vm := NewViewModel(&fakeDaemon{})
	ctx := context.Background()
	_ = vm.LoadRooms(ctx, false)
	if len(vm.Rooms()) != 1 {
		t.Fatalf("rooms = %v", vm.Rooms())
	}
	if !vm.ToggleHidden() {
		t.Fatal("ToggleHidden = false")
	}
	_ = vm.LoadRooms(ctx, false)
	if r, ok := vm.Room("GROUP/2"); !ok || !r.Hidden {
		t.Errorf("hidden room missing: %+v", vm.Rooms())
	}
}

func TestGroupDetailsOnlyForGroups(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	ctx := context.Background()

	g, ps, err := vm.GroupDetails(ctx, "PRIVATE/4")
	if err != nil || g != nil || ps != nil || d.lookups != 0 {
		t.Errorf("private room: %v %v %v lookups=%d", g, ps, err, d.lookups)
	}
	g, ps, err = vm.GroupDetails(ctx, "GROUP/1")
	if err != nil {
		t.Fatal(err)
	}
	if g.Room != "GROUP/1" || len(ps) != 2 || !ps[0].Self {
		t.Errorf("group = %+v participants = %+v", g, ps)
	}
}

func TestUpdateGroupAndReportUseOpenRoom(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)
	ctx := context.Background()

	name := "late night"
	if err := vm.UpdateGroup(ctx, "", &name, nil); !errors.Is(err, ErrNoRoom) {
		t.Errorf("UpdateGroup without room error = %v, want ErrNoRoom", err)
	}
	if err := vm.Report(ctx, "spam"); !errors.Is(err, ErrNoRoom) {
		t.Errorf("Report without room error = %v, want ErrNoRoom", err)
	}

	if err := vm.Open(ctx, "GROUP/1"); err != nil {
		t.Fatal(err)
	}
	if err := vm.UpdateGroup(ctx, "", &name, nil); err != nil {
		t.Fatal(err)
	}
	if len(d.updates) != 1 || d.updates[0].Room != "GROUP/1" || *d.updates[0].Name != name || d.updates[0].MaxParticipants != nil {
		t.Errorf("updates = %+v", d.updates)
	}
	if err := vm.Report(ctx, "spam"); err != nil {
		t.Fatal(err)
	}
	if len(d.reports) != 1 || d.reports[0] != (api.ReportRequest{Room: "GROUP/1", Reason: "spam"}) {
		t.Errorf("reports = %+v", d.reports)
	}
}
