package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
)

// Daemon is the part of the daemon client the TUI drives.
type Daemon interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	ListRooms(ctx context.Context, refresh, withHidden bool) ([]api.Room, error)
	OpenRoom(ctx context.Context, room string) (*api.FeedResponse, error)
	CloseRoom(ctx context.Context) error
	Feed(ctx context.Context) (*api.FeedResponse, error)
	StartPrivate(ctx context.Context, userID int64) (string, error)
	StartAI(ctx context.Context) (string, error)
	CreateRoom(ctx context.Context, req api.CreateRoomRequest) (string, error)
	JoinRoom(ctx context.Context, room string) (string, error)
	LeaveRoom(ctx context.Context, room string) error
	HideRoom(ctx context.Context, room string, hidden bool) error
	ListPopups(ctx context.Context, keyword string) ([]api.Popup, error)
	GetPopup(ctx context.Context, id int64) (*api.Popup, error)
	GetProfile(ctx context.Context, userID int64) (*api.Profile, error)
	SendText(ctx context.Context, text string) (string, error)
	SharePopup(ctx context.Context, popupID int64) (string, error)
	SendImage(ctx context.Context, path string) (string, error)
	RetryUpload(ctx context.Context, key string) error
	CancelUpload(ctx context.Context, key string) error
	SetTyping(ctx context.Context, typing bool) error
	GetGroupRoom(ctx context.Context, room string) (*api.GroupRoom, error)
	ListParticipants(ctx context.Context, room string) ([]api.Participant, error)
	UpdateGroupRoom(ctx context.Context, req api.UpdateGroupRoomRequest) (*api.GroupRoom, error)
	Report(ctx context.Context, req api.ReportRequest) error
}

// Refresh names the parts of the view an event invalidates.
type Refresh uint8

const (
	RefreshRooms Refresh = 1 << iota
	RefreshFeed
	RefreshStatus
)

// Affects maps a daemon event kind to the views it invalidates.
func Affects(kind string) Refresh {
	switch {
	case kind == bus.KindPushStatus:
		return RefreshStatus
	case strings.HasPrefix(kind, "room."):
		return RefreshRooms
	case strings.HasPrefix(kind, "feed."), strings.HasPrefix(kind, "typing."), strings.HasPrefix(kind, "read."):
		return RefreshFeed
	case strings.HasPrefix(kind, "upload."):
		return RefreshFeed | RefreshStatus
	}
	return 0
}

// ErrNoRoom is returned by room actions when no room is open.
var ErrNoRoom = errors.New("no room is open")

// ViewModel caches daemon state for the views. Methods that talk to the
// daemon block and must not run on the UI goroutine.
type ViewModel struct {
	mu sync.RWMutex

	client     Daemon
	status     *api.StatusResponse
	rooms      []api.Room
	feed       *api.FeedResponse
	popups     []api.Popup
	withHidden bool
	typing     bool

	create *chat.CreateFlow
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c Daemon) *ViewModel {
	return &ViewModel{
		client: c,
		create: chat.NewCreateFlow(),
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadRooms fetches the room list, re-fetching it from the backend when
// refresh is set.
func (vm *ViewModel) LoadRooms(ctx context.Context, refresh bool) error {
	vm.mu.RLock()
	withHidden := vm.withHidden
	vm.mu.RUnlock()

	rooms, err := vm.client.ListRooms(ctx, refresh, withHidden)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.rooms = rooms
	vm.mu.Unlock()
	return nil
}

// ToggleHidden switches between the visible and the full room list.
func (vm *ViewModel) ToggleHidden() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.withHidden = !vm.withHidden
	return vm.withHidden
}

// Open opens a room and caches its feed.
func (vm *ViewModel) Open(ctx context.Context, room string) error {
	feed, err := vm.client.OpenRoom(ctx, room)
	if feed != nil {
		vm.setFeed(feed)
	}
	return err
}

// Close closes the open room.
func (vm *ViewModel) Close(ctx context.Context) error {
	vm.stopTyping(ctx)
	vm.setFeed(nil)
	return vm.client.CloseRoom(ctx)
}

// LoadFeed refetches the open room's feed.
func (vm *ViewModel) LoadFeed(ctx context.Context) error {
	if vm.ActiveRoom() == "" {
		return nil
	}
	return vm.fetchFeed(ctx)
}

// fetchFeed loads the feed of whichever room the daemon has open.
func (vm *ViewModel) fetchFeed(ctx context.Context) error {
	feed, err := vm.client.Feed(ctx)
	if err != nil {
		return err
	}
	vm.setFeed(feed)
	return nil
}

func (vm *ViewModel) setFeed(feed *api.FeedResponse) {
	vm.mu.Lock()
	vm.feed = feed
	if feed == nil {
		vm.typing = false
	}
	vm.mu.Unlock()
}

// ActiveRoom returns the key of the open room, or "".
func (vm *ViewModel) ActiveRoom() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.feed == nil {
		return ""
	}
	return vm.feed.Room
}

// Send sends text to the open room. The daemon ends the typing indicator.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	if vm.ActiveRoom() == "" {
		return ErrNoRoom
	}
	vm.mu.Lock()
	vm.typing = false
	vm.mu.Unlock()
	_, err := vm.client.SendText(ctx, text)
	return err
}

// SharePopup sends a popup card to the open room.
func (vm *ViewModel) SharePopup(ctx context.Context, popupID int64) error {
	if vm.ActiveRoom() == "" {
		return ErrNoRoom
	}
	_, err := vm.client.SharePopup(ctx, popupID)
	return err
}

// SendImage queues an image upload to the open room.
func (vm *ViewModel) SendImage(ctx context.Context, path string) error {
	if vm.ActiveRoom() == "" {
		return ErrNoRoom
	}
	_, err := vm.client.SendImage(ctx, path)
	return err
}

// ComposerChanged reports composer edits; the typing indicator is sent on
// transitions between an empty and a non-empty draft only.
func (vm *ViewModel) ComposerChanged(ctx context.Context, text string) error {
	want := strings.TrimSpace(text) != ""
	vm.mu.Lock()
	if vm.feed == nil || vm.typing == want {
		vm.mu.Unlock()
		return nil
	}
	vm.typing = want
	vm.mu.Unlock()
	return vm.client.SetTyping(ctx, want)
}

func (vm *ViewModel) stopTyping(ctx context.Context) {
	vm.mu.Lock()
	was := vm.typing
	vm.typing = false
	vm.mu.Unlock()
	if was {
		_ = vm.client.SetTyping(ctx, false)
	}
}

// LastFailedUpload returns the key of the newest failed upload in the feed.
func (vm *ViewModel) LastFailedUpload() (string, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.feed == nil {
		return "", false
	}
	for i := len(vm.feed.Messages) - 1; i >= 0; i-- {
		m := vm.feed.Messages[i]
		if m.Upload == chat.UploadFailed.String() {
			return m.ClientMessageKey, true
		}
	}
	return "", false
}

// RetryUpload retries key, or the newest failed upload when key is empty.
func (vm *ViewModel) RetryUpload(ctx context.Context, key string) error {
	key, err := vm.uploadKey(key)
	if err != nil {
		return err
	}
	return vm.client.RetryUpload(ctx, key)
}

// CancelUpload cancels key, or the newest failed upload when key is empty.
func (vm *ViewModel) CancelUpload(ctx context.Context, key string) error {
	key, err := vm.uploadKey(key)
	if err != nil {
		return err
	}
	return vm.client.CancelUpload(ctx, key)
}

func (vm *ViewModel) uploadKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	if k, ok := vm.LastFailedUpload(); ok {
		return k, nil
	}
	return "", errors.New("no failed upload")
}

// StartPrivate opens a private room with userID, or with the assistant when
// userID is zero.
func (vm *ViewModel) StartPrivate(ctx context.Context, userID int64) (string, error) {
	var (
		key string
		err error
	)
	if userID == 0 {
		key, err = vm.client.StartAI(ctx)
	} else {
		key, err = vm.client.StartPrivate(ctx, userID)
	}
	if err != nil {
		return "", err
	}
	return key, vm.fetchFeed(ctx)
}

// Join joins a group room and opens it.
func (vm *ViewModel) Join(ctx context.Context, room string) (string, error) {
	key, err := vm.client.JoinRoom(ctx, room)
	if err != nil {
		return "", err
	}
	return key, vm.fetchFeed(ctx)
}

// Leave leaves room, or the open room when room is empty.
func (vm *ViewModel) Leave(ctx context.Context, room string) error {
	if room == "" {
		room = vm.ActiveRoom()
	}
	if room == "" {
		return ErrNoRoom
	}
	if err := vm.client.LeaveRoom(ctx, room); err != nil {
		return err
	}
	if room == vm.ActiveRoom() {
		vm.setFeed(nil)
	}
	return nil
}

// Hide hides or unhides a room.
func (vm *ViewModel) Hide(ctx context.Context, room string, hidden bool) error {
	if room == "" {
		return errors.New("no room selected")
	}
	return vm.client.HideRoom(ctx, room, hidden)
}

// GroupDetails fetches a group room and its members. Other rooms have no
// group details and return nil without asking the daemon.
func (vm *ViewModel) GroupDetails(ctx context.Context, room string) (*api.GroupRoom, []api.Participant, error) {
	if !strings.HasPrefix(room, string(chat.Group)+"/") {
		return nil, nil, nil
	}
	g, err := vm.client.GetGroupRoom(ctx, room)
	if err != nil {
		return nil, nil, err
	}
	ps, err := vm.client.ListParticipants(ctx, room)
	if err != nil {
		return nil, nil, err
	}
	return g, ps, nil
}

// UpdateGroup renames room or changes its limit; nil fields are kept. An
// empty room means the open one.
func (vm *ViewModel) UpdateGroup(ctx context.Context, room string, name *string, limit *int) error {
	if room == "" {
		room = vm.ActiveRoom()
	}
	if room == "" {
		return ErrNoRoom
	}
	_, err := vm.client.UpdateGroupRoom(ctx, api.UpdateGroupRoomRequest{Room: room, Name: name, MaxParticipants: limit})
	return err
}

// Report reports the open room to the moderators.
func (vm *ViewModel) Report(ctx context.Context, reason string) error {
	room := vm.ActiveRoom()
	if room == "" {
		return ErrNoRoom
	}
	return vm.client.Report(ctx, api.ReportRequest{Room: room, Reason: reason})
}

// SearchPopups lists popups matching keyword.
func (vm *ViewModel) SearchPopups(ctx context.Context, keyword string) ([]api.Popup, error) {
	popups, err := vm.client.ListPopups(ctx, keyword)
	if err != nil {
		return nil, err
	}
	vm.mu.Lock()
	vm.popups = popups
	vm.mu.Unlock()
	return popups, nil
}

// Popup fetches one popup.
func (vm *ViewModel) Popup(ctx context.Context, id int64) (*api.Popup, error) {
	return vm.client.GetPopup(ctx, id)
}

// Profile fetches a user's mini profile.
func (vm *ViewModel) Profile(ctx context.Context, userID int64) (*api.Profile, error) {
	return vm.client.GetProfile(ctx, userID)
}

// BeginCreate starts a new create-room flow.
func (vm *ViewModel) BeginCreate() {
	vm.create.Reset()
}

// CreateStep returns the step of the create-room flow.
func (vm *ViewModel) CreateStep() chat.FlowStep {
	return vm.create.Step()
}

// SelectPopup picks the popup the new room is about.
func (vm *ViewModel) SelectPopup(p api.Popup) error {
	return vm.create.SelectPopup(chat.PopupShare{PopupID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Address: p.Address})
}

// SubmitCreate validates the room details and creates the room. On failure
// the flow stays on the details so the user can fix them and retry.
func (vm *ViewModel) SubmitCreate(ctx context.Context, name string, limit int) (string, error) {
	if err := vm.create.EnterDetails(name, limit); err != nil {
		return "", err
	}
	req, err := vm.create.Submit()
	if err != nil {
		return "", err
	}
	key, err := vm.client.CreateRoom(ctx, api.CreateRoomRequest{
		PopupID:         req.PopupID,
		Name:            req.RoomName,
		MaxParticipants: req.MaxParticipants,
	})
	var room chat.RoomKey
	if err == nil {
		room, err = chat.ParseRoomKey(key)
	}
	if cErr := vm.create.Complete(room, err); cErr != nil {
		return "", cErr
	}
	if err != nil {
		return "", err
	}
	return key, vm.fetchFeed(ctx)
}

// Rooms returns a snapshot of the room list.
func (vm *ViewModel) Rooms() []api.Room {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.rooms
}

// Room returns the cached room list entry for key.
func (vm *ViewModel) Room(key string) (api.Room, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, r := range vm.rooms {
		if r.Key == key {
			return r, true
		}
	}
	return api.Room{}, false
}

// Feed returns the open room's feed, or nil.
func (vm *ViewModel) Feed() *api.FeedResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.feed
}

// Popups returns the last popup search results.
func (vm *ViewModel) Popups() []api.Popup {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.popups
}

// Status returns the last daemon status.
func (vm *ViewModel) Status() *api.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Uptime returns the daemon uptime from the last status.
func (vm *ViewModel) Uptime() time.Duration {
	st := vm.Status()
	if st == nil {
		return 0
	}
	return time.Duration(st.UptimeMs) * time.Millisecond
}
