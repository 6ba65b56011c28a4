package api

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/conversation"
	"github.com/popspot/popchat/internal/status"
	"github.com/popspot/popchat/internal/store"
)

// SessionService implements the SessionService gRPC service.
type SessionService struct {
	profile   string
	self      conversation.Identity
	startedAt time.Time
	machine   *status.Machine
	bus       *bus.Bus
	conv      *conversation.Controller
	db        *store.DB
}

// NewSessionService creates a new session service. conv and db may be nil.
func NewSessionService(profile string, self conversation.Identity, machine *status.Machine, b *bus.Bus, conv *conversation.Controller, db *store.DB) *SessionService {
	return &SessionService{
		profile:   profile,
		self:      self,
		startedAt: time.Now(),
		machine:   machine,
		bus:       b,
		conv:      conv,
		db:        db,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *emptypb.Empty) (*StatusResponse, error) {
	resp := &StatusResponse{
		Profile:    s.profile,
		UserID:     s.self.UserID,
		Nickname:   s.self.Nickname,
		PushState:  string(s.machine.Current()),
		Reconnects: s.machine.Reconnects(),
		UptimeMs:   time.Since(s.startedAt).Milliseconds(),
	}
	if s.bus != nil {
		resp.DroppedEvents = s.bus.Dropped()
	}
	if s.conv != nil {
		if key, ok := s.conv.Active(); ok {
			resp.ActiveRoom = key.String()
		}
		resp.RoomCount = len(s.conv.Rooms())
	}
	if s.db != nil {
		for _, st := range []store.UploadStatus{store.UploadQueued, store.UploadUploading, store.UploadFailed} {
			if ups, err := s.db.UploadsByStatus(st); err == nil {
				resp.PendingUploads += len(ups)
			}
		}
	}
	return resp, nil
}
