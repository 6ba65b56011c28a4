package chat

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// FlowStep is a step of the create-group-room flow.
type FlowStep string

const (
	FlowIdle           FlowStep = "IDLE"
	FlowPopupSelected  FlowStep = "POPUP_SELECTED"
	FlowDetailsEntered FlowStep = "DETAILS_ENTERED"
	FlowSubmitting     FlowStep = "SUBMITTING"
	FlowCreated        FlowStep = "CREATED"
	FlowFailed         FlowStep = "FAILED"
)

var flowTransitions = map[FlowStep][]FlowStep{
	FlowIdle:           {FlowPopupSelected},
	FlowPopupSelected:  {FlowPopupSelected, FlowDetailsEntered},
	FlowDetailsEntered: {FlowPopupSelected, FlowDetailsEntered, FlowSubmitting},
	FlowSubmitting:     {FlowCreated, FlowFailed},
	FlowFailed:         {FlowDetailsEntered, FlowSubmitting},
	FlowCreated:        {},
}

const (
	minRoomParticipants = 2
	maxRoomParticipants = 100
	maxRoomNameLen      = 50
)

// CreateRoomRequest is what the flow submits to the backend.
type CreateRoomRequest struct {
	PopupID         int64  `json:"popupId"`
	RoomName        string `json:"roomName"`
	MaxParticipants int    `json:"maxParticipants"`
}

// CreateFlow walks a user through creating a group room around a popup.
type CreateFlow struct {
	mu      sync.Mutex
	step    FlowStep
	popup   PopupShare
	name    string
	limit   int
	created RoomKey
	lastErr error
}

// NewCreateFlow returns a flow in the idle step.
func NewCreateFlow() *CreateFlow {
	return &CreateFlow{step: FlowIdle}
}

// Step returns the current step.
func (f *CreateFlow) Step() FlowStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SelectPopup chooses the popup the room is about.
func (f *CreateFlow) SelectPopup(p PopupShare) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.PopupID <= 0 {
		return fmt.Errorf("popup id must be positive")
	}
	if err := f.moveLocked(FlowPopupSelected); err != nil {
		return err
	}
	f.popup = p
	return nil
}

// EnterDetails sets the room name and participant limit.
func (f *CreateFlow) EnterDetails(name string, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.TrimSpace(name)
	if err := ValidateRoomName(name); err != nil {
		return err
	}
	if err := ValidateRoomLimit(limit); err != nil {
		return err
	}
	if err := f.moveLocked(FlowDetailsEntered); err != nil {
		return err
	}
	f.name = name
	f.limit = limit
	return nil
}

// ValidateRoomName checks a trimmed group room name.
func ValidateRoomName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("room name is required")
	case len([]rune(name)) > maxRoomNameLen:
		return fmt.Errorf("room name longer than %d characters", maxRoomNameLen)
	}
	return nil
}

// ValidateRoomLimit checks a group room participant limit.
func ValidateRoomLimit(limit int) error {
	if limit < minRoomParticipants || limit > maxRoomParticipants {
		return fmt.Errorf("participant limit must be between %d and %d", minRoomParticipants, maxRoomParticipants)
	}
	return nil
}

// Submit moves to the submitting step and returns the request to send.
func (f *CreateFlow) Submit() (CreateRoomRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.moveLocked(FlowSubmitting); err != nil {
		return CreateRoomRequest{}, err
	}
	return CreateRoomRequest{PopupID: f.popup.PopupID, RoomName: f.name, MaxParticipants: f.limit}, nil
}

// Complete records the backend outcome of a submission.
func (f *CreateFlow) Complete(room RoomKey, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if mErr := f.moveLocked(FlowFailed); mErr != nil {
			return mErr
		}
		f.lastErr = err
		return nil
	}
	if mErr := f.moveLocked(FlowCreated); mErr != nil {
		return mErr
	}
	f.created = room
	f.lastErr = nil
	return nil
}

// Created returns the room made by a successful submission.
func (f *CreateFlow) Created() (RoomKey, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.step == FlowCreated
}

// Err returns the error of the last failed submission.
func (f *CreateFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Reset returns the flow to idle from any step.
func (f *CreateFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = FlowIdle
	f.popup = PopupShare{}
	f.name = ""
	f.limit = 0
	f.created = RoomKey{}
	f.lastErr = nil
}

func (f *CreateFlow) moveLocked(to FlowStep) error {
	if !slices.Contains(flowTransitions[f.step], to) {
		return fmt.Errorf("invalid create-room step from %s to %s", f.step, to)
	}
	f.step = to
	return nil
}
