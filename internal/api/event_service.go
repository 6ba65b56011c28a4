package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/popspot/popchat/internal/bus"
)

const eventBuffer = 256

// EventService implements the EventService gRPC service.
type EventService struct {
	bus     *bus.Bus
	profile string
	logger  *zap.Logger
}

// NewEventService creates an event service.
func NewEventService(b *bus.Bus, profile string, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{bus: b, profile: profile, logger: logger}
}

// WatchEvents streams bus events whose kind starts with one of the requested
// namespaces until the client goes away.
func (s *EventService) WatchEvents(req *WatchEventsRequest, stream EventStream) error {
	ch, unsub := s.bus.Subscribe("", eventBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			if !matches(req.Namespaces, evt.Kind) {
				continue
			}
			env, err := s.envelope(evt)
			if err != nil {
				s.logger.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func matches(namespaces []string, kind string) bool {
	if len(namespaces) == 0 {
		return true
	}
	for _, ns := range namespaces {
		if strings.HasPrefix(kind, ns) {
			return true
		}
	}
	return false
}

// envelope wraps an event as {id, profile, kind, occurredAtUnixMs, payload}.
func (s *EventService) envelope(evt bus.Event) (*structpb.Struct, error) {
	payload, err := payloadValue(evt.Payload)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":               structpb.NewStringValue(uuid.NewString()),
		"profile":          structpb.NewStringValue(s.profile),
		"kind":             structpb.NewStringValue(evt.Kind),
		"occurredAtUnixMs": structpb.NewNumberValue(float64(evt.Timestamp.UnixMilli())),
		"payload":          payload,
	}}, nil
}

// payloadValue converts an arbitrary payload through its JSON form.
func payloadValue(p any) (*structpb.Value, error) {
	if p == nil {
		return structpb.NewNullValue(), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return structpb.NewValue(v)
}

// Event is a decoded WatchEvents envelope.
type Event struct {
	ID         string
	Profile    string
	Kind       string
	OccurredAt int64
	Payload    any
}

// DecodeEvent reads an envelope produced by WatchEvents.
func DecodeEvent(s *structpb.Struct) Event {
	f := s.GetFields()
	evt := Event{
		ID:         f["id"].GetStringValue(),
		Profile:    f["profile"].GetStringValue(),
		Kind:       f["kind"].GetStringValue(),
		OccurredAt: int64(f["occurredAtUnixMs"].GetNumberValue()),
	}
	if p, ok := f["payload"]; ok {
		evt.Payload = p.AsInterface()
	}
	return evt
}
