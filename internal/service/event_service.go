package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/pkg/api"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

var _ apiconnect.EventServiceHandler = (*EventService)(nil)

// EventService streams live events to authenticated clients.
type EventService struct {
	registry *events.Registry
	logger   *slog.Logger
}

// NewEventService creates an EventService backed by registry.
func NewEventService(registry *events.Registry, logger *slog.Logger) *EventService {
	return &EventService{registry: registry, logger: logger}
}

// Watch sends every published payload until the client goes away or the
// server shuts down. The subscription is always released on return.
func (s *EventService) Watch(ctx context.Context, req *connect.Request[api.WatchRequest], stream *connect.ServerStream[api.WatchResponse]) error {
	err := s.registry.Stream(ctx, func(payload string) error {
		return stream.Send(&api.WatchResponse{Payload: payload})
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, events.ErrClosed):
		return nil
	case errors.Is(err, events.ErrTooManySubscribers):
		return connect.NewError(connect.CodeResourceExhausted, err)
	default:
		s.logger.Warn("Watch stream ended", "error", err)
		return err
	}
}
