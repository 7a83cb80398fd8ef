package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/middleware"
)

// serveEvents streams live events as Server-Sent Events. Each payload is
// written as one "data:" frame; comment frames keep idle connections
// open. The subscription is released when the client disconnects or the
// registry shuts down.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.SessionToken(r.Header)
	if err == nil && token == "" {
		err = auth.ErrMissingToken
	}
	if err == nil {
		_, err = s.jwtManager.Validate(token)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.registry.Subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.registry.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		payload, err := s.nextOrHeartbeat(ctx, sub)
		if err != nil {
			return
		}
		if payload == "" {
			_, err = fmt.Fprint(w, ": keepalive\n\n")
		} else {
			_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		if err != nil {
			return
		}
		flusher.Flush()
	}
}

// nextOrHeartbeat waits for the next payload for at most one heartbeat
// interval. It returns "" with a nil error when the interval elapses.
func (s *Server) nextOrHeartbeat(ctx context.Context, sub *events.Subscription) (string, error) {
	interval := s.cfg.Events.Heartbeat
	if interval <= 0 {
		return sub.Next(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	payload, err := sub.Next(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", nil
	}
	return payload, err
}
