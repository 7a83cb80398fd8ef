package events

import (
	"context"
	"sync"
	"time"
)

// Subscription is one subscriber's FIFO queue.
type Subscription struct {
	mu         sync.Mutex
	queue      []string
	closed     bool
	lastActive time.Time
	waiting    int // consumers currently blocked in Next
	now        func() time.Time

	ready chan struct{} // signalled (capacity 1) when queue becomes non-empty
	done  chan struct{} // closed on teardown
}

// Next blocks until a payload is available, ctx is done, or the
// subscription is torn down. Queued payloads are drained before ErrClosed
// is reported.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		s.lastActive = s.now()
		if len(s.queue) > 0 {
			payload := s.queue[0]
			s.queue[0] = ""
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return payload, nil
		}
		if s.closed {
			s.mu.Unlock()
			return "", ErrClosed
		}
		s.waiting++
		s.mu.Unlock()

		var err error
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-s.done:
		case <-s.ready:
		}

		s.mu.Lock()
		s.waiting--
		s.lastActive = s.now()
		s.mu.Unlock()
		if err != nil {
			return "", err
		}
	}
}

// Done is closed when the subscription is torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Pending returns the number of queued payloads.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) push(payload string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, payload)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

// idleBefore reports whether no consumer is waiting and the last consumer
// activity happened before cutoff.
func (s *Subscription) idleBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting == 0 && s.lastActive.Before(cutoff)
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
