// Package events implements the in-memory live event broadcaster.
//
// Delivery is best-effort and at-most-once: there is no persistence, no
// replay and no acknowledgement. Each subscription is an unbounded FIFO
// queue, so payloads reach a single subscriber in publish order.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmynk/famsplit/internal/metrics"
)

var (
	// ErrClosed is returned once the registry or subscription is torn down.
	ErrClosed = errors.New("events: closed")

	// ErrTooManySubscribers is returned when the subscriber cap is reached.
	ErrTooManySubscribers = errors.New("events: too many subscribers")
)

// Registry is the process-wide set of live subscribers. Construct one at
// server start with NewRegistry and tear it down with Close.
type Registry struct {
	mu     sync.Mutex
	subs   []*Subscription // registry order
	max    int
	closed bool
	now    func() time.Time
}

// NewRegistry creates a registry. maxSubscribers <= 0 means unlimited.
func NewRegistry(maxSubscribers int) *Registry {
	return &Registry{max: maxSubscribers, now: time.Now}
}

// Subscribe registers and returns a fresh subscription.
func (r *Registry) Subscribe() (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.max > 0 && len(r.subs) >= r.max {
		return nil, ErrTooManySubscribers
	}

	sub := &Subscription{
		ready:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		lastActive: r.now(),
		now:        r.now,
	}
	r.subs = append(r.subs, sub)
	metrics.Subscribers.Set(float64(len(r.subs)))
	return sub, nil
}

// Unsubscribe removes sub from the registry and tears it down.
// Removing an absent subscription is a no-op.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	metrics.Subscribers.Set(float64(len(r.subs)))
	r.mu.Unlock()

	sub.close()
}

// Publish pushes payload to every subscription registered when the call
// began, in registry order, and returns how many were reached.
func (r *Registry) Publish(payload string) int {
	r.mu.Lock()
	targets := make([]*Subscription, len(r.subs))
	copy(targets, r.subs)
	r.mu.Unlock()

	delivered := 0
	for _, sub := range targets {
		if sub.push(payload) {
			delivered++
		}
	}
	metrics.EventsPublished.Inc()
	return delivered
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// ExpireIdle unsubscribes every subscription whose consumer is not blocked
// in Next and has not been active within maxIdle. It returns how many were
// removed.
func (r *Registry) ExpireIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Subscription
	kept := r.subs[:0]
	for _, sub := range r.subs {
		if sub.idleBefore(cutoff) {
			stale = append(stale, sub)
			continue
		}
		kept = append(kept, sub)
	}
	for i := len(kept); i < len(r.subs); i++ {
		r.subs[i] = nil
	}
	r.subs = kept
	metrics.Subscribers.Set(float64(len(r.subs)))
	r.mu.Unlock()

	for _, sub := range stale {
		sub.close()
	}
	metrics.SubscribersExpired.Add(float64(len(stale)))
	return len(stale)
}

// Close tears down every subscription and rejects new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.closed = true
	metrics.Subscribers.Set(0)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Stream subscribes, hands every payload to fn and always unsubscribes on
// return. It returns when ctx is cancelled, the subscription is torn down,
// or fn returns an error.
func (r *Registry) Stream(ctx context.Context, fn func(payload string) error) error {
	sub, err := r.Subscribe()
	if err != nil {
		return err
	}
	defer r.Unsubscribe(sub)

	for {
		payload, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}

// Publisher is the publish side of a Registry, for components that only
// emit events.
type Publisher interface {
	Publish(payload string) int
}

var _ Publisher = (*Registry)(nil)
