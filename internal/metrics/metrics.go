// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "famsplit"

var (
	// NotificationsTotal counts email notification attempts by result
	// ("sent", "failed", "skipped").
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Email notification attempts by result.",
	}, []string{"result"})

	// Subscribers is the number of live event subscribers.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Currently registered live event subscribers.",
	})

	// SubscribersExpired counts subscribers removed by the idle sweep.
	SubscribersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_subscribers_expired_total",
		Help:      "Subscribers removed for being idle.",
	})

	// EventsPublished counts payloads published to the broadcaster.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Live events published.",
	})
)

// Result labels for NotificationsTotal.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)
