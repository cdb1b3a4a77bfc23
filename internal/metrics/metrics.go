package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teamchat"

// Metrics counts what the realtime coordinator does.
type Metrics struct {
	EventsDispatched        *prometheus.CounterVec
	NotificationsRaised     *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	Reconnects              prometheus.Counter
	MessagesSent            *prometheus.CounterVec
	SendFailures            prometheus.Counter
	ConnectionUp            prometheus.Gauge
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Inbound push events processed, by kind.",
		}, []string{"kind"}),
		NotificationsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_raised_total",
			Help:      "User-visible notifications raised, by kind.",
		}, []string{"kind"}),
		NotificationsSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Events not surfaced, by suppression reason.",
		}, []string{"reason"}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Successful reconnects of the push connection.",
		}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outgoing messages accepted by the REST API, by kind.",
		}, []string{"kind"}),
		SendFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outgoing messages rejected or failed to upload.",
		}),
		ConnectionUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_up",
			Help:      "1 while the push connection is established.",
		}),
	}
}

// NewUnregistered builds metrics on a throwaway registry. Useful in tests.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
