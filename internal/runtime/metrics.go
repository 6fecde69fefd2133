package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for processed messages.
const (
	OutcomeSuccess       = "success"
	OutcomeBusinessError = "business_error"
	OutcomeFault         = "fault"
	OutcomeInvalid       = "invalid"
	OutcomeUnknownTopic  = "unknown_topic"
)

// Metrics collects the bridge and dispatcher counters exposed on /metrics.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	HandlerDuration   *prometheus.HistogramVec
	RepliesMatched    prometheus.Counter
	RepliesDropped    prometheus.Counter
	WaitTimeouts      prometheus.Counter
	OutstandingWaits  prometheus.Gauge
}

// NewMetrics registers the metric set on the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chater_dispatcher_messages_total",
			Help: "Messages consumed by the worker dispatcher, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		HandlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chater_handler_duration_seconds",
			Help:    "Handler execution time by logical topic.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		RepliesMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "chater_bridge_replies_matched_total",
			Help: "Replies delivered to a registered waiter.",
		}),
		RepliesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chater_bridge_replies_dropped_total",
			Help: "Replies with no registered waiter or a mismatched owner.",
		}),
		WaitTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "chater_bridge_wait_timeouts_total",
			Help: "Bridge waits that expired before a reply arrived.",
		}),
		OutstandingWaits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chater_bridge_outstanding_waits",
			Help: "Correlation ids currently awaiting a reply.",
		}),
	}
}
