package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	pushesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushwire",
			Subsystem: "push",
			Name:      "sent_total",
			Help:      "Push transmissions handed to the conversation.",
		},
		[]string{"conversation", "event"},
	)
	pushesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushwire",
			Subsystem: "push",
			Name:      "resolved_total",
			Help:      "Push resolutions by reply status.",
		},
		[]string{"conversation", "status"},
	)
	resolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pushwire",
			Subsystem: "push",
			Name:      "resolve_duration_seconds",
			Help:      "Time from send to resolution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"conversation", "status"},
	)
	duplicateResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushwire",
			Subsystem: "push",
			Name:      "duplicate_resolutions_total",
			Help:      "Resolutions discarded because the push already resolved.",
		},
		[]string{"conversation"},
	)
	timeoutsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pushwire",
			Subsystem: "push",
			Name:      "timeouts_fired_total",
			Help:      "Single-shot push timers that fired.",
		},
		[]string{"conversation", "event"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pushesSent, pushesResolved, resolveLatency, duplicateResolutions, timeoutsFired)
	})
}

func RecordPushSent(conversation, event string) {
	RegisterMetrics()
	pushesSent.WithLabelValues(conversation, event).Inc()
}

func RecordPushResolved(conversation, status string, sinceSend time.Duration) {
	RegisterMetrics()
	pushesResolved.WithLabelValues(conversation, status).Inc()
	if sinceSend > 0 {
		resolveLatency.WithLabelValues(conversation, status).Observe(sinceSend.Seconds())
	}
}

func RecordDuplicateResolution(conversation string) {
	RegisterMetrics()
	duplicateResolutions.WithLabelValues(conversation).Inc()
}

func RecordTimeoutFired(conversation, event string) {
	RegisterMetrics()
	timeoutsFired.WithLabelValues(conversation, event).Inc()
}
