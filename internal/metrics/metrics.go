// Package metrics declares the Prometheus instruments the controller
// exposes at /metrics, grounded on the teacher's pkg/metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var once sync.Once

var (
	WebhookDispatchTotal   *prometheus.CounterVec
	WebhookDispatchSeconds *prometheus.HistogramVec

	SensorReadTotal    *prometheus.CounterVec
	SensorReadRejected prometheus.Counter

	CycleTicksTotal       prometheus.Counter
	CycleCompletionsTotal *prometheus.CounterVec
	CycleDurationSeconds  prometheus.Histogram

	CronMutationsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
)

// Init registers every instrument. Safe to call more than once; only the
// first call takes effect.
func Init() {
	once.Do(func() {
		WebhookDispatchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "hottub_webhook_dispatch_total", Help: "Total webhook dispatch attempts by event and outcome."},
			[]string{"event", "outcome"},
		)
		WebhookDispatchSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "hottub_webhook_dispatch_seconds", Help: "Webhook dispatch latency.", Buckets: prometheus.DefBuckets},
			[]string{"event"},
		)

		SensorReadTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "hottub_sensor_read_total", Help: "Total sensor reads by source and outcome."},
			[]string{"source", "outcome"},
		)
		SensorReadRejected = promauto.NewCounter(
			prometheus.CounterOpts{Name: "hottub_sensor_read_rejected_total", Help: "Total rejected (invalid or stale) sensor readings."},
		)

		CycleTicksTotal = promauto.NewCounter(
			prometheus.CounterOpts{Name: "hottub_cycle_ticks_total", Help: "Total heating cycle ticks processed."},
		)
		CycleCompletionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "hottub_cycle_completions_total", Help: "Total heating cycle completions by terminal status."},
			[]string{"status"},
		)
		CycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{Name: "hottub_cycle_duration_seconds", Help: "Wall-clock duration of completed heating cycles.", Buckets: prometheus.ExponentialBuckets(30, 2, 12)},
		)

		CronMutationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "hottub_cron_mutations_total", Help: "Total crontab mutation operations by kind and outcome."},
			[]string{"operation", "outcome"},
		)

		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "hottub_http_requests_total", Help: "Total HTTP requests by route and status."},
			[]string{"route", "status"},
		)
		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "hottub_http_request_duration_seconds", Help: "HTTP request latency by route.", Buckets: prometheus.DefBuckets},
			[]string{"route"},
		)
	})
}
