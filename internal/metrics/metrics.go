package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics recorded by the server middleware.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalbench_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalbench_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evalbench_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)
)

// Queue and run metrics recorded by the scheduler and the gateway.
var (
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evalbench_queue_depth",
			Help: "Number of runs waiting in the queue",
		},
	)

	RunsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evalbench_runs_total",
			Help: "Runs by status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evalbench_run_duration_seconds",
			Help:    "Wall clock duration of finished runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	WSSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evalbench_ws_subscribers",
			Help: "Currently connected progress stream subscribers",
		},
	)
)
