// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemeconnect_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schemeconnect_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemeconnect_imports_total",
			Help: "Spreadsheet imports by result",
		},
		[]string{"result"},
	)

	ImportedSchemes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemeconnect_ingested_schemes",
			Help: "Number of schemes in the ingested partition",
		},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemeconnect_chat_turns_total",
			Help: "Chat turns answered, by dialogue intent",
		},
		[]string{"intent"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemeconnect_active_sessions",
			Help: "Number of advisor sessions held in memory",
		},
	)

	ExpiredSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schemeconnect_expired_sessions_total",
			Help: "Advisor sessions removed for inactivity",
		},
	)
)
