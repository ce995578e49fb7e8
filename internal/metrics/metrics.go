package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SettlementsTotal counts checkouts by outcome: "success", "replayed" or an error kind.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Sale settlements by outcome",
		},
		[]string{"outcome"},
	)

	SettlementRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_retries_total",
			Help: "Settlements retried after a concurrent modification",
		},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Khata ledger entries appended by type",
		},
		[]string{"type"},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_feed_clients",
			Help: "Connected live dashboard websocket clients",
		},
	)
)
