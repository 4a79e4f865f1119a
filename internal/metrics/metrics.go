// Package metrics registers the Prometheus collectors for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Log ingestion
	LogBytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arenaview_log_bytes_read_total",
			Help: "Total bytes read from the client log",
		},
	)

	EventsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_events_parsed_total",
			Help: "Domain events recognised in the client log",
		},
		[]string{"type"}, // "MatchStarted", "GameStateChanged"
	)

	// Metadata cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_cache_lookups_total",
			Help: "Card metadata cache lookups by layer and result",
		},
		[]string{"layer", "result"}, // layer: memory|disk, result: hit|miss|corrupt
	)

	LedgerWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_override_ledger_writes_total",
			Help: "Override ledger save attempts",
		},
		[]string{"result"},
	)

	// Provider
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_provider_requests_total",
			Help: "Card provider requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: found|not_found|error
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arenaview_provider_request_duration_seconds",
			Help:    "Card provider request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arenaview_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Resolution
	ResolutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arenaview_resolutions_in_flight",
			Help: "Card resolutions currently waiting on the provider",
		},
	)

	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_resolutions_total",
			Help: "Completed card resolutions by source",
		},
		[]string{"source"}, // cache|provider|not_found|error|skipped
	)

	// Snapshots
	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arenaview_snapshot_version",
			Help: "Current state store version",
		},
	)

	// WebSocket feed
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arenaview_websocket_connections",
			Help: "Current number of WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arenaview_websocket_messages_sent_total",
			Help: "Snapshots forwarded to WebSocket clients",
		},
	)

	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenaview_commands_total",
			Help: "Consumer commands by name and whether they changed state",
		},
		[]string{"command", "changed"},
	)
)

// RecordProviderRequest records one provider call.
func RecordProviderRequest(operation, outcome string, duration time.Duration) {
	ProviderRequests.WithLabelValues(operation, outcome).Inc()
	ProviderDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache probe.
func RecordCacheLookup(layer, result string) {
	CacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordCommand records a consumer command.
func RecordCommand(command string, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	Commands.WithLabelValues(command, label).Inc()
}
