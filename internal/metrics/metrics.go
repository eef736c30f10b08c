package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Protocol metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_messages_received_total",
			Help: "Total inbound messages by classification",
		},
		[]string{"kind"}, // "structured", "direct_query", "natural_language"
	)

	EnvelopesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_envelopes_dispatched_total",
			Help: "Total structured envelopes dispatched by operation",
		},
		[]string{"op"},
	)

	ResponsesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_responses_published_total",
			Help: "Total responses published",
		},
		[]string{"status"}, // "ok" or "error"
	)

	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_publish_errors_total",
			Help: "Total transport publish failures",
		},
	)

	// Chunk codec metrics
	ChunksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_chunks_ingested_total",
			Help: "Total chunk fragments ingested",
		},
	)

	MessagesReassembled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_messages_reassembled_total",
			Help: "Total oversized messages reassembled from fragments",
		},
	)

	ChunksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_chunks_dropped_total",
			Help: "Total chunk fragments dropped",
		},
		[]string{"reason"}, // "malformed", "duplicate", "evicted"
	)

	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hia_active_connections",
			Help: "Currently active peer connections",
		},
	)

	ConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_connections_opened_total",
			Help: "Total peer connections opened",
		},
	)

	ConnectionsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_connections_closed_total",
			Help: "Total peer connections closed",
		},
	)

	// Collaborator metrics
	GeneratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_generator_calls_total",
			Help: "Total report/health generator invocations",
		},
		[]string{"operation", "outcome"}, // outcome: "ok" or "error"
	)

	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hia_generator_duration_seconds",
			Help:    "Report/health generator call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// Heartbeats
	HeartbeatsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hia_heartbeats_published_total",
			Help: "Total heartbeats published on the outbound topic",
		},
	)

	// Ops HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hia_http_requests_total",
			Help: "Total HTTP requests to the ops server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hia_http_request_duration_seconds",
			Help:    "Ops HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)
