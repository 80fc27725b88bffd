package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache operation results.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultOK          = "ok"
	ResultError       = "error"
	ResultDecodeError = "decode_error"
)

var (
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_cache_operations_total",
			Help: "Cache store operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	CacheKeysDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "writeshare_cache_keys_deleted_total",
			Help: "Keys removed by delete and pattern delete.",
		},
	)

	CacheFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "writeshare_cache_fetches_total",
			Help: "Authoritative fetches triggered by cache misses.",
		},
	)

	SessionVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_session_verifications_total",
			Help: "Session verifications by where the identity came from.",
		},
		[]string{"source"},
	)

	InvalidationEdgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_invalidation_edges_total",
			Help: "Invalidation edges applied, by edge name.",
		},
		[]string{"edge"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_events_published_total",
			Help: "Change events published to the bus, by result.",
		},
		[]string{"result"},
	)

	EventsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "writeshare_events_delivered_total",
			Help: "Change events forwarded to event-stream clients.",
		},
	)

	AdminAuthTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_admin_auth_total",
			Help: "Admin API key checks, by result.",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writeshare_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"route", "status"},
	)

	ActiveConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "writeshare_active_event_streams",
			Help: "Number of open workspace event-stream connections.",
		},
	)
)

// IncrementCacheOperation counts one cache store call.
func IncrementCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// AddCacheKeysDeleted adds n removed keys.
func AddCacheKeysDeleted(n int64) {
	if n > 0 {
		CacheKeysDeletedTotal.Add(float64(n))
	}
}

// IncrementCacheFetches counts one producer call made by cache-or-fetch.
func IncrementCacheFetches() {
	CacheFetchesTotal.Inc()
}

// IncrementSessionVerification counts a verification outcome (cache, provider, anonymous, provider_error).
func IncrementSessionVerification(source string) {
	SessionVerificationsTotal.WithLabelValues(source).Inc()
}

// IncrementInvalidationEdge counts one applied invalidation edge.
func IncrementInvalidationEdge(edge string) {
	InvalidationEdgesTotal.WithLabelValues(edge).Inc()
}

// IncrementEventsPublished counts one publish attempt.
func IncrementEventsPublished(result string) {
	EventsPublishedTotal.WithLabelValues(result).Inc()
}

// IncrementEventsDelivered counts one event written to a client.
func IncrementEventsDelivered() {
	EventsDeliveredTotal.Inc()
}

// IncrementAdminAuth counts one admin API key check (ok, missing, invalid).
func IncrementAdminAuth(result string) {
	AdminAuthTotal.WithLabelValues(result).Inc()
}

// IncrementHTTPRequest counts one served request.
func IncrementHTTPRequest(route string, status int) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// IncrementActiveConnections increments the active connections gauge.
func IncrementActiveConnections() {
	ActiveConnectionsGauge.Inc()
}

// DecrementActiveConnections decrements the active connections gauge.
func DecrementActiveConnections() {
	ActiveConnectionsGauge.Dec()
}
