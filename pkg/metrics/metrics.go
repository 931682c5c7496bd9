package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_requests_total",
			Help: "Marketplace read cache lookups by endpoint and outcome",
		},
		[]string{"endpoint", "result"},
	)

	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_evictions_total",
			Help: "Cache entries removed, by reason",
		},
		[]string{"reason"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_cache_entries",
			Help: "Current number of cached marketplace responses",
		},
	)

	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Calls made to the marketplace backend",
		},
		[]string{"operation", "status"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_bookings_total",
			Help: "Booking attempts by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	AuthTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_auth_transitions_total",
			Help: "Identity state changes",
		},
		[]string{"to", "source"},
	)

	RealtimeConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_realtime_connected",
			Help: "1 while the realtime bridge is connected",
		},
	)

	RealtimeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_realtime_messages_total",
			Help: "Push messages received per channel",
		},
		[]string{"channel", "result"},
	)

	KafkaMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_kafka_messages_total",
			Help: "Kafka messages handled, by direction and status",
		},
		[]string{"direction", "topic", "status"},
	)

	KafkaDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_kafka_duration_seconds",
			Help:    "Time spent publishing or handling a Kafka message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction", "topic"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_events_dropped_total",
			Help: "Bus events a slow subscriber missed",
		},
		[]string{"type"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCacheHit(endpoint string) {
	CacheRequestsTotal.WithLabelValues(endpoint, "hit").Inc()
}

func RecordCacheMiss(endpoint string) {
	CacheRequestsTotal.WithLabelValues(endpoint, "miss").Inc()
}

func RecordCacheEviction(reason string) {
	CacheEvictionsTotal.WithLabelValues(reason).Inc()
}

func RecordBackendCall(operation string, err error) {
	BackendRequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func RecordBooking(kind, status string) {
	BookingsTotal.WithLabelValues(kind, status).Inc()
}

func RecordAuthTransition(to, source string) {
	AuthTransitionsTotal.WithLabelValues(to, source).Inc()
}

func SetRealtimeConnected(connected bool) {
	if connected {
		RealtimeConnected.Set(1)
		return
	}
	RealtimeConnected.Set(0)
}

func RecordRealtimeMessage(channel, result string) {
	RealtimeMessagesTotal.WithLabelValues(channel, result).Inc()
}

func RecordKafka(direction, topic string, err error, seconds float64) {
	KafkaMessagesTotal.WithLabelValues(direction, topic, outcome(err)).Inc()
	KafkaDuration.WithLabelValues(direction, topic).Observe(seconds)
}

func RecordEventDropped(eventType string) {
	EventsDroppedTotal.WithLabelValues(eventType).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
