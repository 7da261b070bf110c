package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the campaigns service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Database Metrics
	TxRetriesTotal *prometheus.CounterVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Business Metrics
	ContractTransitionsTotal *prometheus.CounterVec
	ReordersTotal            *prometheus.CounterVec
	CreditRedistributions    prometheus.Counter
	InvariantViolationsTotal *prometheus.CounterVec
	RewardsCreatedTotal      prometheus.Counter
	NotificationEventsTotal  *prometheus.CounterVec
	CampaignJobDuration      prometheus.Histogram
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// Get returns the process-wide registry. promauto registers collectors on the
// default registerer, so the registry must only be built once.
func Get() *MetricsRegistry {
	once.Do(func() {
		registry = newMetricsRegistry()
	})
	return registry
}

func newMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaigns_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campaigns_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		TxRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_db_tx_retries_total",
				Help: "Transactions replayed after a lock or serialization conflict",
			},
			[]string{"operation"},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		ContractTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_contract_transitions_total",
				Help: "Contract status transitions by target status",
			},
			[]string{"status"},
		),
		ReordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_reorders_total",
				Help: "Ordered collection reorders by collection",
			},
			[]string{"collection"},
		),
		CreditRedistributions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "campaigns_credit_redistributions_total",
				Help: "Contracts whose credit portions were re-normalised after a volunteer removal",
			},
		),
		InvariantViolationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_invariant_violations_total",
				Help: "Order density or credit sum violations detected after a write",
			},
			[]string{"invariant"},
		),
		RewardsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "campaigns_rewards_created_total",
				Help: "Rewards granted after an incentive threshold was reached",
			},
		),
		NotificationEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_notification_events_total",
				Help: "Notification events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		CampaignJobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campaigns_lifecycle_job_duration_seconds",
				Help:    "Campaign lifecycle job execution time in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
	}
}
