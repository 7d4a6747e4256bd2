package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// Aggregations
	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_aggregation_duration_seconds",
			Help:    "Duration of MongoDB aggregations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	AggregationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongo_aggregation_errors_total",
			Help: "Total number of failed MongoDB aggregations",
		},
		[]string{"collection"},
	)

	AggregationStages = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongo_aggregation_stages",
			Help:    "Number of stages per aggregation pipeline",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15},
		},
		[]string{"collection"},
	)

	// Weather data
	WeathersImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathers_imported_total",
			Help: "Total number of weather readings inserted, by source",
		},
		[]string{"source"},
	)

	WeathersSoftDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weathers_soft_deleted_total",
			Help: "Total number of weather readings moved to logs",
		},
	)

	LiveFeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weathers_live_clients",
			Help: "Current number of websocket clients on the live feed",
		},
	)

	// Auth
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// Maintenance
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_runs_total",
			Help: "Total number of maintenance task runs by task and status",
		},
		[]string{"task", "status"},
	)

	MaintenanceRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_removed_documents_total",
			Help: "Total number of documents removed by maintenance tasks",
		},
		[]string{"task"},
	)
)

func RecordRequest(method, route string, status int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordAggregation(collection string, stages int, elapsed time.Duration, err error) {
	AggregationDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
	AggregationStages.WithLabelValues(collection).Observe(float64(stages))
	if err != nil {
		AggregationErrors.WithLabelValues(collection).Inc()
	}
}

func RecordMaintenance(task string, removed int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MaintenanceRuns.WithLabelValues(task, status).Inc()
	if removed > 0 {
		MaintenanceRemoved.WithLabelValues(task).Add(float64(removed))
	}
}
