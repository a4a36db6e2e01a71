package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	QuestionSetsAssembled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_question_sets_assembled_total",
			Help: "Question sets assembled by the selector",
		},
		[]string{"kind"},
	)

	AssembleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_assemble_failures_total",
			Help: "Assemble requests rejected, by error code",
		},
		[]string{"code"},
	)

	AttemptTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempt_transitions_total",
			Help: "Attempt lifecycle transitions",
		},
		[]string{"status", "reason"},
	)

	AttemptScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_attempt_score",
			Help:    "Scores of completed attempts",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_attempt_version_conflicts_total",
			Help: "Optimistic concurrency conflicts retried on attempts",
		},
	)

	StatsFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_stats_update_failures_total",
			Help: "Question stats increments that failed after a completion",
		},
	)
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
