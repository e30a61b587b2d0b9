// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GradingCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kardemumma",
			Name:      "grading_calls_total",
			Help:      "Grade records written, by test, source and review flag",
		},
		[]string{"test", "source", "needs_review"},
	)

	GradePoints = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kardemumma",
			Name:      "grade_points",
			Help:      "Distribution of awarded points",
			Buckets:   prometheus.LinearBuckets(0, 1, 13),
		},
		[]string{"test"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kardemumma",
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)
