package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// FeedbackSubmissions - исход маршрутизации: stored, redirected, stored_redirected, failed
	FeedbackSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Feedback submissions by routing outcome",
		},
		[]string{"outcome"},
	)

	FeedbackRatings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_ratings_total",
			Help: "Submitted star ratings",
		},
		[]string{"rating"},
	)

	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_sink_errors_total",
			Help: "Failed side-channel deliveries (websocket, kafka, search, email)",
		},
		[]string{"sink"},
	)

	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_live_subscribers",
			Help: "Open websocket inbox subscriptions",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			FeedbackSubmissions,
			FeedbackRatings,
			SinkErrors,
			LiveSubscribers,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
