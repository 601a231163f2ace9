package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ContentServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelup_content_served_total",
			Help: "Content items handed out by the progression selector",
		},
		[]string{"type"},
	)

	NoContent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "levelup_no_content_total",
			Help: "Selections that found nothing left up to the last level",
		},
	)

	LevelAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelup_level_advances_total",
			Help: "Automatic promotions after a level ran out of content",
		},
		[]string{"to"},
	)

	PlacementTests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelup_placement_tests_total",
			Help: "Scored placement tests by assigned level",
		},
		[]string{"level"},
	)

	PlacementScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "levelup_placement_score_percent",
			Help:    "Placement test scores",
			Buckets: []float64{20, 40, 60, 80, 100},
		},
	)

	ContentPool = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "levelup_content_pool_size",
			Help: "Content items per type and level",
		},
		[]string{"type", "level"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ContentServed,
			NoContent,
			LevelAdvances,
			PlacementTests,
			PlacementScore,
			ContentPool,
		)
	})
}

func RecordPlacement(level int, score float64) {
	PlacementTests.WithLabelValues(strconv.Itoa(level)).Inc()
	PlacementScore.Observe(score)
}

func RecordAdvance(to int) {
	LevelAdvances.WithLabelValues(strconv.Itoa(to)).Inc()
}

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
