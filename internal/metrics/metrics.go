package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	FeedJoin      prometheus.Histogram
	FeedDropped   prometheus.Counter
	Subscribers   prometheus.Gauge
	UploadsSwept  prometheus.Counter
	UploadedBytes prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "team_chat_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "team_chat_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		FeedJoin: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "team_chat_feed_join_duration_seconds",
			Help:    "Time spent joining author, reactions and thread summary for a feed page.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		FeedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "team_chat_feed_dropped_messages_total",
			Help: "Feed items dropped because the author could not be resolved.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "team_chat_feed_subscribers",
			Help: "Open realtime feed subscriptions.",
		}),
		UploadsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "team_chat_uploads_swept_total",
			Help: "Orphan uploads removed by the sweeper.",
		}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "team_chat_uploaded_bytes_total",
			Help: "Bytes accepted by the upload endpoint.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.FeedJoin, m.FeedDropped, m.Subscribers, m.UploadsSwept, m.UploadedBytes,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware считает запросы по шаблону маршрута, а не по фактическому пути
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveSince - хелпер для defer
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
