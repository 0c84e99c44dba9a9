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

// 來源調用結果
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Collector Prometheus 指標
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sourceCallsTotal    *prometheus.CounterVec
	sourceCallDuration  *prometheus.HistogramVec
	suggestionsReturned prometheus.Histogram
}

// New 建立獨立 registry 的指標收集器
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		sourceCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_source_calls_total",
				Help: "Recipe source invocations by outcome",
			},
			[]string{"source", "outcome"},
		),
		sourceCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipe_source_duration_seconds",
				Help:    "Recipe source call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"source"},
		),
		suggestionsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_suggestions_returned",
				Help:    "Number of suggestions returned per request",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.sourceCallsTotal,
		c.sourceCallDuration,
		c.suggestionsReturned,
	)
	return c
}

// SourceCall 記錄一次來源調用
func (c *Collector) SourceCall(source, outcome string, d time.Duration) {
	c.sourceCallsTotal.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSkipped {
		c.sourceCallDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// SuggestionsReturned 記錄回傳筆數
func (c *Collector) SuggestionsReturned(n int) {
	c.suggestionsReturned.Observe(float64(n))
}

// HTTPMiddleware gin 請求指標
func (c *Collector) HTTPMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.httpRequestsTotal.WithLabelValues(ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 端點
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry 供測試讀取
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
