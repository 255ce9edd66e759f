// Package metrics 暴露 HTTP 与认证相关的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	httpReqTotal *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	authEvents   *prometheus.CounterVec
}

// NewCollector 在 reg 上注册全部指标；测试时传 prometheus.NewRegistry()
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpReqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "hrms_http_requests_total", Help: "Count of HTTP requests"},
			[]string{"path", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hrms_http_request_duration_seconds",
				Help:    "Latency of HTTP requests",
				Buckets: prometheus.DefBuckets,
			}, []string{"path", "method"},
		),
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "hrms_auth_events_total", Help: "Authentication outcomes by operation"},
			[]string{"op", "result"},
		),
	}
	reg.MustRegister(c.httpReqTotal, c.httpLatency, c.authEvents)
	return c
}

func (c *Collector) ObserveHTTP(path, method string, status int, d time.Duration) {
	c.httpReqTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(path, method).Observe(d.Seconds())
}

// AuthEvent op: register/login/refresh/logout
func (c *Collector) AuthEvent(op, result string) {
	c.authEvents.WithLabelValues(op, result).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
