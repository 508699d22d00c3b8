package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 使用独立 registry，测试里可以重复创建
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "password_proxy_requests_total",
				Help: "Password change requests handled by the proxy",
			},
			[]string{"outcome", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "password_proxy_upstream_duration_seconds",
				Help:    "Latency of calls to the upstream password API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.upstreamDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest 记录一次代理请求；status 为 0 表示上游未响应
func (m *Metrics) ObserveRequest(outcome string, status int, upstream time.Duration) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(outcome, code).Inc()
	if upstream > 0 {
		m.upstreamDuration.WithLabelValues(code).Observe(upstream.Seconds())
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
