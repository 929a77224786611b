package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics считает запросы HTTP API и их задержки по маршрутам.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTPMetrics создаёт HTTP-метрики в указанном реестре.
func NewHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &HTTPMetrics{
		requests: mustRegister(registerer, "foodtruck_http_requests_total",
			prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "foodtruck_http_requests_total",
				Help: "HTTP API requests by route, method and status.",
			}, []string{"route", "method", "status"})),
		latency: mustRegister(registerer, "foodtruck_http_request_duration_seconds",
			prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "foodtruck_http_request_duration_seconds",
				Help:    "HTTP API request latency by route and method.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			}, []string{"route", "method"})),
	}
}

// RecordRequest фиксирует обработанный запрос.
func (m *HTTPMetrics) RecordRequest(route, method, status string, duration time.Duration) {
	m.requests.WithLabelValues(route, method, status).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}
