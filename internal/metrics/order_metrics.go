package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	ordersCreated     prometheus.Counter
	numbersIssued     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	storeFailures     *prometheus.CounterVec
	publishFailures   prometheus.Counter

	checkoutDuration prometheus.Histogram

	// Снимок статистики на момент последнего пересчёта.
	ordersByStatus *prometheus.GaugeVec
}

// NewOrderMetrics создаёт метрики в глобальном реестре Prometheus.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном реестре (изолированные тесты).
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	counter := func(name, help string) prometheus.Counter {
		return mustRegister(registerer, name, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help}))
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return mustRegister(registerer, name, prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels))
	}

	return &OrderMetrics{
		ordersCreated: counter("foodtruck_orders_created_total",
			"Orders placed through checkout."),
		numbersIssued: counter("foodtruck_order_numbers_issued_total",
			"Sequential order numbers handed out."),
		statusTransitions: counterVec("foodtruck_order_status_transitions_total",
			"Order status changes by source and target status.", "from", "to"),
		storeFailures: counterVec("foodtruck_order_store_failures_total",
			"Rejected order store writes by operation.", "operation"),
		publishFailures: counter("foodtruck_order_event_publish_failures_total",
			"Order events that could not be published."),
		checkoutDuration: mustRegister(registerer, "foodtruck_checkout_duration_seconds",
			prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "foodtruck_checkout_duration_seconds",
				Help:    "Checkout latency including numbering and persistence.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			})),
		ordersByStatus: mustRegister(registerer, "foodtruck_orders_by_status",
			prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "foodtruck_orders_by_status",
				Help: "Stored orders per status at the last statistics refresh.",
			}, []string{"status"})),
	}
}

// mustRegister регистрирует collector; если метрика с тем же описанием уже есть
// (повторная сборка зависимостей в одном процессе), возвращает существующую.
func mustRegister[C prometheus.Collector](registerer prometheus.Registerer, name string, collector C) C {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		panic(fmt.Sprintf("register %s: %v", name, err))
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		panic(fmt.Sprintf("%s is registered with a different collector type", name))
	}
	return existing
}

// Методы Record* и Observe* допускают nil-получатель: метрики отключены.

// RecordOrderCreated увеличивает счётчик оформленных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordNumberIssued увеличивает счётчик выданных номеров.
func (m *OrderMetrics) RecordNumberIssued() {
	if m == nil {
		return
	}
	m.numbersIssued.Inc()
}

// RecordStatusTransition фиксирует смену статуса from → to.
func (m *OrderMetrics) RecordStatusTransition(from, to domain.OrderStatus) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordStoreFailure фиксирует отказ записи в хранилище заказов.
func (m *OrderMetrics) RecordStoreFailure(operation string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(operation).Inc()
}

// RecordPublishFailure фиксирует неудачную публикацию события.
func (m *OrderMetrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// RecordCheckoutDuration записывает время оформления заказа.
func (m *OrderMetrics) RecordCheckoutDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

// ObserveStatistics обновляет gauge заказов по статусам.
func (m *OrderMetrics) ObserveStatistics(stats domain.OrderStatistics) {
	if m == nil {
		return
	}
	for status, count := range stats.ByStatus() {
		m.ordersByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
}
