package app

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/metrics"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/numbering"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
)

// Dependencies содержит сервисы приложения поверх одного хранилища.
type Dependencies struct {
	Orders      *orders.Repository
	Numbers     *numbering.Authority
	Lifecycle   *lifecycle.Service
	Metrics     *metrics.OrderMetrics
	HTTPMetrics *metrics.HTTPMetrics
	Logger      *log.Entry
}

// NewDependencies собирает репозиторий, выдачу номеров и сервис сценариев.
// publisher может быть nil; registerer nil означает prometheus.DefaultRegisterer.
func NewDependencies(
	store domain.BlobStore,
	publisher domain.OrderEventPublisher,
	registerer prometheus.Registerer,
	logger *log.Entry,
) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	repo := orders.NewRepository(store, logger.WithField("component", "orders-repository"))
	numbers := numbering.NewAuthority(store, logger.WithField("component", "numbering"))
	orderMetrics := metrics.NewOrderMetricsWithRegisterer(registerer)

	// Заполняем gauge по статусам сразу, до первого изменения заказа.
	orderMetrics.ObserveStatistics(repo.Statistics())

	return &Dependencies{
		Orders:      repo,
		Numbers:     numbers,
		Lifecycle:   lifecycle.NewService(repo, numbers, publisher, orderMetrics, logger.WithField("component", "lifecycle")),
		Metrics:     orderMetrics,
		HTTPMetrics: metrics.NewHTTPMetrics(registerer),
		Logger:      logger,
	}
}
