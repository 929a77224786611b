package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodtruck/internal/health"
	"github.com/vladislavdragonenkov/foodtruck/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodtruck/internal/messaging/retry"
)

// eventPipeline связывает Kafka producer, повторы публикации и проверку брокера.
// Без брокеров все поля nil и события не публикуются.
type eventPipeline struct {
	publisher domain.OrderEventPublisher
	checker   healthcheck.Checker
	producer  *kafka.Producer
}

func newEventPipeline(cfg Config, logger *log.Entry) eventPipeline {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not set, order events disabled")
		return eventPipeline{}
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		// Заказы принимаются и без брокера: сервис остаётся ready, health показывает degraded.
		logger.WithError(err).Warn("kafka unavailable, order events disabled")
		return eventPipeline{checker: healthcheck.NewOptionalChecker("kafka", func() error { return err })}
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer ready")

	breaker := retry.NewCircuitBreaker(publishBreakerFailures, publishBreakerReset, logger.WithField("component", "kafka-breaker"))
	return eventPipeline{
		publisher: retry.NewPublisher(
			kafka.NewOrderEventPublisher(producer, cfg.KafkaTopic),
			retry.DefaultConfig(),
			breaker,
			logger.WithField("component", "event-retry"),
		),
		checker:  healthcheck.NewOptionalChecker("kafka", breakerHealth(breaker)),
		producer: producer,
	}
}

// breakerHealth считает брокер деградировавшим, пока breaker разомкнут.
func breakerHealth(breaker *retry.CircuitBreaker) func() error {
	return func() error {
		if breaker.State() == retry.CircuitOpen {
			return retry.ErrCircuitOpen
		}
		return nil
	}
}

func (p eventPipeline) close(logger *log.Entry) {
	if p.producer == nil {
		return
	}
	if err := p.producer.Close(); err != nil {
		logger.WithError(err).Warn("kafka producer close failed")
		return
	}
	logger.Info("kafka producer closed")
}
