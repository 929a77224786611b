package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение; ошибка запускает повтор.
type MessageHandler func(ctx context.Context, msg *sarama.ConsumerMessage) error

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 200 * time.Millisecond
)

// ConsumerConfig задаёт подписку и политику повторов.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// MaxAttempts включает первую попытку; 0 означает defaultMaxAttempts.
	MaxAttempts int
	// RetryDelay: пауза между попытками; 0 означает defaultRetryDelay, отрицательное значение отключает паузу.
	RetryDelay time.Duration
	// DLQ получает сообщения после исчерпания попыток. nil: сообщение остаётся непомеченным.
	DLQ *Producer
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	} else if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	return c
}

// Consumer читает topic'и через consumer group и реализует sarama.ConsumerGroupHandler.
type Consumer struct {
	group   sarama.ConsumerGroup
	cfg     ConsumerConfig
	handler MessageHandler
	logger  *log.Entry
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	switch {
	case len(cfg.Brokers) == 0:
		return nil, errors.New("kafka consumer: no brokers")
	case cfg.GroupID == "":
		return nil, errors.New("kafka consumer: group id is required")
	case len(cfg.Topics) == 0:
		return nil, errors.New("kafka consumer: no topics")
	case handler == nil:
		return nil, errors.New("kafka consumer: handler is required")
	}

	sc := sarama.NewConfig()
	sc.ClientID = clientID
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return newConsumer(group, cfg, handler), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handler MessageHandler) *Consumer {
	return &Consumer{
		group:   group,
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  log.WithField("component", "kafka-consumer"),
		now:     time.Now,
	}
}

// Start запускает чтение в фоне; остановка через отмену ctx и Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go c.consumeLoop(ctx)
	go c.drainErrors()

	c.logger.WithField("topics", c.cfg.Topics).Info("kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	// Consume возвращается на каждом rebalance.
	for ctx.Err() == nil {
		if err := c.group.Consume(ctx, c.cfg.Topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			c.logger.WithError(err).Error("consume session ended with error")
		}
	}
}

func (c *Consumer) drainErrors() {
	defer c.wg.Done()
	for err := range c.group.Errors() {
		c.logger.WithError(err).Warn("consumer group error")
	}
}

func (c *Consumer) Stop() error {
	err := c.group.Close()
	c.wg.Wait()
	if err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	c.logger.Info("kafka consumer stopped")
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim помечает сообщение только после успешной обработки или записи в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}
			if err := c.process(ctx, msg); err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("message left unmarked")
				continue
			}
			session.MarkMessage(msg, "")
		}
	}
}

// process делает оставшиеся попытки; переигранные из DLQ сообщения несут счётчик в заголовке.
func (c *Consumer) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	attempts := max(c.cfg.MaxAttempts-attemptsMade(msg), 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = c.handler(ctx, msg); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		c.logger.WithError(lastErr).WithFields(log.Fields{
			"topic":   msg.Topic,
			"attempt": attempt,
			"of":      attempts,
		}).Warn("handler failed, retrying")

		if err := c.wait(ctx); err != nil {
			return err
		}
	}

	if c.cfg.DLQ == nil {
		return lastErr
	}
	return c.deadLetter(msg, lastErr)
}

func (c *Consumer) wait(ctx context.Context) error {
	if c.cfg.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Consumer) deadLetter(msg *sarama.ConsumerMessage, cause error) error {
	entry := newDLQEntry(msg, cause, c.cfg.MaxAttempts, c.now())
	if err := c.cfg.DLQ.SendJSON(TopicOrderEventsDLQ, entry.OriginalKey, entry, retryHeader(c.cfg.MaxAttempts)); err != nil {
		return fmt.Errorf("dead-letter message: %w", err)
	}
	c.logger.WithFields(log.Fields{
		"topic":  msg.Topic,
		"offset": msg.Offset,
		"cause":  cause.Error(),
	}).Warn("message moved to dlq")
	return nil
}
