// Package retry оборачивает публикацию событий заказов повторами с backoff и circuit breaker.
package retry

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// ErrCircuitOpen возвращается, пока breaker не пропускает вызовы.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config конфигурация повторов.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// Publisher повторяет неудачные публикации и прекращает их, пока breaker открыт.
type Publisher struct {
	next    domain.OrderEventPublisher
	config  Config
	breaker *CircuitBreaker
	logger  *log.Entry
	sleep   func(time.Duration)
}

// NewPublisher оборачивает next; breaker может быть nil.
func NewPublisher(next domain.OrderEventPublisher, config Config, breaker *CircuitBreaker, logger *log.Entry) *Publisher {
	if logger == nil {
		logger = log.WithField("component", "event-retry")
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &Publisher{
		next:    next,
		config:  config,
		breaker: breaker,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Publish отправляет событие, повторяя временные ошибки с экспоненциальной задержкой.
func (p *Publisher) Publish(event domain.OrderEvent) error {
	var lastErr error
	delay := p.config.InitialDelay

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		err := p.execute(event)
		if err == nil {
			if attempt > 1 {
				p.logger.WithFields(log.Fields{
					"order_id": event.OrderID,
					"event":    event.Type,
					"attempt":  attempt,
				}).Info("event published after retry")
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt < p.config.MaxAttempts {
			p.logger.WithFields(log.Fields{
				"order_id": event.OrderID,
				"event":    event.Type,
				"attempt":  attempt,
				"delay":    delay,
			}).WithError(err).Warn("event publish failed, retrying")

			p.sleep(delay)
			delay = time.Duration(float64(delay) * p.config.BackoffFactor)
			if p.config.MaxDelay > 0 && delay > p.config.MaxDelay {
				delay = p.config.MaxDelay
			}
		}
	}

	return lastErr
}

func (p *Publisher) execute(event domain.OrderEvent) error {
	if p.breaker == nil {
		return p.next.Publish(event)
	}
	return p.breaker.Execute(string(event.Type), func() error {
		return p.next.Publish(event)
	})
}

// shouldRetry: открытый breaker и некорректное событие не лечатся повтором.
func shouldRetry(err error) bool {
	return !errors.Is(err, ErrCircuitOpen) &&
		!errors.Is(err, domain.ErrOrderIDRequired) &&
		!errors.Is(err, domain.ErrInvalidStatus)
}

var _ domain.OrderEventPublisher = (*Publisher)(nil)

// CircuitState состояние breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker размыкается после maxFailures подряд и пробует снова через resetTimeout.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailure  time.Time
	state        CircuitState
	logger       *log.Entry
	now          func() time.Time
}

// NewCircuitBreaker создаёт breaker в закрытом состоянии.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		logger:       logger,
		now:          time.Now,
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет fn, если breaker пропускает вызов.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if !cb.allow(operation) {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("circuit breaker opened")
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) allow(operation string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
		return false
	}
	cb.state = CircuitHalfOpen
	cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
	return true
}
