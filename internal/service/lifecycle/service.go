// Package lifecycle реализует сценарии оформления и ведения заказа поверх репозитория:
// касса оформляет заказ, кухня двигает его по статусам, клиент отслеживает по номеру.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/metrics"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/numbering"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
)

const (
	storeOpCheckout  = "checkout"
	storeOpSave      = "save"
	storeOpSetStatus = "set_status"
)

// CheckoutRequest: данные корзины на момент оформления.
type CheckoutRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	DeliveryAddress string             `json:"deliveryAddress,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	PaymentMethod   string             `json:"paymentMethod,omitempty"`
	Items           []domain.OrderItem `json:"items"`
}

// Service оборачивает репозиторий заказов ошибками вместо bool,
// публикует события и обновляет метрики.
type Service struct {
	repo      *orders.Repository
	numbers   *numbering.Authority
	publisher domain.OrderEventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry

	// mu сериализует read-modify-write внутри процесса: выдача номера и запись заказа.
	mu    sync.Mutex
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// NewService конструирует сервис. publisher и orderMetrics могут быть nil.
func NewService(
	repo *orders.Repository,
	numbers *numbering.Authority,
	publisher domain.OrderEventPublisher,
	orderMetrics *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-lifecycle")
	}
	return &Service{
		repo:      repo,
		numbers:   numbers,
		publisher: publisher,
		metrics:   orderMetrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewV7,
	}
}

// Checkout оформляет заказ: проверяет корзину, считает сумму, выдаёт номер и сохраняет заказ в статусе pending.
func (s *Service) Checkout(req CheckoutRequest) (domain.Order, error) {
	started := time.Now()
	defer func() { s.metrics.RecordCheckoutDuration(time.Since(started)) }()

	order := domain.Order{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Notes:           strings.TrimSpace(req.Notes),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		Items:           append([]domain.OrderItem(nil), req.Items...),
		Status:          domain.OrderStatusPending,
	}
	order.Total = order.ItemsTotal()

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}

	id, err := s.newID()
	if err != nil {
		return domain.Order{}, fmt.Errorf("generate order id: %w", err)
	}
	order.ID = id.String()

	s.mu.Lock()
	order.Number = s.numbers.Next()
	order.CreatedAt = s.now()
	saved := s.repo.Upsert(order)
	s.mu.Unlock()

	s.metrics.RecordNumberIssued()
	if !saved {
		s.metrics.RecordStoreFailure(storeOpCheckout)
		return domain.Order{}, fmt.Errorf("%w: checkout %s", domain.ErrOrderStoreWrite, order.Number)
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
		"total":    order.Total.StringFixed(2),
		"items":    len(order.Items),
	}).Info("order checked out")

	s.publish(domain.OrderEvent{
		Type:     domain.OrderEventCreated,
		OrderID:  order.ID,
		Number:   order.Number,
		Status:   order.Status,
		Occurred: order.CreatedAt,
	})
	s.observeStatistics()
	return order, nil
}

// Get возвращает заказ по ID или ErrOrderNotFound.
func (s *Service) Get(id string) (domain.Order, error) {
	order, ok := s.repo.Get(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return order, nil
}

// List возвращает все заказы по возрастанию номера.
func (s *Service) List() []domain.Order {
	return s.repo.List()
}

// ListByStatus возвращает заказы в заданном статусе; пустой статус означает все заказы.
func (s *Service) ListByStatus(status domain.OrderStatus) ([]domain.Order, error) {
	if status == "" {
		return s.repo.List(), nil
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	filtered := make([]domain.Order, 0)
	for _, order := range s.repo.List() {
		if order.Status == status {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// Track ищет заказ по номеру для клиента; "1", "0001" и "#1" означают "#0001".
// После перехода счётчика номер может повториться: возвращается самый свежий заказ.
func (s *Service) Track(number string) (domain.Order, error) {
	number = strings.TrimSpace(number)
	if n := domain.OrderNumberValue(number); n > 0 {
		number = domain.FormatOrderNumber(n)
	} else if !strings.HasPrefix(number, domain.OrderNumberPrefix) {
		number = domain.OrderNumberPrefix + number
	}

	var (
		found domain.Order
		ok    bool
	)
	for _, order := range s.repo.List() {
		if order.Number != number {
			continue
		}
		if !ok || order.CreatedAt.After(found.CreatedAt) {
			found, ok = order, true
		}
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: number %s", domain.ErrOrderNotFound, number)
	}
	return found, nil
}

// Statistics возвращает количество заказов по статусам.
func (s *Service) Statistics() domain.OrderStatistics {
	return s.repo.Statistics()
}

// PeekNextNumber показывает номер, который получит следующий заказ.
func (s *Service) PeekNextNumber() string {
	return s.numbers.Peek()
}

// Save сохраняет заказ целиком (правка администратором или импорт).
func (s *Service) Save(order domain.Order) (domain.Order, error) {
	if order.ID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	if !order.Status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, order.Status)
	}

	s.mu.Lock()
	previous, existed := s.repo.Get(order.ID)
	saved := s.repo.Upsert(order)
	s.mu.Unlock()

	if !saved {
		s.metrics.RecordStoreFailure(storeOpSave)
		return domain.Order{}, fmt.Errorf("%w: save %s", domain.ErrOrderStoreWrite, order.ID)
	}

	event := domain.OrderEvent{
		Type:     domain.OrderEventUpdated,
		OrderID:  order.ID,
		Number:   order.Number,
		Status:   order.Status,
		Occurred: s.now(),
	}
	if !existed {
		event.Type = domain.OrderEventCreated
	} else if previous.Status != order.Status {
		event.PreviousStatus = previous.Status
		s.metrics.RecordStatusTransition(previous.Status, order.Status)
	}
	s.publish(event)
	s.observeStatistics()
	return order, nil
}

// Advance переводит заказ в следующий статус основного сценария.
func (s *Service) Advance(id string) (domain.Order, error) {
	return s.transition(id, func(current domain.OrderStatus) (domain.OrderStatus, error) {
		next, ok := domain.NextStatus(current)
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrOrderTerminal, current)
		}
		return next, nil
	})
}

// Cancel отменяет заказ. Для терминального заказа возвращает ErrOrderTerminal.
func (s *Service) Cancel(id string) (domain.Order, error) {
	return s.transition(id, func(current domain.OrderStatus) (domain.OrderStatus, error) {
		if current.IsTerminal() {
			return "", fmt.Errorf("%w: %s", domain.ErrOrderTerminal, current)
		}
		return domain.Cancel(current), nil
	})
}

// SetStatus выставляет любой допустимый статус напрямую, минуя граф переходов.
func (s *Service) SetStatus(id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	return s.transition(id, func(domain.OrderStatus) (domain.OrderStatus, error) {
		return status, nil
	})
}

func (s *Service) transition(id string, decide func(domain.OrderStatus) (domain.OrderStatus, error)) (domain.Order, error) {
	s.mu.Lock()
	order, ok := s.repo.Get(id)
	if !ok {
		s.mu.Unlock()
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}

	previous := order.Status
	next, err := decide(previous)
	if err != nil {
		s.mu.Unlock()
		return domain.Order{}, err
	}

	saved := s.repo.UpdateStatus(id, next)
	s.mu.Unlock()

	if !saved {
		s.metrics.RecordStoreFailure(storeOpSetStatus)
		return domain.Order{}, fmt.Errorf("%w: status %s for %s", domain.ErrOrderStoreWrite, next, id)
	}

	order.Status = next
	if previous != next {
		s.metrics.RecordStatusTransition(previous, next)
	}
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
		"from":     previous,
		"to":       next,
	}).Info("order status changed")

	s.publish(domain.OrderEvent{
		Type:           domain.OrderEventStatusChanged,
		OrderID:        order.ID,
		Number:         order.Number,
		Status:         next,
		PreviousStatus: previous,
		Occurred:       s.now(),
	})
	s.observeStatistics()
	return order, nil
}

// publish отправляет событие; ошибка не откатывает уже сохранённое изменение.
func (s *Service) publish(event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.metrics.RecordPublishFailure()
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   event.OrderID,
			"event_type": event.Type,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) observeStatistics() {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveStatistics(s.repo.Statistics())
}
