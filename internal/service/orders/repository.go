package orders

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// StoreKey: ключ хранилища с коллекцией заказов.
const StoreKey = "orders"

// Repository хранит все заказы одним значением под StoreKey.
//
// Ни один метод не возвращает ошибку: сбой чтения даёт пустой список,
// сбой записи возвращает false. Причина пишется в лог; жёсткую семантику
// ошибок добавляет вызывающий слой.
type Repository struct {
	store  domain.BlobStore
	logger *log.Entry
}

// NewRepository создаёт репозиторий заказов поверх хранилища.
func NewRepository(store domain.BlobStore, logger *log.Entry) *Repository {
	if logger == nil {
		logger = log.WithField("component", "orders-repository")
	}
	return &Repository{store: store, logger: logger}
}

// List возвращает заказы по возрастанию числовой части номера.
// Заказы с одинаковым номером сохраняют порядок вставки.
func (r *Repository) List() []domain.Order {
	orders, err := r.load()
	if err != nil {
		r.logger.WithError(err).Error("failed to read orders, treating store as empty")
		return []domain.Order{}
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return domain.OrderNumberValue(orders[i].Number) < domain.OrderNumberValue(orders[j].Number)
	})
	return orders
}

// Get возвращает заказ по идентификатору.
func (r *Repository) Get(id string) (domain.Order, bool) {
	for _, order := range r.List() {
		if order.ID == id {
			return order, true
		}
	}
	return domain.Order{}, false
}

// Upsert заменяет заказ с тем же ID на его месте или добавляет новый в конец.
// Совпадение ищется только по ID: номер может повториться после перехода счётчика.
func (r *Repository) Upsert(order domain.Order) bool {
	logger := r.logger.WithFields(log.Fields{"order_id": order.ID, "number": order.Number})

	if order.ID == "" {
		logger.Warn("refusing to store order without id")
		return false
	}
	if !order.Status.Valid() {
		logger.WithField("status", order.Status).Warn("refusing to store order with invalid status")
		return false
	}

	err := r.mutate(func(orders []domain.Order) ([]domain.Order, error) {
		for i := range orders {
			if orders[i].ID == order.ID {
				orders[i] = order
				logger.Debug("order already stored, replaced in place")
				return orders, nil
			}
		}
		return append(orders, order), nil
	})
	if err != nil {
		logger.WithError(err).Error("failed to save order")
		return false
	}
	return true
}

// UpdateStatus меняет только статус существующего заказа.
// Переходы не проверяются: допустим любой статус из перечисления.
func (r *Repository) UpdateStatus(orderID string, status domain.OrderStatus) bool {
	logger := r.logger.WithFields(log.Fields{"order_id": orderID, "status": status})

	if !status.Valid() {
		logger.Warn("refusing to set invalid order status")
		return false
	}

	err := r.mutate(func(orders []domain.Order) ([]domain.Order, error) {
		for i := range orders {
			if orders[i].ID == orderID {
				orders[i].Status = status
				return orders, nil
			}
		}
		return nil, domain.ErrOrderNotFound
	})
	if err != nil {
		logger.WithError(err).Warn("failed to update order status")
		return false
	}
	return true
}

// Statistics пересчитывает счётчики по статусам из текущего списка заказов.
func (r *Repository) Statistics() domain.OrderStatistics {
	return domain.CountByStatus(r.List())
}

// load читает коллекцию; отсутствующий ключ означает пустую коллекцию.
func (r *Repository) load() ([]domain.Order, error) {
	raw, ok, err := r.store.Get(StoreKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", StoreKey, err)
	}
	if !ok {
		return []domain.Order{}, nil
	}
	orders, err := decodeOrders(raw)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// mutate: единственная точка read-modify-write над коллекцией.
// Нечитаемые данные не перезаписываются: запись отклоняется.
func (r *Repository) mutate(fn func([]domain.Order) ([]domain.Order, error)) error {
	orders, err := r.load()
	if err != nil {
		return err
	}

	updated, err := fn(orders)
	if err != nil {
		return err
	}

	data, err := encodeOrders(updated)
	if err != nil {
		return err
	}
	if err := r.store.Set(StoreKey, data); err != nil {
		return fmt.Errorf("write %s: %w", StoreKey, err)
	}
	return nil
}
