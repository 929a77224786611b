package domain

import "time"

// BlobStore: хранилище именованных значений с чтением и записью целиком.
// Частичных обновлений нет: репозиторий заказов читает и пишет весь массив.
type BlobStore interface {
	// Get возвращает значение ключа; ok=false, если ключ ещё не записан.
	Get(key string) (value []byte, ok bool, err error)
	// Set полностью заменяет значение ключа.
	Set(key string, value []byte) error
}

// OrderEventType определяет тип события заказа.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventUpdated       OrderEventType = "order.updated"
)

// OrderEvent описывает изменение заказа для внешних подписчиков (кухонный экран, уведомления).
type OrderEvent struct {
	Type           OrderEventType `json:"event_type"`
	OrderID        string         `json:"order_id"`
	Number         string         `json:"number"`
	Status         OrderStatus    `json:"status"`
	PreviousStatus OrderStatus    `json:"previous_status,omitempty"`
	Occurred       time.Time      `json:"occurred_at"`
}

// OrderEventPublisher публикует события заказов; должен быть идемпотентным по (OrderID, Status).
type OrderEventPublisher interface {
	Publish(event OrderEvent) error
}
