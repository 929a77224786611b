package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа на точке выдачи.
type OrderStatus string

const (
	// OrderStatusPending: заказ оформлен клиентом и ждёт кухню.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPreparing: кухня готовит заказ.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady: заказ готов к выдаче.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusDelivered: заказ выдан клиенту (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled: заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет все статусы в порядке основного сценария.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal возвращает UnitPrice * Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order описывает заказ клиента в каноническом виде.
// Нормализация альтернативных имён полей выполняется на границе системы, не здесь.
type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ItemsTotal суммирует позиции заказа.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
// Хранилище эти правила не применяет: проверка нужна на оформлении заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.CustomerPhone == "" {
		errs = append(errs, ErrCustomerPhoneRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Total.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}
	if o.Status != "" && !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}

	for _, item := range o.Items {
		if item.Name == "" {
			errs = append(errs, ErrItemNameRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
