package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего телефона клиента.
	ErrCustomerPhoneRequired = errors.New("customer phone is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("order total must be non-negative")
	// Ошибка позиции без названия.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// ErrOrderIDRequired возвращается при сохранении заказа без идентификатора.
	ErrOrderIDRequired = errors.New("order id is required")
	// ErrInvalidStatus: значение статуса вне перечисления OrderStatus.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderTerminal: у заказа терминальный статус, переход невозможен.
	ErrOrderTerminal = errors.New("order is in a terminal status")
	// ErrOrderStoreWrite: хранилище заказов не приняло запись.
	ErrOrderStoreWrite = errors.New("order store write failed")
	// ErrEventPublish: ошибка при публикации события заказа.
	ErrEventPublish = errors.New("order event publish failed")
)

// IsValidationError сообщает, что ошибка вызвана некорректными входными данными.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrCustomerNameRequired,
		ErrCustomerPhoneRequired,
		ErrItemsRequired,
		ErrTotalNegative,
		ErrItemNameRequired,
		ErrItemQtyInvalid,
		ErrItemPriceInvalid,
		ErrOrderIDRequired,
		ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
