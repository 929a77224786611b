package domain

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что у статуса нет переходов дальше.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// NextStatus возвращает следующий статус основного сценария
// pending → preparing → ready → delivered.
// Для терминальных и неизвестных статусов возвращает false.
//
// Переходы рекомендательные: хранилище позволяет выставить любой статус напрямую.
func NextStatus(current OrderStatus) (OrderStatus, bool) {
	switch current {
	case OrderStatusPending:
		return OrderStatusPreparing, true
	case OrderStatusPreparing:
		return OrderStatusReady, true
	case OrderStatusReady:
		return OrderStatusDelivered, true
	default:
		return "", false
	}
}

// Cancel возвращает cancelled для нетерминального статуса.
// Из терминального статуса отмена ничего не меняет: проверять терминальность
// до показа действия должен вызывающий код.
func Cancel(current OrderStatus) OrderStatus {
	if current.IsTerminal() {
		return current
	}
	return OrderStatusCancelled
}
