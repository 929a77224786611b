package domain

// OrderStatistics считает заказы по статусам.
type OrderStatistics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Delivered int `json:"delivered"`
	Cancelled int `json:"cancelled"`
}

// CountByStatus считает статистику по срезу заказов.
// Заказ с неизвестным статусом попадает только в Total.
func CountByStatus(orders []Order) OrderStatistics {
	stats := OrderStatistics{Total: len(orders)}
	for _, order := range orders {
		switch order.Status {
		case OrderStatusPending:
			stats.Pending++
		case OrderStatusPreparing:
			stats.Preparing++
		case OrderStatusReady:
			stats.Ready++
		case OrderStatusDelivered:
			stats.Delivered++
		case OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// ByStatus возвращает счётчики в виде карты статус → количество.
func (s OrderStatistics) ByStatus() map[OrderStatus]int {
	return map[OrderStatus]int{
		OrderStatusPending:   s.Pending,
		OrderStatusPreparing: s.Preparing,
		OrderStatusReady:     s.Ready,
		OrderStatusDelivered: s.Delivered,
		OrderStatusCancelled: s.Cancelled,
	}
}
