package kafka

// Topics для Kafka
const (
	// TopicOrderEvents: события заказов для кухонного экрана и уведомлений клиентов.
	TopicOrderEvents = "foodtruck.order.events"
	// TopicOrderEventsDLQ: сообщения, которые не удалось обработать после всех попыток.
	TopicOrderEventsDLQ = "foodtruck.order.events.dlq"
)

// Kafka headers
const (
	HeaderEventType  = "x-event-type"
	HeaderNumber     = "x-order-number"
	HeaderRetryCount = "x-retry-count"
)
