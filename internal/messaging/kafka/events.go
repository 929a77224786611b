package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// ParseOrderEvent декодирует событие заказа и отбрасывает события без ID или с неизвестным статусом.
func ParseOrderEvent(msg *sarama.ConsumerMessage) (domain.OrderEvent, error) {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if event.OrderID == "" || !event.Status.Valid() {
		return domain.OrderEvent{}, fmt.Errorf("malformed order event: order_id=%q status=%q", event.OrderID, event.Status)
	}
	return event, nil
}
