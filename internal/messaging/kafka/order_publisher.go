package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// OrderEventPublisher публикует события заказов в заданный Kafka topic.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
}

// NewOrderEventPublisher создаёт паблишер; пустой topic заменяется TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет событие с ключом = ID заказа.
func (p *OrderEventPublisher) Publish(event domain.OrderEvent) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka order publisher is not initialized")
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(event.Type)},
		{Key: []byte(HeaderNumber), Value: []byte(event.Number)},
	}
	if err := p.producer.SendJSON(p.topic, event.OrderID, event, headers...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEventPublish, err)
	}
	return nil
}

var _ domain.OrderEventPublisher = (*OrderEventPublisher)(nil)
