package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// dlqSource отдаёт сообщения DLQ-партиции в диапазоне offset'ов.
type dlqSource interface {
	Partitions(topic string) ([]int32, error)
	// Bounds возвращает самый старый доступный offset и offset следующего сообщения.
	Bounds(topic string, partition int32) (oldest, newest int64, err error)
	// Read вызывает fn для сообщений [from, to) и завершается раньше по idle-таймауту.
	Read(ctx context.Context, topic string, partition int32, from, to int64, idle time.Duration, fn func(*sarama.ConsumerMessage) error) error
}

type saramaSource struct {
	client   sarama.Client
	consumer sarama.Consumer
}

func newSaramaSource(brokers []string) (*saramaSource, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "foodtruck-dlq-reprocess"
	cfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &saramaSource{client: client, consumer: consumer}, nil
}

func (s *saramaSource) Partitions(topic string) ([]int32, error) {
	return s.client.Partitions(topic)
}

func (s *saramaSource) Bounds(topic string, partition int32) (int64, int64, error) {
	oldest, err := s.client.GetOffset(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, 0, err
	}
	newest, err := s.client.GetOffset(topic, partition, sarama.OffsetNewest)
	if err != nil {
		return 0, 0, err
	}
	return oldest, newest, nil
}

func (s *saramaSource) Read(ctx context.Context, topic string, partition int32, from, to int64, idle time.Duration, fn func(*sarama.ConsumerMessage) error) error {
	pc, err := s.consumer.ConsumePartition(topic, partition, from)
	if err != nil {
		return fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer pc.AsyncClose()

	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case consumerErr, ok := <-pc.Errors():
			if ok && consumerErr != nil {
				return fmt.Errorf("partition %d: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok {
				return nil
			}
			if msg.Offset >= to {
				return nil
			}
			if err := fn(msg); err != nil {
				return err
			}
			if msg.Offset+1 >= to {
				return nil
			}
			timer.Reset(idle)
		}
	}
}

func (s *saramaSource) Close() error {
	return errors.Join(s.consumer.Close(), s.client.Close())
}

// newReplayProducer настраивает идемпотентный producer с подтверждением всех реплик.
func newReplayProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "foodtruck-dlq-reprocess"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

var _ dlqSource = (*saramaSource)(nil)
