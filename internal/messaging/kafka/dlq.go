package kafka

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// ErrNotDLQEntry: сообщение в DLQ записано не consumer'ом событий заказов.
var ErrNotDLQEntry = errors.New("kafka: not an order events dlq entry")

// DLQEntry хранит исходное сообщение и причину, по которой его не удалось обработать.
type DLQEntry struct {
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int32     `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	Error             string    `json:"error_message"`
	FailedAt          time.Time `json:"failed_at"`
	Attempts          int       `json:"retry_count"`
}

func newDLQEntry(msg *sarama.ConsumerMessage, cause error, attempts int, now time.Time) DLQEntry {
	return DLQEntry{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		OriginalKey:       string(msg.Key),
		OriginalValue:     string(msg.Value),
		Error:             cause.Error(),
		FailedAt:          now.UTC(),
		Attempts:          attempts,
	}
}

// DecodeDLQEntry разбирает значение из DLQ; без original_value возвращает ErrNotDLQEntry.
func DecodeDLQEntry(raw []byte) (DLQEntry, error) {
	var entry DLQEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.OriginalValue == "" {
		return DLQEntry{}, ErrNotDLQEntry
	}
	return entry, nil
}

// ReplayMessage собирает сообщение для повторной публикации.
// Счётчик попыток обнуляется, чтобы consumer заново прошёл все повторы.
func (e DLQEntry) ReplayMessage(fallbackTopic string) (*sarama.ProducerMessage, error) {
	event, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: []byte(e.OriginalValue)})
	if err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(e.OriginalTopic)
	if topic == "" {
		topic = fallbackTopic
	}
	key := e.OriginalKey
	if key == "" {
		key = event.OrderID
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(e.OriginalValue),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(event.Type)},
			{Key: []byte(HeaderNumber), Value: []byte(event.Number)},
			retryHeader(0),
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func retryHeader(attempts int) sarama.RecordHeader {
	return sarama.RecordHeader{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(attempts))}
}

// attemptsMade читает HeaderRetryCount; отсутствующий или битый заголовок считается нулём.
func attemptsMade(msg *sarama.ConsumerMessage) int {
	for _, h := range msg.Headers {
		if h == nil || string(h.Key) != HeaderRetryCount {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
