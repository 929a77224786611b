package orders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// SchemaVersion: текущая версия формата, в котором хранится массив заказов.
const SchemaVersion = 1

// errUnsupportedSchema: данные записаны более новой версией приложения.
var errUnsupportedSchema = errors.New("unsupported orders schema version")

// envelope: сохраняемое представление коллекции заказов.
type envelope struct {
	SchemaVersion int            `json:"schemaVersion"`
	Orders        []domain.Order `json:"orders"`
}

// decodeOrders разбирает сохранённое значение.
// Голый JSON-массив считается схемой версии 0 и читается как есть.
func decodeOrders(raw []byte) ([]domain.Order, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var legacy []domain.Order
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy orders array: %w", err)
		}
		return legacy, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode orders envelope: %w", err)
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedSchema, env.SchemaVersion)
	}
	return env.Orders, nil
}

// encodeOrders всегда пишет текущую версию схемы.
func encodeOrders(orders []domain.Order) ([]byte, error) {
	if orders == nil {
		orders = []domain.Order{}
	}
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Orders: orders})
	if err != nil {
		return nil, fmt.Errorf("encode orders envelope: %w", err)
	}
	return data, nil
}
