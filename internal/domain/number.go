package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// OrderNumberPrefix предшествует номеру заказа: "#0007".
	OrderNumberPrefix = "#"
	// MaxOrderNumber: после него счётчик снова начинается с 1.
	MaxOrderNumber = 9999
)

// FormatOrderNumber форматирует счётчик как "#" + 4 цифры с ведущими нулями.
func FormatOrderNumber(n int) string {
	return fmt.Sprintf("%s%04d", OrderNumberPrefix, n)
}

// OrderNumberValue извлекает числовую часть номера заказа.
// Пустой или нечисловой номер даёт 0, такие заказы сортируются первыми.
func OrderNumberValue(number string) int {
	digits := strings.TrimPrefix(strings.TrimSpace(number), OrderNumberPrefix)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
