package numbering

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// CounterKey: ключ хранилища с последним выданным номером.
const CounterKey = "lastOrderNumber"

// Authority выдаёт последовательные номера заказов "#0001".."#9999".
// Блокировок нет: два одновременных вызова могут получить один номер,
// для одной кассы это допустимо.
type Authority struct {
	store  domain.BlobStore
	logger *log.Entry
}

// NewAuthority создаёт выдачу номеров поверх хранилища.
func NewAuthority(store domain.BlobStore, logger *log.Entry) *Authority {
	if logger == nil {
		logger = log.WithField("component", "numbering")
	}
	return &Authority{store: store, logger: logger}
}

// Next продвигает счётчик и возвращает новый номер.
// Ошибка записи счётчика только логируется: номер всё равно возвращается.
func (a *Authority) Next() string {
	next := a.next()
	if err := a.store.Set(CounterKey, []byte(strconv.Itoa(next))); err != nil {
		a.logger.WithError(err).WithField("counter", next).Warn("failed to persist order counter")
	}
	return domain.FormatOrderNumber(next)
}

// Peek возвращает номер, который выдаст следующий вызов Next, не меняя счётчик.
func (a *Authority) Peek() string {
	return domain.FormatOrderNumber(a.next())
}

// next читает последний номер и вычисляет следующий с переходом через MaxOrderNumber.
func (a *Authority) next() int {
	next := a.last() + 1
	if next > domain.MaxOrderNumber {
		next = 1
	}
	return next
}

// last возвращает последний выданный номер; отсутствующий или битый счётчик даёт 0.
func (a *Authority) last() int {
	raw, ok, err := a.store.Get(CounterKey)
	if err != nil {
		a.logger.WithError(err).Warn("failed to read order counter, starting from scratch")
		return 0
	}
	if !ok {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 0 {
		a.logger.WithField("raw", string(raw)).Warn("corrupt order counter, starting from scratch")
		return 0
	}
	return n
}
