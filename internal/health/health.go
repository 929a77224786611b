// Package health отдаёт состояние хранилища заказов и брокера событий для probes.
package health

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check: результат одной проверки.
type Check struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

type Checker interface {
	Check() Check
}

// Handler собирает проверки компонентов и отвечает на /healthz и /readyz.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	version  string
	started  time.Time
	now      func() time.Time
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		version:  version,
		started:  time.Now(),
		now:      time.Now,
	}
}

// RegisterChecker добавляет проверку; повторная регистрация имени заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Report выполняет проверки по алфавиту имён; общий статус равен худшему из них.
func (h *Handler) Report() Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make([]Checker, 0, len(names))
	slices.Sort(names)
	for _, name := range names {
		checkers = append(checkers, h.checkers[name])
	}
	h.mu.RUnlock()

	resp := Response{
		Status:        StatusHealthy,
		Checks:        make(map[string]Check, len(names)),
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	}
	for i, checker := range checkers {
		check := checker.Check()
		resp.Checks[names[i]] = check
		if check.Status.severity() > resp.Status.severity() {
			resp.Status = check.Status
		}
	}
	resp.Timestamp = h.now().UTC()
	return resp
}

// ServeHTTP отдаёт подробный отчёт; 503 только при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	resp := h.Report()

	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler: degraded-компоненты (брокер событий) готовности не снимают.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if h.Report().Status == StatusUnhealthy {
		writeText(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeText(w, http.StatusOK, "ready")
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// FuncChecker превращает функцию в проверку; ошибка даёт статус onError.
type FuncChecker struct {
	name    string
	fn      func() error
	onError Status
}

// NewSimpleChecker: ошибка критичного компонента означает unhealthy.
func NewSimpleChecker(name string, fn func() error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn, onError: StatusUnhealthy}
}

// NewOptionalChecker: ошибка некритичного компонента означает degraded.
func NewOptionalChecker(name string, fn func() error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn, onError: StatusDegraded}
}

// NewStoreChecker читает key из хранилища; отсутствие ключа ошибкой не считается.
func NewStoreChecker(store domain.BlobStore, key string) *FuncChecker {
	return NewSimpleChecker("storage", func() error {
		_, _, err := store.Get(key)
		return err
	})
}

func (c *FuncChecker) Check() Check {
	began := time.Now()
	err := c.fn()
	check := Check{Name: c.name, Status: StatusHealthy, Duration: time.Since(began)}
	if err != nil {
		check.Status = c.onError
		check.Message = err.Error()
	}
	return check
}
