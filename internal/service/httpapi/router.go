// Package httpapi публикует сценарии заказа по HTTP: касса, кухонный экран и отслеживание клиентом.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodtruck/internal/metrics"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
)

// Handler обслуживает /api/orders.
type Handler struct {
	svc     *lifecycle.Service
	metrics *metrics.HTTPMetrics
	logger  *log.Entry
}

// NewHandler создаёт обработчик API. httpMetrics может быть nil.
func NewHandler(svc *lifecycle.Service, httpMetrics *metrics.HTTPMetrics, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{svc: svc, metrics: httpMetrics, logger: logger}
}

// Routes возвращает настроенный роутер.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		h.requestLogger,
		middleware.Recoverer,
	)

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.checkout)

		r.Get("/stats", h.statistics)
		r.Get("/next-number", h.nextNumber)
		r.Get("/track/{number}", h.track)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Put("/", h.saveOrder)
			r.Patch("/status", h.setStatus)
			r.Post("/advance", h.advance)
			r.Post("/cancel", h.cancel)
		})
	})

	return r
}
