package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
)

var timeNow = time.Now

// deliverySteps: pending → preparing → ready → delivered.
const deliverySteps = 3

type runner struct {
	cfg   config
	api   *apiClient
	runID string
}

// run запускает сценарии не больше cfg.concurrency одновременно и возвращает их число.
func (r *runner) run(ctx context.Context) int64 {
	deadline := timeNow().Add(r.cfg.duration)

	var started atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.concurrency)
	for n := 0; r.cfg.wantsMore(n, deadline) && ctx.Err() == nil; n++ {
		g.Go(func() error {
			// Слот мог освободиться уже после дедлайна.
			if r.cfg.duration > 0 && !timeNow().Before(deadline) {
				return nil
			}
			started.Add(1)
			r.scenario(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return started.Load()
}

// scenario оформляет заказ и по режиму выдаёт его, отменяет или оставляет в очереди.
func (r *runner) scenario(ctx context.Context, n int) {
	began := timeNow()
	code, err := r.play(ctx, n)
	if err == nil {
		code = 200
	}
	r.api.rec.observe(opScenario, timeNow().Sub(began), code)
}

func (r *runner) play(ctx context.Context, n int) (int, error) {
	order, code, err := r.api.checkout(ctx, r.checkoutRequest(n))
	if err != nil {
		if code == 200 || code == 201 {
			code = 500
		}
		return code, err
	}

	switch {
	case r.cfg.scenario == scenarioCheckoutCancel,
		r.cfg.scenario == scenarioCheckoutDeliver && cancels(n, r.cfg.cancelRate):
		return r.api.cancel(ctx, order.ID)
	case r.cfg.scenario == scenarioCheckoutDeliver:
		for step := 0; step < deliverySteps; step++ {
			if code, err = r.api.advance(ctx, order.ID); err != nil {
				return code, err
			}
		}
	}
	return code, nil
}

func (r *runner) checkoutRequest(n int) lifecycle.CheckoutRequest {
	return lifecycle.CheckoutRequest{
		CustomerName:  fmt.Sprintf("%s-%s-%d", r.cfg.customerTag, r.runID, n),
		CustomerPhone: fmt.Sprintf("555-%04d", n%10000),
		Items:         []domain.OrderItem{{Name: r.cfg.item, Quantity: 1, UnitPrice: r.cfg.price}},
	}
}

// cancels детерминированно выбирает rate сценариев из каждой сотни.
func cancels(n, rate int) bool {
	return rate > 0 && n%100 < rate
}

// newRunID помечает заказы одного прогона; UUIDv7 упорядочен по времени запуска.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
