package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
)

// apiClient вызывает HTTP API заказов и пишет каждый вызов в recorder.
type apiClient struct {
	http *http.Client
	base string
	rec  *recorder
}

func (c *apiClient) checkout(ctx context.Context, req lifecycle.CheckoutRequest) (domain.Order, int, error) {
	var order domain.Order
	code, err := c.call(ctx, "Checkout", http.MethodPost, "/api/orders", req, &order)
	if err == nil && order.ID == "" {
		err = errors.New("checkout returned an order without id")
	}
	return order, code, err
}

func (c *apiClient) advance(ctx context.Context, id string) (int, error) {
	return c.call(ctx, "Advance", http.MethodPost, "/api/orders/"+id+"/advance", nil, nil)
}

func (c *apiClient) cancel(ctx context.Context, id string) (int, error) {
	return c.call(ctx, "Cancel", http.MethodPost, "/api/orders/"+id+"/cancel", nil, nil)
}

func (c *apiClient) call(ctx context.Context, op, method, path string, in, out any) (int, error) {
	started := timeNow()
	code, err := c.roundTrip(ctx, method, path, in, out)
	c.rec.observe(op, timeNow().Sub(started), code)
	return code, err
}

func (c *apiClient) roundTrip(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if !succeeded(resp.StatusCode) {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
