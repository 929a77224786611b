package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/metrics"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/numbering"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/orders"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/memory"
)

const checkoutBody = `{
	"customerName": "Bia",
	"customerPhone": "555-0199",
	"items": [
		{"productId": "p-1", "name": "Pastel", "quantity": 3, "unitPrice": "7.50"}
	]
}`

type apiFixture struct {
	server   *httptest.Server
	store    *memory.BlobStore
	registry *prometheus.Registry
}

func newAPI(t *testing.T) apiFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)

	store := memory.NewBlobStore()
	registry := prometheus.NewRegistry()
	svc := lifecycle.NewService(
		orders.NewRepository(store, entry),
		numbering.NewAuthority(store, entry),
		nil,
		metrics.NewOrderMetricsWithRegisterer(registry),
		entry,
	)
	handler := NewHandler(svc, metrics.NewHTTPMetrics(registry), entry)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return apiFixture{server: server, store: store, registry: registry}
}

func (f apiFixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func decodeOrder(t *testing.T, payload []byte) domain.Order {
	t.Helper()
	var order domain.Order
	require.NoError(t, json.Unmarshal(payload, &order))
	return order
}

func errorMessage(t *testing.T, payload []byte) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(payload, &body))
	return body.Error
}

func TestCheckoutAndGet(t *testing.T) {
	api := newAPI(t)

	resp, payload := api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	created := decodeOrder(t, payload)
	assert.Equal(t, "#0001", created.Number)
	assert.Equal(t, domain.OrderStatusPending, created.Status)
	assert.Equal(t, "22.5", created.Total.String())
	assert.Equal(t, "/api/orders/"+created.ID, resp.Header.Get("Location"))

	resp, payload = api.do(t, http.MethodGet, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decodeOrder(t, payload).ID)

	resp, payload = api.do(t, http.MethodGet, "/api/orders/next-number", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"number":"#0002"}`, string(payload))
}

func TestCheckout_BadRequests(t *testing.T) {
	api := newAPI(t)

	resp, payload := api.do(t, http.MethodPost, "/api/orders", `{"customerName":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, payload), "invalid request body")

	resp, payload = api.do(t, http.MethodPost, "/api/orders", `{"customerName":"Bia","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, payload), domain.ErrCustomerPhoneRequired.Error())

	resp, _ = api.do(t, http.MethodPost, "/api/orders", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckout_StoreFailureIs500(t *testing.T) {
	api := newAPI(t)
	api.store.FailWrites(errors.New("quota exceeded"))

	resp, payload := api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, errorMessage(t, payload), domain.ErrOrderStoreWrite.Error())
}

func TestAdvanceCancelFlow(t *testing.T) {
	api := newAPI(t)

	_, payload := api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	order := decodeOrder(t, payload)

	resp, payload := api.do(t, http.MethodPost, "/api/orders/"+order.ID+"/advance", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OrderStatusPreparing, decodeOrder(t, payload).Status)

	resp, payload = api.do(t, http.MethodPost, "/api/orders/"+order.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OrderStatusCancelled, decodeOrder(t, payload).Status)

	resp, _ = api.do(t, http.MethodPost, "/api/orders/"+order.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/orders/"+order.ID+"/advance", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/orders/missing/advance", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetStatus(t *testing.T) {
	api := newAPI(t)
	_, payload := api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	order := decodeOrder(t, payload)

	resp, payload := api.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", `{"status":"ready"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OrderStatusReady, decodeOrder(t, payload).Status)

	resp, _ = api.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListStatsAndTrack(t *testing.T) {
	api := newAPI(t)
	_, payload := api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	first := decodeOrder(t, payload)
	api.do(t, http.MethodPost, "/api/orders", checkoutBody)
	api.do(t, http.MethodPost, "/api/orders/"+first.ID+"/advance", "")

	resp, payload := api.do(t, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []domain.Order
	require.NoError(t, json.Unmarshal(payload, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "#0001", all[0].Number)
	assert.Equal(t, "#0002", all[1].Number)

	resp, payload = api.do(t, http.MethodGet, "/api/orders?status=pending", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []domain.Order
	require.NoError(t, json.Unmarshal(payload, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "#0002", pending[0].Number)

	resp, _ = api.do(t, http.MethodGet, "/api/orders?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, payload = api.do(t, http.MethodGet, "/api/orders/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":2,"pending":1,"preparing":1,"ready":0,"delivered":0,"cancelled":0}`, string(payload))

	resp, payload = api.do(t, http.MethodGet, "/api/orders/track/0001", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, decodeOrder(t, payload).ID)

	resp, _ = api.do(t, http.MethodGet, "/api/orders/track/0099", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEmptyIsArray(t *testing.T) {
	api := newAPI(t)

	resp, payload := api.do(t, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(bytes.TrimSpace(payload)))
}

func TestSaveOrder(t *testing.T) {
	api := newAPI(t)

	body := `{"number":"#0500","customerName":"Caio","customerPhone":"1","items":[],"total":"0","status":"ready","createdAt":"2026-10-17T10:00:00Z"}`
	resp, payload := api.do(t, http.MethodPut, "/api/orders/imported-1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))
	assert.Equal(t, "imported-1", decodeOrder(t, payload).ID)

	resp, _ = api.do(t, http.MethodPut, "/api/orders/imported-1", `{"id":"other","status":"ready"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/api/orders/imported-2", `{"status":"weird"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/orders/imported-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	api := newAPI(t)

	api.do(t, http.MethodGet, "/api/orders/unknown-id", "")
	api.do(t, http.MethodGet, "/api/orders/another-id", "")

	count, err := testutil.GatherAndCount(api.registry, "foodtruck_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both requests must share the /{id} route label")
}

func TestRequestMetrics_UnmatchedPathsShareOneSeries(t *testing.T) {
	api := newAPI(t)

	for i := range 20 {
		resp, _ := api.do(t, http.MethodGet, fmt.Sprintf("/scan/%d", i), "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	count, err := testutil.GatherAndCount(api.registry, "foodtruck_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(api.registry, "foodtruck_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
