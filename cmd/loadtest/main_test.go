package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodtruck/internal/app"
	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
	"github.com/vladislavdragonenkov/foodtruck/internal/service/httpapi"
	"github.com/vladislavdragonenkov/foodtruck/internal/storage/memory"
)

// newAPIServer поднимает настоящий HTTP API поверх in-memory хранилища.
func newAPIServer(t *testing.T) (*httptest.Server, *app.Dependencies) {
	t.Helper()

	deps := app.NewDependencies(memory.NewBlobStore(), nil, prometheus.NewRegistry(), nil)
	srv := httptest.NewServer(httpapi.NewHandler(deps.Lifecycle, deps.HTTPMetrics, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, deps
}

func newTestRunner(baseURL string, kind scenarioKind, total int) *runner {
	return &runner{
		cfg: config{
			baseURL:     baseURL,
			scenario:    kind,
			total:       total,
			concurrency: 3,
			timeout:     2 * time.Second,
			item:        "Taco",
			price:       decimal.RequireFromString("4.25"),
			customerTag: "test",
		},
		api:   &apiClient{http: &http.Client{Timeout: 2 * time.Second}, base: baseURL, rec: newRecorder()},
		runID: "run1",
	}
}

func TestParseScenario(t *testing.T) {
	for _, raw := range []string{"checkout", " checkout-deliver ", "checkout-cancel"} {
		_, err := parseScenario(raw)
		assert.NoError(t, err, raw)
	}
	_, err := parseScenario("create-pay")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := parseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.baseURL)
		assert.Equal(t, scenarioCheckout, cfg.scenario)
		assert.Equal(t, 400, cfg.total)
		assert.False(t, cfg.totalSet)
		assert.True(t, cfg.price.Equal(decimal.RequireFromString("18.50")))
		assert.Equal(t, "count:400", cfg.limitDescription())
	})

	t.Run("duration with explicit cap", func(t *testing.T) {
		cfg, err := parseConfig([]string{"-url", "http://api:9000/", "-duration", "2m", "-total", "50", "-mode", "checkout-deliver", "-cancel-rate", "25"})
		require.NoError(t, err)
		assert.Equal(t, "http://api:9000", cfg.baseURL)
		assert.True(t, cfg.totalSet)
		assert.Equal(t, 25, cfg.cancelRate)
		assert.Equal(t, "duration:2m0s,max-total:50", cfg.limitDescription())
	})

	t.Run("duration ignores default total", func(t *testing.T) {
		cfg, err := parseConfig([]string{"-duration", "30s"})
		require.NoError(t, err)
		assert.Equal(t, "duration:30s", cfg.limitDescription())
	})

	invalid := map[string][]string{
		"empty url":       {"-url", " "},
		"bad mode":        {"-mode", "create-pay"},
		"bad price":       {"-price", "free"},
		"zero price":      {"-price", "0"},
		"negative dur":    {"-duration", "-1s"},
		"zero total":      {"-total", "0"},
		"capped zero":     {"-duration", "1s", "-total", "0"},
		"no workers":      {"-concurrency", "0"},
		"no timeout":      {"-timeout", "0s"},
		"rate too high":   {"-cancel-rate", "101"},
		"blank item":      {"-item", "  "},
		"blank tag":       {"-customer-tag", ""},
		"unknown flag":    {"-rps", "10"},
		"bad duration":    {"-duration", "soon"},
		"negative cancel": {"-cancel-rate", "-5"},
	}
	for name, args := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(args)
			assert.Error(t, err)
		})
	}
}

func TestConfig_WantsMore(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Second)

	counted := config{total: 2}
	assert.True(t, counted.wantsMore(1, past))
	assert.False(t, counted.wantsMore(2, future))

	timed := config{duration: time.Minute, total: 400}
	assert.True(t, timed.wantsMore(1000, future))
	assert.False(t, timed.wantsMore(0, past))

	capped := config{duration: time.Minute, total: 3, totalSet: true}
	assert.False(t, capped.wantsMore(3, future))
}

func TestRecorder(t *testing.T) {
	rec := newRecorder()
	rec.observe("Checkout", 10*time.Millisecond, http.StatusCreated)
	rec.observe("Checkout", 30*time.Millisecond, http.StatusCreated)
	rec.observe("Checkout", 20*time.Millisecond, http.StatusServiceUnavailable)
	rec.observe("Checkout", 40*time.Millisecond, 0)

	got := rec.reports()["Checkout"]
	assert.Equal(t, int64(4), got.Calls)
	assert.Equal(t, int64(2), got.OK)
	assert.Equal(t, int64(2), got.Failed)
	assert.InDelta(t, 0.5, got.ErrorRate, 1e-9)
	assert.Equal(t, map[string]int64{"201": 2, "503": 1, "no_response": 1}, got.Codes)
	assert.Equal(t, 10.0, got.Latency.Min)
	assert.Equal(t, 25.0, got.Latency.Mean)
	assert.Equal(t, 20.0, got.Latency.P50)
	assert.Equal(t, 40.0, got.Latency.P95)
	assert.Equal(t, 40.0, got.Latency.Max)
}

func TestNearestRank(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, 50*time.Millisecond, nearestRank(samples, 50))
	assert.Equal(t, 95*time.Millisecond, nearestRank(samples, 95))
	assert.Equal(t, 100*time.Millisecond, nearestRank(samples, 100))
	assert.Equal(t, time.Millisecond, nearestRank(samples, 0))
	assert.Equal(t, latencyMs{}, summarize(nil))
}

func TestCancels(t *testing.T) {
	assert.False(t, cancels(0, 0))
	assert.True(t, cancels(9, 10))
	assert.False(t, cancels(10, 10))
	assert.True(t, cancels(110, 100))
}

func TestNewRunID(t *testing.T) {
	first, second := newRunID(), newRunID()
	assert.NotEqual(t, first, second)

	id, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRunner_Scenarios(t *testing.T) {
	tests := []struct {
		kind       scenarioKind
		cancelRate int
		wantStatus domain.OrderStatus
		wantOps    map[string]int64
	}{
		{kind: scenarioCheckout, wantStatus: domain.OrderStatusPending, wantOps: map[string]int64{"Checkout": 4}},
		{kind: scenarioCheckoutDeliver, wantStatus: domain.OrderStatusDelivered, wantOps: map[string]int64{"Checkout": 4, "Advance": 12}},
		{kind: scenarioCheckoutCancel, wantStatus: domain.OrderStatusCancelled, wantOps: map[string]int64{"Checkout": 4, "Cancel": 4}},
		{kind: scenarioCheckoutDeliver, cancelRate: 100, wantStatus: domain.OrderStatusCancelled, wantOps: map[string]int64{"Checkout": 4, "Cancel": 4}},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			srv, deps := newAPIServer(t)
			r := newTestRunner(srv.URL, tc.kind, 4)
			r.cfg.cancelRate = tc.cancelRate

			assert.Equal(t, int64(4), r.run(context.Background()))

			ops := r.api.rec.reports()
			assert.Equal(t, int64(4), ops[opScenario].OK)
			for op, calls := range tc.wantOps {
				assert.Equal(t, calls, ops[op].Calls, op)
				assert.Zero(t, ops[op].Failed, op)
			}

			orders := deps.Lifecycle.List()
			require.Len(t, orders, 4)
			for _, order := range orders {
				assert.Equal(t, tc.wantStatus, order.Status)
				assert.Contains(t, order.CustomerName, "test-run1-")
			}
			assert.Equal(t, "#0005", deps.Lifecycle.PeekNextNumber())
		})
	}
}

func TestRunner_DurationStopsDispatch(t *testing.T) {
	srv, _ := newAPIServer(t)
	r := newTestRunner(srv.URL, scenarioCheckout, 0)
	r.cfg.duration = 50 * time.Millisecond

	started := time.Now()
	n := r.run(context.Background())
	assert.Positive(t, n)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestRunner_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		r := newTestRunner(srv.URL, scenarioCheckout, 2)
		r.run(context.Background())
		scenarios := r.api.rec.reports()[opScenario]
		assert.Equal(t, int64(2), scenarios.Failed)
		assert.Equal(t, map[string]int64{"503": 2}, scenarios.Codes)
	})

	t.Run("order without id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"number":"#0001"}`))
		}))
		defer srv.Close()

		r := newTestRunner(srv.URL, scenarioCheckout, 1)
		r.run(context.Background())
		assert.Equal(t, map[string]int64{"500": 1}, r.api.rec.reports()[opScenario].Codes)
	})

	t.Run("advance rejected", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"o-1"}`))
				return
			}
			w.WriteHeader(http.StatusConflict)
		}))
		defer srv.Close()

		r := newTestRunner(srv.URL, scenarioCheckoutDeliver, 1)
		r.run(context.Background())
		ops := r.api.rec.reports()
		assert.Equal(t, int64(1), ops["Advance"].Calls)
		assert.Equal(t, map[string]int64{"409": 1}, ops[opScenario].Codes)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		r := newTestRunner(url, scenarioCheckout, 1)
		r.run(context.Background())
		assert.Equal(t, map[string]int64{"no_response": 1}, r.api.rec.reports()[opScenario].Codes)
	})
}

func TestReport_RenderAndSave(t *testing.T) {
	rec := newRecorder()
	rec.observe(opScenario, 12*time.Millisecond, http.StatusOK)
	rec.observe("Checkout", 8*time.Millisecond, http.StatusCreated)
	cfg := config{scenario: scenarioCheckout, total: 1}

	result := buildReport(cfg, rec, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), 2*time.Second)
	assert.Equal(t, 0.5, result.Throughput)
	assert.NotContains(t, result.Operations, opScenario)

	var buf bytes.Buffer
	require.NoError(t, result.render(&buf))
	assert.Contains(t, buf.String(), "loadtest checkout (count:1)")
	assert.Contains(t, buf.String(), "Checkout")

	t.Chdir(t.TempDir())
	require.NoError(t, result.save("report.json"))
	raw, err := os.ReadFile("report.json")
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(1), decoded.Scenarios.OK)

	for _, bad := range []string{".", "../escape.json", filepath.Join(string(filepath.Separator), "tmp", "r.json")} {
		assert.Error(t, result.save(bad), bad)
	}
}

func TestBuildReport_Empty(t *testing.T) {
	result := buildReport(config{scenario: scenarioCheckout, total: 1}, newRecorder(), time.Now(), 0)
	assert.Zero(t, result.Scenarios.Calls)
	assert.NotNil(t, result.Scenarios.Codes)
	assert.Zero(t, result.Throughput)
}

func TestRun(t *testing.T) {
	srv, deps := newAPIServer(t)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-url=" + srv.URL, "-total=5", "-concurrency=2", "-output=report.json",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "5 ok, 0 failed")
	assert.FileExists(t, "report.json")
	assert.Equal(t, "#0006", deps.Lifecycle.PeekNextNumber())

	err = run(context.Background(), []string{"-concurrency=0"}, &out)
	assert.ErrorContains(t, err, "invalid config")
}

func TestRun_ReportsFailedScenarios(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), []string{"-url=" + srv.URL, "-total=2"}, &out)
	assert.ErrorIs(t, err, errScenariosFailed)
}
