// Command loadtest нагружает HTTP API заказов сценариями кассы и кухни и печатает отчёт по задержкам.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// errScenariosFailed: прогон завершился, но часть сценариев упала.
var errScenariosFailed = errors.New("some scenarios failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.concurrency
	transport.MaxIdleConnsPerHost = cfg.concurrency

	startedAt := timeNow()
	r := &runner{
		cfg:   cfg,
		api:   &apiClient{http: &http.Client{Timeout: cfg.timeout, Transport: transport}, base: cfg.baseURL, rec: newRecorder()},
		runID: newRunID(),
	}
	r.run(ctx)

	result := buildReport(cfg, r.api.rec, startedAt, timeNow().Sub(startedAt))
	if err := result.render(stdout); err != nil {
		return err
	}
	if cfg.output != "" {
		if err := result.save(cfg.output); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if result.Scenarios.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errScenariosFailed, result.Scenarios.Failed, result.Scenarios.Calls)
	}
	return nil
}
