package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type scenarioKind string

const (
	scenarioCheckout        scenarioKind = "checkout"
	scenarioCheckoutDeliver scenarioKind = "checkout-deliver"
	scenarioCheckoutCancel  scenarioKind = "checkout-cancel"
)

func parseScenario(raw string) (scenarioKind, error) {
	kind := scenarioKind(strings.TrimSpace(raw))
	switch kind {
	case scenarioCheckout, scenarioCheckoutDeliver, scenarioCheckoutCancel:
		return kind, nil
	}
	return "", fmt.Errorf("unknown mode %q (want checkout, checkout-deliver or checkout-cancel)", raw)
}

type config struct {
	baseURL     string
	scenario    scenarioKind
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	cancelRate  int
	item        string
	price       decimal.Decimal
	customerTag string
	output      string
}

// limitDescription описывает, чем ограничен прогон: числом сценариев или временем.
func (c config) limitDescription() string {
	switch {
	case c.duration <= 0:
		return fmt.Sprintf("count:%d", c.total)
	case c.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", c.duration, c.total)
	default:
		return fmt.Sprintf("duration:%s", c.duration)
	}
}

// wantsMore сообщает, нужно ли запускать сценарий с порядковым номером n.
func (c config) wantsMore(n int, deadline time.Time) bool {
	if c.duration <= 0 {
		return n < c.total
	}
	if c.totalSet && n >= c.total {
		return false
	}
	return time.Now().Before(deadline)
}

func parseConfig(args []string) (config, error) {
	cfg := config{}
	var mode, price string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "order API base URL")
	fs.StringVar(&mode, "mode", string(scenarioCheckout), "checkout | checkout-deliver | checkout-cancel")
	fs.IntVar(&cfg.total, "total", 400, "scenarios to run; with -duration caps the run")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for this long instead of a fixed count")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "parallel scenarios")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "percent of checkout-deliver scenarios that cancel instead")
	fs.StringVar(&cfg.item, "item", "X-Burger", "menu item name")
	fs.StringVar(&price, "price", "18.50", "menu item unit price")
	fs.StringVar(&cfg.customerTag, "customer-tag", "load", "customer name prefix")
	fs.StringVar(&cfg.output, "output", "", "write the JSON report to this file")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		cfg.totalSet = cfg.totalSet || f.Name == "total"
	})

	var err error
	if cfg.scenario, err = parseScenario(mode); err != nil {
		return cfg, err
	}
	if cfg.price, err = decimal.NewFromString(strings.TrimSpace(price)); err != nil {
		return cfg, fmt.Errorf("invalid price %q: %w", price, err)
	}
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	cfg.item = strings.TrimSpace(cfg.item)
	cfg.customerTag = strings.TrimSpace(cfg.customerTag)

	return cfg, cfg.validate()
}

func (c config) validate() error {
	var problems []error
	if c.baseURL == "" {
		problems = append(problems, errors.New("url is required"))
	}
	if c.duration < 0 {
		problems = append(problems, errors.New("duration must not be negative"))
	}
	if (c.duration == 0 || c.totalSet) && c.total <= 0 {
		problems = append(problems, errors.New("total must be positive"))
	}
	if c.concurrency <= 0 {
		problems = append(problems, errors.New("concurrency must be positive"))
	}
	if c.timeout <= 0 {
		problems = append(problems, errors.New("timeout must be positive"))
	}
	if c.cancelRate < 0 || c.cancelRate > 100 {
		problems = append(problems, errors.New("cancel-rate must be within 0..100"))
	}
	if !c.price.IsPositive() {
		problems = append(problems, errors.New("price must be positive"))
	}
	if c.item == "" {
		problems = append(problems, errors.New("item is required"))
	}
	if c.customerTag == "" {
		problems = append(problems, errors.New("customer-tag is required"))
	}
	return errors.Join(problems...)
}
