package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type report struct {
	Mode       scenarioKind        `json:"mode"`
	Limit      string              `json:"limit"`
	StartedAt  time.Time           `json:"started_at"`
	Elapsed    float64             `json:"elapsed_seconds"`
	Throughput float64             `json:"scenarios_per_second"`
	Scenarios  opReport            `json:"scenarios"`
	Operations map[string]opReport `json:"operations"`
}

func buildReport(cfg config, rec *recorder, startedAt time.Time, elapsed time.Duration) report {
	ops := rec.reports()
	out := report{
		Mode:       cfg.scenario,
		Limit:      cfg.limitDescription(),
		StartedAt:  startedAt.UTC(),
		Elapsed:    elapsed.Seconds(),
		Scenarios:  ops[opScenario],
		Operations: ops,
	}
	delete(out.Operations, opScenario)
	if out.Scenarios.Codes == nil {
		out.Scenarios.Codes = map[string]int64{}
	}
	if elapsed > 0 {
		out.Throughput = float64(out.Scenarios.Calls) / elapsed.Seconds()
	}
	return out
}

func (r report) render(w io.Writer) error {
	var b strings.Builder
	s := r.Scenarios
	fmt.Fprintf(&b, "loadtest %s (%s)\n", r.Mode, r.Limit)
	fmt.Fprintf(&b, "scenarios: %d ok, %d failed, error rate %.2f%%\n", s.OK, s.Failed, s.ErrorRate*100)
	fmt.Fprintf(&b, "elapsed %.2fs, %.1f scenarios/s\n", r.Elapsed, r.Throughput)
	fmt.Fprintf(&b, "scenario latency: p50 %.1fms p95 %.1fms p99 %.1fms max %.1fms\n",
		s.Latency.P50, s.Latency.P95, s.Latency.P99, s.Latency.Max)

	names := make([]string, 0, len(r.Operations))
	for name := range r.Operations {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		op := r.Operations[name]
		fmt.Fprintf(&b, "  %-8s %6d calls %5d failed  p95 %.1fms\n", name, op.Calls, op.Failed, op.Latency.P95)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// save пишет отчёт в файл внутри текущей директории.
func (r report) save(path string) error {
	clean := filepath.Clean(path)
	if clean == "." || clean == string(filepath.Separator) {
		return errors.New("report path must name a file")
	}
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("report path must stay inside the working directory: %s", path)
	}

	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(clean, append(raw, '\n'), 0o600)
}
