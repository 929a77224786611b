package main

import (
	"math"
	"slices"
	"strconv"
	"sync"
	"time"
)

// opScenario: метка для сценария целиком, остальные метки соответствуют вызовам API.
const opScenario = "scenario"

type series struct {
	ok      int64
	failed  int64
	codes   map[int]int64
	samples []time.Duration
}

// recorder собирает результаты вызовов из всех воркеров.
type recorder struct {
	mu     sync.Mutex
	series map[string]*series
}

func newRecorder() *recorder {
	return &recorder{series: make(map[string]*series)}
}

// observe учитывает вызов; code=0 означает, что ответа не было.
func (r *recorder) observe(op string, took time.Duration, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.series[op]
	if s == nil {
		s = &series{codes: make(map[int]int64)}
		r.series[op] = s
	}
	if succeeded(code) {
		s.ok++
	} else {
		s.failed++
	}
	s.codes[code]++
	s.samples = append(s.samples, took)
}

type latencyMs struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

type opReport struct {
	Calls     int64            `json:"calls"`
	OK        int64            `json:"ok"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	Latency   latencyMs        `json:"latency_ms"`
}

func (s *series) report() opReport {
	calls := s.ok + s.failed
	out := opReport{
		Calls:   calls,
		OK:      s.ok,
		Failed:  s.failed,
		Codes:   make(map[string]int64, len(s.codes)),
		Latency: summarize(s.samples),
	}
	if calls > 0 {
		out.ErrorRate = float64(s.failed) / float64(calls)
	}
	for code, n := range s.codes {
		out.Codes[codeLabel(code)] = n
	}
	return out
}

// reports возвращает снимок всех серий, включая opScenario.
func (r *recorder) reports() map[string]opReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]opReport, len(r.series))
	for op, s := range r.series {
		out[op] = s.report()
	}
	return out
}

func summarize(samples []time.Duration) latencyMs {
	if len(samples) == 0 {
		return latencyMs{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return latencyMs{
		Min:  ms(sorted[0]),
		Mean: ms(sum / time.Duration(len(sorted))),
		P50:  ms(nearestRank(sorted, 50)),
		P90:  ms(nearestRank(sorted, 90)),
		P95:  ms(nearestRank(sorted, 95)),
		P99:  ms(nearestRank(sorted, 99)),
		Max:  ms(sorted[len(sorted)-1]),
	}
}

// nearestRank берёт перцентиль по методу ближайшего ранга; sorted не пуст.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[min(max(rank-1, 0), len(sorted)-1)]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func succeeded(code int) bool {
	return code >= 200 && code < 300
}

func codeLabel(code int) string {
	if code == 0 {
		return "no_response"
	}
	return strconv.Itoa(code)
}
