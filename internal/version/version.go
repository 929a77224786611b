// Package version хранит сведения о сборке, заполняемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/foodtruck/internal/version.version=v1.2.0
package version

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Build описывает бинарник: тег, коммит и время сборки.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func Current() Build {
	return Build{Version: version, Commit: commit, Date: date}
}

// GetVersion возвращает только тег сборки (для health-ответов).
func GetVersion() string { return version }

func (b Build) String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", b.Version, b.Commit, b.Date)
}

// BuildInfoCollector отдаёт gauge foodtruck_build_info со значением 1 и сведениями о сборке в метках.
func BuildInfoCollector(b Build) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "foodtruck",
		Name:        "build_info",
		Help:        "Build metadata of the running binary.",
		ConstLabels: prometheus.Labels{"version": b.Version, "commit": b.Commit, "date": b.Date},
	}, func() float64 { return 1 })
}
