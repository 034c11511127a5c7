// Package telemetry counts what a consolidation batch did, in Prometheus form.
package telemetry

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RunFound   = "found"
	RunMissing = "missing"

	DatasetWritten = "written"
	DatasetFailed  = "failed"
)

// Collector owns a private registry so that repeated batches in one process
// never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	extractions *prometheus.CounterVec
	rows        *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	datasets    *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_runs_total",
			Help: "Runs in the configured range by presence",
		}, []string{"state"}),
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_extractions_total",
			Help: "Extractor outcomes by extractor and status",
		}, []string{"extractor", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_rows_total",
			Help: "Records collected per metric",
		}, []string{"metric"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_rows_dropped_total",
			Help: "Malformed input rows dropped per extractor",
		}, []string{"extractor"}),
		datasets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_datasets_total",
			Help: "Dataset writes by result",
		}, []string{"result"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RunSeen(state string) {
	c.runs.WithLabelValues(state).Inc()
}

func (c *Collector) Extraction(extractor, status string, dropped int) {
	c.extractions.WithLabelValues(extractor, status).Inc()
	if dropped > 0 {
		c.dropped.WithLabelValues(extractor).Add(float64(dropped))
	}
}

func (c *Collector) Rows(metricName string, n int) {
	if n > 0 {
		c.rows.WithLabelValues(metricName).Add(float64(n))
	}
}

func (c *Collector) Dataset(result string) {
	c.datasets.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
