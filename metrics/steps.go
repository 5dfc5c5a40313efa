package metrics

import (
	"sort"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/pipedata/pipeline"
)

var (
	stepInputsDesc = prometheus.NewDesc(
		"pipedata_step_inputs",
		"Values consumed so far by a pipeline step.",
		[]string{"pipeline", "position", "step"}, nil,
	)
	stepOutputsDesc = prometheus.NewDesc(
		"pipedata_step_outputs",
		"Values produced so far by a pipeline step.",
		[]string{"pipeline", "position", "step"}, nil,
	)
)

// StepCollector is a prometheus.Collector reading step counts from
// registered reporters on every scrape.
type StepCollector struct {
	mu        sync.RWMutex
	reporters map[string]pipeline.Reporter
}

var _ prometheus.Collector = (*StepCollector)(nil)

// NewStepCollector creates a collector with no reporters.
func NewStepCollector() *StepCollector {
	return &StepCollector{reporters: make(map[string]pipeline.Reporter)}
}

// Register exposes r under the pipeline label name, replacing any reporter
// already registered under it.
func (c *StepCollector) Register(name string, r pipeline.Reporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reporters[name] = r
}

// Unregister stops exposing name.
func (c *StepCollector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reporters, name)
}

// Describe implements prometheus.Collector.
func (c *StepCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- stepInputsDesc
	ch <- stepOutputsDesc
}

// Collect implements prometheus.Collector.
func (c *StepCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	names := make([]string, 0, len(c.reporters))
	for name := range c.reporters {
		names = append(names, name)
	}
	reporters := make([]pipeline.Reporter, len(names))
	sort.Strings(names)
	for i, name := range names {
		reporters[i] = c.reporters[name]
	}
	c.mu.RUnlock()

	for i, r := range reporters {
		for pos, sc := range r.Counts() {
			labels := []string{names[i], strconv.Itoa(pos), sc.Name}
			ch <- prometheus.MustNewConstMetric(stepInputsDesc, prometheus.GaugeValue, float64(sc.Inputs), labels...)
			ch <- prometheus.MustNewConstMetric(stepOutputsDesc, prometheus.GaugeValue, float64(sc.Outputs), labels...)
		}
	}
}
