// Package metrics exposes pipedata runs to Prometheus.
//
// StepCollector reports the live step counts of registered chains and
// streams at scrape time, so a long run can be watched while it drains:
//
//	reg := prometheus.NewRegistry()
//	steps := metrics.NewStepCollector()
//	reg.MustRegister(steps)
//	steps.Register("daily", stream)
//	defer steps.Unregister("daily")
//
// RunMetrics counts finished runs per job and status.
package metrics
