// Package observability wires OpenTelemetry tracing and metrics into
// pipedata runs.
//
// Setup, usually from the CLI:
//
//	shutdown, err := observability.Init(ctx, cfg.Telemetry, observability.Resource{
//		Service: "pipedata",
//		Version: version.Get().Short(),
//		Job:     cfg.Job,
//	})
//	defer shutdown(ctx)
//
// The Resource is attached to every exported span and metric, so runs of
// different jobs can be told apart at the collector.
//
// Each run of an ingest job is tracked by a RunContext, which opens the run
// span and records run and step metrics when it ends:
//
//	rc := observability.NewRunContext("daily", runID, metrics)
//	ctx, span := rc.StartSpan(ctx, observability.SpanRun)
//	...
//	metrics.RecordReport(ctx, "daily", stream.Counts())
//	rc.End(ctx, span, "success", nil)
//
// Health checks of the backends a job depends on are collected into a
// ServiceHealth with Check.
package observability
