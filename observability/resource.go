package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Resource identifies the exporting process. Every span and metric carries
// it, so a collector can tell the jobs of one fleet apart.
type Resource struct {
	Service     string
	Version     string
	Environment string
	// Job is the ingest job the process runs.
	Job string
}

// build merges the pipedata attributes over the SDK defaults (host, process,
// telemetry SDK). The semconv version matches the SDK's default resource so
// the schema URLs merge.
func (r Resource) build() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(r.Service),
		semconv.ServiceVersion(r.Version),
	}
	if r.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(r.Environment))
	}
	if r.Job != "" {
		attrs = append(attrs, attribute.String(AttrJob, r.Job))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}
