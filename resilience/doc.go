// Package resilience retries collaborator I/O with exponential backoff.
//
// The pipeline core never retries. Stages that talk to storage or redis
// wrap their calls:
//
//	rc, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
//	    return store.Download(ctx, key)
//	})
//
// By default only AppErrors with a retryable code (SOURCE_FAILED,
// SINK_FAILED, UNAVAILABLE, TIMEOUT) are retried.
package resilience
