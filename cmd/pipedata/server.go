package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/ingest"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/observability"
)

// serveMetrics binds addr and serves /metrics and /health until shut down.
// It returns once the listener is bound.
func serveMetrics(addr string, reg *prometheus.Registry, job *ingest.Job, version string, log *logger.Logger) (*http.Server, error) {
	log = log.WithComponent("server")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		sh := job.Check(ctx, version)
		w.Header().Set("Content-Type", "application/json")
		if sh.Status == observability.HealthStatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(sh) //nolint:errcheck
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Unavailable("metrics server").WithCause(err).WithDetail("addr", addr)
	}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server error")
		}
	}()
	log.Info("Serving metrics", logger.Fields("addr", addr))
	return srv, nil
}
