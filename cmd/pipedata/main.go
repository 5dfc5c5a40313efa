// Command pipedata converts zipped CSV or JSON archives to parquet, once or
// on a cron schedule.
//
//	pipedata -config pipedata.yaml -once
//	pipedata -config pipedata.yaml          # runs on cfg.schedule
//	pipedata -config pipedata.yaml -check   # checks storage and redis
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kbukum/pipedata/config"
	"github.com/kbukum/pipedata/ingest"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/metrics"
	"github.com/kbukum/pipedata/observability"
	"github.com/kbukum/pipedata/redis"
	"github.com/kbukum/pipedata/storage"
	_ "github.com/kbukum/pipedata/storage/local"
	_ "github.com/kbukum/pipedata/storage/memory"
	_ "github.com/kbukum/pipedata/storage/s3"
	"github.com/kbukum/pipedata/version"
)

const gracefulTimeout = 15 * time.Second

type flags struct {
	config  string
	env     string
	once    bool
	check   bool
	version bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "config file (default: ./pipedata.yaml or ./config/pipedata.yaml)")
	flag.StringVar(&f.env, "env", "", ".env file loaded before PIPEDATA_* overrides")
	flag.BoolVar(&f.once, "once", false, "run the job once even when a schedule is configured")
	flag.BoolVar(&f.check, "check", false, "check storage and redis, print the result and exit")
	flag.BoolVar(&f.version, "version", false, "print version and exit")
	flag.Parse()

	if f.version {
		fmt.Println(version.Get().String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		logger.Error("pipedata failed", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg := &ingest.Config{}
	var opts []config.LoaderOption
	if f.config != "" {
		opts = append(opts, config.WithConfigFile(f.config))
	}
	if f.env != "" {
		opts = append(opts, config.WithEnvFile(f.env))
	}
	if err := config.LoadConfig("pipedata", cfg, opts...); err != nil {
		return err
	}

	info := version.Get()
	logger.Init(cfg.Logging, cfg.Name)
	log := logger.GetGlobalLogger()
	log.Info("Starting pipedata", info.Fields())
	logger.RegisterDefaults(log.WithFields(logger.Fields("version", info.Version)))

	// Phase 1: infrastructure
	shutdownTelemetry, err := observability.Init(ctx, cfg.Telemetry, observability.Resource{
		Service: cfg.Name,
		Version: info.Version,
		Job:     cfg.Job,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	var jobOpts []ingest.Option
	if cfg.Redis.Enabled {
		client, err := redis.New(cfg.Redis, nil)
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck
		jobOpts = append(jobOpts, ingest.WithRedis(client))
	}
	if cfg.Telemetry.Enabled {
		m, err := observability.NewMetrics(observability.Meter("github.com/kbukum/pipedata"))
		if err != nil {
			return err
		}
		jobOpts = append(jobOpts, ingest.WithTelemetry(m))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	steps := metrics.NewStepCollector()
	reg.MustRegister(steps)
	jobOpts = append(jobOpts, ingest.WithRunMetrics(metrics.NewRunMetrics(reg)), ingest.WithStepCollector(steps))

	// Phase 2: the job
	job, err := ingest.NewJob(cfg, store, jobOpts...)
	if err != nil {
		return err
	}

	if f.check {
		return printHealth(job.Check(ctx, info.Version))
	}

	if f.once || cfg.Schedule == "" {
		_, err := job.Run(ctx)
		return err
	}

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg.MetricsAddr, reg, job, info.Version, log)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
			defer cancel()
			srv.Shutdown(sctx) //nolint:errcheck
		}()
	}

	sched, err := ingest.NewScheduler(job, cfg.Schedule, nil)
	if err != nil {
		return err
	}
	return sched.Run(ctx, gracefulTimeout)
}

func printHealth(sh *observability.ServiceHealth) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sh); err != nil {
		return err
	}
	if sh.Status == observability.HealthStatusDown {
		return fmt.Errorf("%s is %s", sh.Service, sh.Status)
	}
	return nil
}
