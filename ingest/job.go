package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/metrics"
	"github.com/kbukum/pipedata/observability"
	"github.com/kbukum/pipedata/ops/columnar"
	"github.com/kbukum/pipedata/ops/files"
	"github.com/kbukum/pipedata/ops/records"
	"github.com/kbukum/pipedata/pipeline"
	"github.com/kbukum/pipedata/redis"
	"github.com/kbukum/pipedata/storage"
)

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Status   string
	Outputs  []string
	Report   pipeline.Report
	Duration time.Duration
}

// Job runs one configured ingestion.
type Job struct {
	cfg     *Config
	store   storage.Storage
	redis   *redis.Client
	reports *redis.ReportStore
	otel    *observability.Metrics
	runs    *metrics.RunMetrics
	steps   *metrics.StepCollector
	base    *logger.Logger
	log     *logger.Logger
}

// Option configures a Job.
type Option func(*Job)

// WithRedis sets the client used for a queue source and run reports.
func WithRedis(client *redis.Client) Option {
	return func(j *Job) { j.redis = client }
}

// WithTelemetry records runs and step counts on OpenTelemetry instruments.
func WithTelemetry(m *observability.Metrics) Option {
	return func(j *Job) { j.otel = m }
}

// WithRunMetrics records finished runs on Prometheus instruments.
func WithRunMetrics(m *metrics.RunMetrics) Option {
	return func(j *Job) { j.runs = m }
}

// WithStepCollector exposes the live step counts of each run.
func WithStepCollector(c *metrics.StepCollector) Option {
	return func(j *Job) { j.steps = c }
}

// WithLogger sets the logger of the job and its stages. Without it each
// stage logs through its registered component logger.
func WithLogger(l *logger.Logger) Option {
	return func(j *Job) { j.base = l }
}

// NewJob creates a job reading archives from store. cfg must be defaulted
// and valid.
func NewJob(cfg *Config, store storage.Storage, opts ...Option) (*Job, error) {
	j := &Job{cfg: cfg, store: store}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.logger(logger.ComponentIngest)

	if cfg.Source.Queue != "" && j.redis == nil {
		return nil, errors.InvalidConfig("source.queue", "a queue source needs a redis client")
	}
	if j.redis != nil {
		j.reports = redis.NewReportStore(j.redis, cfg.Reports.Prefix, cfg.Reports.TTL)
	}
	// Fail on a bad output configuration before the first run.
	if _, err := j.Chain(); err != nil {
		return nil, err
	}
	return j, nil
}

// logger returns the logger of one component, tagged with the job.
func (j *Job) logger(component string) *logger.Logger {
	l := logger.Get(component)
	if j.base != nil {
		l = j.base.WithComponent(component)
	}
	return l.WithFields(logger.Fields(logger.FieldJob, j.cfg.Job))
}

// Name returns the job name.
func (j *Job) Name() string { return j.cfg.Job }

// Chain builds the job's chain from archive locators to written paths.
func (j *Job) Chain() (*pipeline.Chain[string, string], error) {
	zipped := pipeline.Then(pipeline.Start[string](), files.Zipped(j.store,
		files.WithRetry(j.cfg.Retry),
		files.WithTempDir(j.cfg.Storage.TempDir),
		files.WithLogger(j.logger(logger.ComponentFiles)),
	))

	var parsed *pipeline.Chain[string, records.Record]
	switch j.cfg.Format.Type {
	case FormatCSV:
		opts := []records.Option{records.WithLogger(j.logger(logger.ComponentRecords))}
		if d, ok := j.cfg.Format.delimiter(); ok {
			opts = append(opts, records.WithDelimiter(d))
		}
		parsed = pipeline.Then(zipped, records.CSV[*files.File]("csv", opts...))
	case FormatJSON:
		parsed = pipeline.Then(zipped, records.JSON[*files.File]("json",
			records.WithPath(j.cfg.Format.JSONPath),
			records.WithMultipleValues(j.cfg.Format.Multiple),
			records.WithLogger(j.logger(logger.ComponentRecords)),
		))
	default:
		return nil, errors.InvalidConfig("format.type", "unsupported format "+j.cfg.Format.Type)
	}

	out := j.cfg.Output
	opts := []columnar.Option{
		columnar.WithRowGroupLength(out.RowGroupLength),
		columnar.WithMaxFileLength(out.MaxFileLength),
		columnar.WithCompression(out.codec()),
		columnar.WithTempDir(j.cfg.Storage.TempDir),
		columnar.WithRetry(j.cfg.Retry),
		columnar.WithLogger(j.logger(logger.ComponentColumnar)),
	}
	if out.ToStorage {
		opts = append(opts, columnar.WithStorage(j.store))
	}
	writer, err := columnar.Writer(out.Path, opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.Then(parsed, writer), nil
}

// Run drains the chain once over the current locators.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	rc := observability.NewRunContext(j.cfg.Job, runID, j.otel)
	ctx, span := rc.StartSpan(ctx, observability.SpanRun)
	log := j.log.WithRun(runID).WithContext(ctx)

	log.Info("Run started")
	res := &Result{RunID: runID, Status: metrics.StatusSuccess}
	err := j.drain(ctx, log, res)
	if err != nil {
		res.Status = metrics.StatusFailed
	}
	res.Duration = rc.Duration()

	fields := logger.DurationFields("run", res.Duration)
	fields[logger.FieldStatus] = res.Status
	fields["files"] = len(res.Outputs)
	for k, v := range res.Report.Fields() {
		fields[k] = v
	}
	if err != nil {
		log.Error("Run failed", logger.MergeWithError(fields, err))
		code := string(errors.ErrCodeInternal)
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		if j.otel != nil {
			j.otel.RecordError(ctx, code, "ingest")
		}
	} else {
		if verr := res.Report.Validate(); verr != nil {
			log.WithError(verr).Warn("Step counts do not add up")
		}
		log.Info("Run finished", fields)
	}

	if j.otel != nil {
		j.otel.RecordReport(ctx, j.cfg.Job, res.Report)
		j.otel.RecordFiles(ctx, j.cfg.Job, len(res.Outputs))
	}
	if j.runs != nil {
		j.runs.Observe(j.cfg.Job, res.Status, res.Duration, len(res.Outputs), time.Now())
	}
	j.saveReport(ctx, log, res, err)
	observability.SetSpanAttribute(ctx, observability.AttrOutputs, len(res.Outputs))
	rc.End(ctx, span, res.Status, err)
	return res, err
}

func (j *Job) drain(ctx context.Context, log *logger.Logger, res *Result) error {
	chain, err := j.Chain()
	if err != nil {
		return err
	}
	src, err := j.locators(ctx)
	if err != nil {
		return err
	}
	stream := pipeline.Bind(src, chain)
	defer func() { res.Report = stream.Counts() }()
	defer stream.Close() //nolint:errcheck

	if j.steps != nil {
		j.steps.Register(j.cfg.Job, stream)
		defer j.steps.Unregister(j.cfg.Job)
	}

	for {
		path, ok, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		log.Info("Wrote output", logger.Fields(logger.FieldPath, path))
		res.Outputs = append(res.Outputs, path)
	}
}

// saveReport stores the run of ctx in redis. Failures are logged, not
// returned, so a redis outage never fails an otherwise good run.
func (j *Job) saveReport(ctx context.Context, log *logger.Logger, res *Result, runErr error) {
	rc := observability.RunContextFromContext(ctx)
	if j.reports == nil || rc == nil {
		return
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanReport)
	defer span.End()

	rec := &redis.RunRecord{
		Job:        rc.Job,
		RunID:      rc.RunID,
		Status:     res.Status,
		StartedAt:  rc.StartTime,
		FinishedAt: rc.StartTime.Add(res.Duration),
		Outputs:    res.Outputs,
		Steps:      res.Report,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := j.reports.Save(ctx, rec); err != nil {
		observability.SetSpanError(ctx, err)
		log.WithError(err).Warn("Could not save run report")
	}
}

// LastRun returns the stored record of the job's previous run.
func (j *Job) LastRun(ctx context.Context) (*redis.RunRecord, error) {
	if j.reports == nil {
		return nil, errors.InvalidConfig("redis", "run reports need redis")
	}
	return j.reports.Load(ctx, j.cfg.Job)
}

// Check pings the backends the job depends on.
func (j *Job) Check(ctx context.Context, version string) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(j.cfg.Name, version)
	sh.AddComponent(observability.Check(ctx, "storage", func(ctx context.Context) error {
		_, err := j.store.Exists(ctx, ".pipedata-health")
		return err
	}))
	if j.redis != nil {
		sh.AddComponent(observability.Check(ctx, "redis", j.redis.Ping))
	}
	return sh
}
