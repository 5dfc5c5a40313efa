package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
)

// Runner is what a Scheduler runs; *Job implements it.
type Runner interface {
	Name() string
	Run(ctx context.Context) (*Result, error)
}

// Scheduler runs a job on a cron schedule. A run that is still going when
// the next one is due makes that one skip.
type Scheduler struct {
	job   Runner
	spec  string
	log   *logger.Logger
	cron  *cron.Cron
	entry cron.EntryID

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec, a five-field cron expression or a descriptor
// such as "@hourly" or "@every 10m".
func NewScheduler(job Runner, spec string, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Get(logger.ComponentScheduler)
	} else {
		log = log.WithComponent(logger.ComponentScheduler)
	}
	log = log.WithFields(logger.Fields(logger.FieldJob, job.Name()))
	cl := cronLogger{log}

	s := &Scheduler{job: job, spec: spec, log: log}
	s.cron = cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	entry, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, errors.InvalidConfig("schedule", err.Error()).WithCause(err)
	}
	s.entry = entry
	return s, nil
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	// Run logs its own outcome.
	s.job.Run(ctx) //nolint:errcheck
	s.log.Debug("Next run", logger.Fields("at", s.Next().Format(time.RFC3339)))
}

// Start begins scheduling. Runs receive a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info("Scheduler started", logger.Fields("schedule", s.spec, "next", s.Next().Format(time.RFC3339)))
}

// Stop cancels a run in progress and waits for it to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Timeout("scheduler stop").WithCause(ctx.Err())
	}
}

// Run schedules until ctx is cancelled, then stops within grace.
func (s *Scheduler) Run(ctx context.Context, grace time.Duration) error {
	s.Start(ctx)
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.Stop(stopCtx)
}

// Next returns when the job runs next.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, logger.Fields(keysAndValues...))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).Error(msg, logger.Fields(keysAndValues...))
}
