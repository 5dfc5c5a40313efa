package redis

import (
	"context"
	"time"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/pipeline"
)

// RunRecord is the outcome of one ingest run.
type RunRecord struct {
	Job        string          `json:"job"`
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outputs    []string        `json:"outputs,omitempty"`
	Steps      pipeline.Report `json:"steps"`
}

// ReportStore keeps the latest RunRecord of each job.
type ReportStore struct {
	store *TypedStore[RunRecord]
	ttl   time.Duration
	log   *logger.Logger
}

// NewReportStore stores records under "<prefix>:<job>" expiring after ttl
// (0 keeps them forever).
func NewReportStore(client *Client, prefix string, ttl time.Duration) *ReportStore {
	return &ReportStore{
		store: NewTypedStore[RunRecord](client, prefix),
		ttl:   ttl,
		log:   client.log,
	}
}

// Save replaces the stored record of rec.Job.
func (s *ReportStore) Save(ctx context.Context, rec *RunRecord) error {
	if rec.Job == "" {
		return errors.MissingField("job")
	}
	if err := s.store.Save(ctx, rec.Job, rec, s.ttl); err != nil {
		return err
	}
	s.log.Debug("Saved run report", logger.Fields(
		logger.FieldJob, rec.Job,
		logger.FieldRunID, rec.RunID,
		logger.FieldStatus, rec.Status,
	))
	return nil
}

// Load returns the last record saved for job. A job that never ran, or
// whose record expired, is a NOT_FOUND error.
func (s *ReportStore) Load(ctx context.Context, job string) (*RunRecord, error) {
	rec, err := s.store.Load(ctx, job)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NotFound("run report", job)
	}
	return rec, nil
}
