// Package files opens archives from storage and streams their members.
package files

import (
	"archive/zip"
	"context"
	"io"
	"time"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/pipeline"
	"github.com/kbukum/pipedata/resilience"
	"github.com/kbukum/pipedata/storage"
)

// File is one archive member. Contents is readable until the stage that
// produced it is advanced again; advancing closes it.
type File struct {
	Name     string
	Archive  string
	Contents io.ReadCloser
}

// Read reads from Contents, so a *File can feed records.CSV and friends.
func (f *File) Read(p []byte) (int, error) { return f.Contents.Read(p) }

// String returns "archive!member".
func (f *File) String() string { return f.Archive + "!" + f.Name }

// Option configures Zipped.
type Option func(*zipOptions)

type zipOptions struct {
	name    string
	retry   resilience.RetryConfig
	tempDir string
	dirs    bool
	log     *logger.Logger
}

// WithName overrides the step name, "zipped" by default.
func WithName(name string) Option {
	return func(o *zipOptions) { o.name = name }
}

// WithRetry sets how opening an archive is retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *zipOptions) { o.retry = cfg }
}

// WithTempDir sets where remote archives are spooled.
func WithTempDir(dir string) Option {
	return func(o *zipOptions) { o.tempDir = dir }
}

// WithDirectories also yields directory entries, with empty contents.
func WithDirectories(include bool) Option {
	return func(o *zipOptions) { o.dirs = include }
}

// WithLogger sets the logger used to report archives and members.
func WithLogger(l *logger.Logger) Option {
	return func(o *zipOptions) { o.log = l }
}

// Zipped is a step from archive locators (keys in store) to the members of
// each archive, in archive order. A missing archive is a NOT_FOUND error;
// transient storage errors are retried before they surface.
func Zipped(store storage.Storage, opts ...Option) *pipeline.Step[string, *File] {
	o := zipOptions{name: "zipped", retry: resilience.DefaultRetryConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(logger.ComponentFiles)
	}
	o.log = o.log.WithStep(o.name)
	return pipeline.NewStep(o.name, func(in pipeline.Iterator[string]) pipeline.Iterator[*File] {
		return &zipIter{source: in, store: store, opts: o}
	})
}

type zipIter struct {
	source pipeline.Iterator[string]
	store  storage.Storage
	opts   zipOptions

	locator string
	archive *storage.Object
	members []*zip.File
	index   int
	member  io.ReadCloser
}

func (it *zipIter) Next(ctx context.Context) (*File, bool, error) {
	if err := it.closeMember(); err != nil {
		return nil, false, err
	}
	for {
		for it.index < len(it.members) {
			zf := it.members[it.index]
			it.index++
			if zf.FileInfo().IsDir() && !it.opts.dirs {
				continue
			}
			it.opts.log.Debug("Reading member", logger.Fields(
				logger.FieldArchive, it.locator,
				logger.FieldMember, zf.Name,
			))
			rc, err := zf.Open()
			if err != nil {
				return nil, false, errors.InvalidInput(it.locator, "open member "+zf.Name+": "+err.Error()).WithCause(err)
			}
			it.member = rc
			return &File{Name: zf.Name, Archive: it.locator, Contents: rc}, true, nil
		}
		if err := it.closeArchive(); err != nil {
			return nil, false, err
		}

		locator, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if err := it.openArchive(ctx, locator); err != nil {
			return nil, false, err
		}
	}
}

func (it *zipIter) openArchive(ctx context.Context, locator string) error {
	log := it.opts.log.WithFields(logger.Fields(logger.FieldArchive, locator))
	log.Info("Opening archive")

	retry := it.opts.retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.WithError(err).Warn("Retrying archive open", logger.Fields("attempt", attempt, "backoff", backoff.String()))
	}
	obj, err := resilience.Retry(ctx, retry, func(ctx context.Context) (*storage.Object, error) {
		return storage.OpenReaderAt(ctx, it.store, locator, it.opts.tempDir)
	})
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(obj, obj.Size)
	if err != nil {
		obj.Close() //nolint:errcheck
		return errors.InvalidInput(locator, "not a zip archive: "+err.Error()).WithCause(err)
	}
	log.Info("Found members in archive", logger.Fields("members", len(zr.File)))

	it.locator = locator
	it.archive = obj
	it.members = zr.File
	it.index = 0
	return nil
}

func (it *zipIter) closeMember() error {
	if it.member == nil {
		return nil
	}
	err := it.member.Close()
	it.member = nil
	if err != nil {
		return errors.SourceFailed(it.locator, err)
	}
	return nil
}

func (it *zipIter) closeArchive() error {
	it.members = nil
	it.index = 0
	if it.archive == nil {
		return nil
	}
	err := it.archive.Close()
	it.archive = nil
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (it *zipIter) Close() error {
	memberErr := it.closeMember()
	archiveErr := it.closeArchive()
	sourceErr := it.source.Close()
	for _, err := range []error{memberErr, archiveErr, sourceErr} {
		if err != nil {
			return err
		}
	}
	return nil
}
