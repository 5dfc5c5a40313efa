package storage

import (
	"context"
	"io"
	"os"

	"github.com/kbukum/pipedata/errors"
)

// Object is a random-access view of a stored object, as archive/zip needs.
type Object struct {
	io.ReaderAt
	Size  int64
	close func() error
}

// Close releases the object and removes any spooled copy.
func (o *Object) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// OpenReaderAt downloads path and returns it with random access. Local
// files are used in place, other backends are spooled to a temporary file
// in tempDir ("" for os.TempDir) that is removed on Close.
func OpenReaderAt(ctx context.Context, s Storage, path, tempDir string) (*Object, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	if f, ok := rc.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, errors.SourceFailed(path, err)
		}
		return &Object{ReaderAt: f, Size: info.Size(), close: f.Close}, nil
	}
	defer rc.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(tempDir, "pipedata-*")
	if err != nil {
		return nil, errors.Internal(err)
	}
	cleanup := func() error {
		cerr := tmp.Close()
		if rerr := os.Remove(tmp.Name()); rerr != nil && cerr == nil {
			cerr = rerr
		}
		return cerr
	}
	size, err := io.Copy(tmp, rc)
	if err != nil {
		cleanup() //nolint:errcheck
		return nil, errors.SourceFailed(path, err)
	}
	return &Object{ReaderAt: tmp, Size: size, close: cleanup}, nil
}
