package ingest

import (
	"context"
	"strings"

	"github.com/kbukum/pipedata/pipeline"
	"github.com/kbukum/pipedata/redis"
	"github.com/kbukum/pipedata/storage"
)

// locators returns the archive locators of one run.
func (j *Job) locators(ctx context.Context) (pipeline.Iterator[string], error) {
	src := j.cfg.Source
	switch {
	case src.Queue != "":
		return redis.ListSource(j.redis, src.Queue), nil
	case src.Prefix != "":
		return listArchives(ctx, j.store, src.Prefix)
	default:
		return pipeline.FromSlice(src.Archives), nil
	}
}

// listArchives lists the .zip objects under prefix, in path order.
func listArchives(ctx context.Context, store storage.Storage, prefix string) (pipeline.Iterator[string], error) {
	infos, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(strings.ToLower(info.Path), ".zip") {
			paths = append(paths, info.Path)
		}
	}
	return pipeline.FromSlice(paths), nil
}
