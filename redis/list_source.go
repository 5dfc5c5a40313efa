package redis

import (
	"context"

	"github.com/kbukum/pipedata/pipeline"
)

// ListSource returns an iterator that pops values off the head of the list
// at key until the list is empty. Each value is removed as it is delivered,
// so a value is seen by exactly one consumer. Close leaves the remaining
// values in place.
func ListSource(client *Client, key string) pipeline.Iterator[string] {
	return &listIter{client: client, key: key}
}

type listIter struct {
	client *Client
	key    string
	done   bool
}

func (it *listIter) Next(ctx context.Context) (string, bool, error) {
	if it.done {
		return "", false, nil
	}
	v, ok, err := it.client.LPop(ctx, it.key)
	if err != nil {
		return "", false, err
	}
	if !ok {
		it.done = true
		return "", false, nil
	}
	return v, true, nil
}

func (it *listIter) Close() error {
	it.done = true
	return nil
}
