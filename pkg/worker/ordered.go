package worker

import (
	"context"
	"strconv"
)

// MapOrdered applies fn to every item through a pool and returns results at
// the index of their input, regardless of completion order. errs[i] is set
// when item i failed, panicked or was never run because ctx ended.
func MapOrdered[T, R any](ctx context.Context, config PoolConfig, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, []error, MetricsSnapshot) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs, MetricsSnapshot{}
	}
	if config.Workers > len(items) {
		config.Workers = len(items)
	}

	pool := NewPool(config)
	pool.Start(ctx)

	for i, item := range items {
		err := pool.Submit(ctx, Task{
			ID: strconv.Itoa(i),
			Fn: func(taskCtx context.Context) error {
				r, err := fn(taskCtx, i, item)
				results[i] = r
				return err
			},
			Done: func(res Result) {
				errs[i] = res.Error
			},
		})
		if err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break
		}
	}

	pool.Close()
	return results, errs, pool.Metrics()
}
