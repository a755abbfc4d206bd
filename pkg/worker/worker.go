package worker

import (
	"context"
	"fmt"
	"time"

	"keyword-agent/pkg/logger"
)

type worker struct {
	id      int
	queue   <-chan Task
	timeout time.Duration
	log     *logger.Logger
}

func newWorker(id int, queue <-chan Task, timeout time.Duration, log *logger.Logger) *worker {
	return &worker{
		id:      id,
		queue:   queue,
		timeout: timeout,
		log:     log.WithField("worker_id", id),
	}
}

// run drains the queue until it is closed. Tasks dequeued after ctx is done
// are not executed.
func (w *worker) run(ctx context.Context, metrics *PoolMetrics) {
	for task := range w.queue {
		if err := ctx.Err(); err != nil {
			metrics.TasksFailed.Add(1)
			w.finish(task, Result{TaskID: task.ID, Error: err})
			continue
		}
		w.process(ctx, task, metrics)
	}
}

func (w *worker) process(ctx context.Context, task Task, metrics *PoolMetrics) {
	timeout := task.Timeout
	if timeout == 0 {
		timeout = w.timeout
	}
	taskCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.WithFields(map[string]interface{}{
					"task_id": task.ID,
					"panic":   r,
				}).Error("Task panicked")
				err = &PanicError{Value: r}
			}
		}()
		err = task.Fn(taskCtx)
	}()
	duration := time.Since(start)

	if err != nil {
		metrics.TasksFailed.Add(1)
		w.log.WithFields(map[string]interface{}{
			"task_id":  task.ID,
			"duration": duration,
			"error":    err.Error(),
		}).Debug("Task completed with error")
	} else {
		metrics.TasksCompleted.Add(1)
	}
	metrics.RecordTaskDuration(duration)

	w.finish(task, Result{TaskID: task.ID, Error: err, Duration: duration})
}

func (w *worker) finish(task Task, result Result) {
	if task.Done != nil {
		task.Done(result)
	}
}

// PanicError wraps a panic value as an error
type PanicError struct {
	Value interface{}
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.Value)
}
