package worker

import (
	"sync/atomic"
	"time"
)

// PoolMetrics tracks worker pool counters
type PoolMetrics struct {
	TasksSubmitted atomic.Uint64
	TasksCompleted atomic.Uint64
	TasksFailed    atomic.Uint64
	TasksRejected  atomic.Uint64

	TotalDuration atomic.Uint64 // in nanoseconds
	MaxDuration   atomic.Uint64 // in nanoseconds

	StartTime time.Time
}

func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{StartTime: time.Now()}
}

// RecordTaskDuration records task execution duration
func (pm *PoolMetrics) RecordTaskDuration(duration time.Duration) {
	nanos := uint64(duration.Nanoseconds())
	pm.TotalDuration.Add(nanos)

	for {
		current := pm.MaxDuration.Load()
		if nanos <= current || pm.MaxDuration.CompareAndSwap(current, nanos) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (pm *PoolMetrics) Snapshot() MetricsSnapshot {
	completed := pm.TasksCompleted.Load()
	failed := pm.TasksFailed.Load()

	var avg time.Duration
	if finished := completed + failed; finished > 0 {
		avg = time.Duration(pm.TotalDuration.Load() / finished)
	}

	return MetricsSnapshot{
		TasksSubmitted:  pm.TasksSubmitted.Load(),
		TasksCompleted:  completed,
		TasksFailed:     failed,
		TasksRejected:   pm.TasksRejected.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(pm.MaxDuration.Load()),
		Uptime:          time.Since(pm.StartTime),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TasksSubmitted  uint64        `json:"tasks_submitted"`
	TasksCompleted  uint64        `json:"tasks_completed"`
	TasksFailed     uint64        `json:"tasks_failed"`
	TasksRejected   uint64        `json:"tasks_rejected"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	Uptime          time.Duration `json:"uptime"`
}
