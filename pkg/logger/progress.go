package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressReporter logs the progress of a fixed-size batch of work, at most
// once per interval and always on completion.
type ProgressReporter struct {
	mu          sync.Mutex
	total       int
	current     int
	failed      int
	description string
	interval    time.Duration
	startTime   time.Time
	lastUpdate  time.Time
	logger      *Logger
}

func NewProgressReporter(log *Logger, total int, description string) *ProgressReporter {
	if log == nil {
		log = GetLogger()
	}
	now := time.Now()
	return &ProgressReporter{
		total:       total,
		description: description,
		interval:    5 * time.Second,
		startTime:   now,
		lastUpdate:  now,
		logger:      log.WithField("component", "progress"),
	}
}

// Done records one finished item.
func (pr *ProgressReporter) Done(failed bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current++
	if failed {
		pr.failed++
	}

	now := time.Now()
	if now.Sub(pr.lastUpdate) >= pr.interval || pr.current >= pr.total {
		pr.report()
		pr.lastUpdate = now
	}
}

// Snapshot returns processed, failed and total counts.
func (pr *ProgressReporter) Snapshot() (current, failed, total int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.current, pr.failed, pr.total
}

// must be called with lock held
func (pr *ProgressReporter) report() {
	var percentage float64
	if pr.total > 0 {
		percentage = float64(pr.current) / float64(pr.total) * 100
	}
	elapsed := time.Since(pr.startTime)

	pr.logger.WithFields(map[string]interface{}{
		"current": pr.current,
		"failed":  pr.failed,
		"total":   pr.total,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Info(fmt.Sprintf("%s: %d/%d (%.1f%%)", pr.description, pr.current, pr.total, percentage))
}
