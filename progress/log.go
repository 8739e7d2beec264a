package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogReporter streams progress as structured log lines, one per interval,
// for runs without a terminal attached.
type LogReporter struct {
	mu         sync.Mutex
	logger     *zap.Logger
	total      int
	count      int
	start      time.Time
	lastLog    time.Time
	interval   time.Duration
	finishedAt time.Time
}

func NewLogReporter(logger *zap.Logger, total int, interval time.Duration) *LogReporter {
	if logger == nil {
		logger = zap.L()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &LogReporter{
		logger:   logger,
		total:    total,
		interval: interval,
		start:    time.Now(),
	}
}

func (rep *LogReporter) Advance(n int) {
	if n <= 0 {
		return
	}
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if !rep.finishedAt.IsZero() {
		return
	}
	rep.count += n
	now := time.Now()
	if now.Sub(rep.lastLog) < rep.interval {
		return
	}
	rep.lastLog = now
	rep.logger.Info("batch progress",
		zap.Int("completed", rep.count),
		zap.Int("total", rep.total),
		zap.Duration("elapsed", now.Sub(rep.start)),
	)
}

func (rep *LogReporter) Finish() {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if !rep.finishedAt.IsZero() {
		return
	}
	rep.finishedAt = time.Now()
	rep.logger.Info("batch finished",
		zap.Int("completed", rep.count),
		zap.Int("total", rep.total),
		zap.Duration("elapsed", rep.finishedAt.Sub(rep.start)),
	)
}

func (rep *LogReporter) Count() int {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	return rep.count
}

func (rep *LogReporter) Elapsed() time.Duration {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if !rep.finishedAt.IsZero() {
		return rep.finishedAt.Sub(rep.start)
	}
	return time.Since(rep.start)
}
