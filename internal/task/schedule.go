package task

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// delayedSchedule fires first after delay, then every period. The first
// call to Next fixes the start time.
type delayedSchedule struct {
	delay  time.Duration
	period cron.Schedule

	mu      sync.Mutex
	started bool
}

func newDelayedSchedule(delay, period time.Duration) *delayedSchedule {
	return &delayedSchedule{delay: delay, period: cron.Every(period)}
}

// Next implements cron.Schedule.
func (s *delayedSchedule) Next(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		if s.delay > 0 {
			return t.Add(s.delay)
		}
	}
	return s.period.Next(t)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

// Info implements cron.Logger. Cron reports every wake-up at info, so these
// go to debug.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

var _ cron.Logger = cronLogger{}
