// Package progress tracks the row-by-row advancement of a long evaluation
// as an observable side channel: status, completed fraction and log lines.
package progress

import (
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Tracker struct {
	mu        sync.RWMutex
	status    Status
	total     int
	done      int
	logs      []string
	startTime time.Time
	endTime   *time.Time
	err       error
}

func NewTracker(total int) *Tracker {
	return &Tracker{
		status: StatusPending,
		total:  total,
		logs:   []string{},
	}
}

func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusRunning
	t.startTime = time.Now()
}

// Advance marks one unit of work done and records a log line for it.
func (t *Tracker) Advance(description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.appendLog(fmt.Sprintf("[%d/%d] %s", t.done, t.total, description))
}

func (t *Tracker) Logf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLog(fmt.Sprintf(format, args...))
}

func (t *Tracker) appendLog(message string) {
	timestamp := time.Now().Format("15:04:05")
	t.logs = append(t.logs, fmt.Sprintf("[%s] %s", timestamp, message))
}

func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusCompleted
	now := time.Now()
	t.endTime = &now
}

func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusFailed
	t.err = err
	now := time.Now()
	t.endTime = &now
}

func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Progress returns the completed fraction in [0, 1].
func (t *Tracker) Progress() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.done) / float64(t.total)
}

func (t *Tracker) Logs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	logs := make([]string, len(t.logs))
	copy(logs, t.logs)
	return logs
}

func (t *Tracker) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startTime.IsZero() {
		return 0
	}
	if t.endTime != nil {
		return t.endTime.Sub(t.startTime)
	}
	return time.Since(t.startTime)
}
