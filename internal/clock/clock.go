// Package clock provides the wall-clock drivers used by study sessions and
// background jobs.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

var ErrStarted = errors.New("clock: already started")

// Ticker calls a function once per second on a gocron scheduler. It
// implements session.Clock.
type Ticker struct {
	mu        sync.Mutex
	scheduler *gocron.Scheduler
	interval  time.Duration
	stopOnce  sync.Once
}

// NewTicker returns a stopped Ticker.
func NewTicker() *Ticker {
	return &Ticker{interval: time.Second}
}

// Start schedules tick every second, starting one interval from now.
func (t *Ticker) Start(tick func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scheduler != nil {
		return ErrStarted
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(t.interval).WaitForSchedule().Do(tick); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	s.StartAsync()
	t.scheduler = s
	return nil
}

// Stop halts the scheduler. It may be called from inside tick and more than
// once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	s := t.scheduler
	t.mu.Unlock()
	if s == nil {
		return
	}
	// gocron waits for running jobs, so a stop issued by the job itself must
	// not block on it.
	t.stopOnce.Do(func() { go s.Stop() })
}
