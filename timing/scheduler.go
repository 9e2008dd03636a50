package timing

import (
	"log"
	"sync"
	"time"
)

// A Ticker is the cancellation handle of a recurring trigger. Stop prevents
// any future firing. Stopping a ticker that has already been stopped, or one
// whose last firing is in flight, is a no-op.
type Ticker interface {
	Stop()
}

// An Executor runs functions one after another. All functions posted to the
// same Executor are serialized into a single stream of execution.
type Executor interface {
	Execute(fn func())
}

// A Scheduler can deliver a recurring signal at a fixed period. The first
// firing happens one full period after scheduling, never immediately. The
// callback is delivered into the Executor the scheduler was built with, so
// it never runs concurrently with other work on that Executor.
type Scheduler interface {
	ScheduleRepeating(period time.Duration, fn func(now time.Time)) Ticker
}

// RealScheduler delivers recurring signals in wall-clock time. Each
// scheduled trigger owns a goroutine that posts the callback into the
// executor every period.
type RealScheduler struct {
	clock Clock
	exec  Executor
}

// NewRealScheduler creates a scheduler that fires in wall-clock time and
// posts callbacks into exec.
func NewRealScheduler(clock Clock, exec Executor) *RealScheduler {
	s := new(RealScheduler)
	s.clock = clock
	s.exec = exec

	return s
}

// ScheduleRepeating starts a recurring trigger with the given period.
func (s *RealScheduler) ScheduleRepeating(
	period time.Duration,
	fn func(now time.Time),
) Ticker {
	if period <= 0 {
		log.Panic("repeating period must be positive")
	}

	t := &realTicker{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				s.exec.Execute(func() {
					fn(s.clock.Now())
				})
			}
		}
	}()

	return t
}

type realTicker struct {
	once sync.Once
	stop chan struct{}
}

// Stop cancels the trigger. Safe to call more than once.
func (t *realTicker) Stop() {
	t.once.Do(func() {
		close(t.stop)
	})
}
