package timing

import (
	"container/heap"
	"log"
	"time"
)

// VirtualScheduler is a Scheduler and Clock that only moves when told to.
// Advance walks the virtual clock forward and fires every trigger that
// becomes due, in time order, synchronously on the calling goroutine. It is
// meant for tests that need deterministic control over when ticks happen.
type VirtualScheduler struct {
	now   time.Time
	ticks tickHeap
}

// NewVirtualScheduler creates a VirtualScheduler with the clock at the zero
// time.
func NewVirtualScheduler() *VirtualScheduler {
	s := new(VirtualScheduler)
	s.ticks = make(tickHeap, 0)
	heap.Init(&s.ticks)

	return s
}

// Now returns the current virtual time.
func (s *VirtualScheduler) Now() time.Time {
	return s.now
}

// ScheduleRepeating registers a recurring trigger. The first firing is due
// one full period after the current virtual time.
func (s *VirtualScheduler) ScheduleRepeating(
	period time.Duration,
	fn func(now time.Time),
) Ticker {
	if period <= 0 {
		log.Panic("repeating period must be positive")
	}

	t := &virtualTicker{}
	heap.Push(&s.ticks, &pendingTick{
		due:    s.now.Add(period),
		period: period,
		fn:     fn,
		ticker: t,
	})

	return t
}

// Advance moves the virtual clock forward by d, firing all triggers that
// become due on the way. Triggers whose ticker has been stopped are dropped
// instead of being rescheduled.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.now.Add(d))
}

// AdvanceTo moves the virtual clock to t, firing all triggers due at or
// before t in time order.
func (s *VirtualScheduler) AdvanceTo(t time.Time) {
	for s.ticks.Len() > 0 {
		next := s.ticks[0]
		if next.due.After(t) {
			break
		}

		heap.Pop(&s.ticks)

		if next.ticker.stopped {
			continue
		}

		s.now = next.due
		next.fn(s.now)

		if !next.ticker.stopped {
			next.due = next.due.Add(next.period)
			heap.Push(&s.ticks, next)
		}
	}

	s.now = t
}

// ActiveTickers returns the number of triggers that are still scheduled to
// fire again.
func (s *VirtualScheduler) ActiveTickers() int {
	count := 0
	for _, t := range s.ticks {
		if !t.ticker.stopped {
			count++
		}
	}

	return count
}

type virtualTicker struct {
	stopped bool
}

// Stop cancels the trigger. Safe to call more than once.
func (t *virtualTicker) Stop() {
	t.stopped = true
}

type pendingTick struct {
	due    time.Time
	period time.Duration
	fn     func(now time.Time)
	ticker *virtualTicker
}

type tickHeap []*pendingTick

// Len returns the number of pending triggers.
func (h tickHeap) Len() int {
	return len(h)
}

// Less orders triggers by due time.
func (h tickHeap) Less(i, j int) bool {
	return h[i].due.Before(h[j].due)
}

// Swap changes the position of two pending triggers.
func (h tickHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds a pending trigger to the heap.
func (h *tickHeap) Push(x interface{}) {
	tick := x.(*pendingTick)
	*h = append(*h, tick)
}

// Pop removes and returns the next trigger to fire.
func (h *tickHeap) Pop() interface{} {
	old := *h
	n := len(old)
	tick := old[n-1]
	*h = old[0 : n-1]

	return tick
}
