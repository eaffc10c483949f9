package face

import "container/heap"

// Clock is a deterministic virtual clock driving CallLater-style timers for
// SimFace. Real transports drive Face callbacks off a real event loop and
// real time; tests and the demo harness instead Advance a shared Clock so
// ChronoSync/FullPSync convergence scenarios run instantly and
// deterministically.
type Clock struct {
	now  int64
	seq  uint64
	heap timerHeap
}

// NewClock returns a Clock starting at virtual time 0.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current virtual time in milliseconds.
func (c *Clock) Now() int64 {
	return c.now
}

// After schedules fn to run delayMs from now (0 or negative runs on the next
// Advance). The returned Canceler detaches fn before it fires; calling it
// afterward is a no-op.
func (c *Clock) After(delayMs int64, fn func()) Canceler {
	if delayMs < 0 {
		delayMs = 0
	}
	entry := &timerEntry{at: c.now + delayMs, seq: c.seq, fn: fn}
	c.seq++
	heap.Push(&c.heap, entry)
	return func() { entry.canceled = true }
}

// Advance moves the clock forward by deltaMs, running every due timer in
// (at, insertion order) order, including new timers scheduled by timers that
// fire during this call.
func (c *Clock) Advance(deltaMs int64) {
	target := c.now + deltaMs
	for c.heap.Len() > 0 && c.heap[0].at <= target {
		entry := heap.Pop(&c.heap).(*timerEntry)
		c.now = entry.at
		if entry.canceled {
			continue
		}
		entry.fn()
	}
	if target > c.now {
		c.now = target
	}
}

// RunUntilIdle repeatedly advances the clock to the next scheduled timer
// until no timers remain, or it has run maxSteps timers (a runaway
// backstop for an engine that never stops rescheduling itself).
func (c *Clock) RunUntilIdle(maxSteps int) {
	for i := 0; i < maxSteps && c.heap.Len() > 0; i++ {
		next := c.heap[0].at
		c.Advance(next - c.now)
	}
}

type timerEntry struct {
	at       int64
	seq      uint64
	fn       func()
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
