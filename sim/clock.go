package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// pendingAction is a timestamped continuation waiting in the event queue.
type pendingAction struct {
	time float64 // virtual time in minutes
	seq  uint64  // schedule order, tie-breaker for equal timestamps
	fn   func()
}

// actionHeap implements heap.Interface and orders actions by timestamp.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type actionHeap []*pendingAction

func (h actionHeap) Len() int { return len(h) }

// Less orders by timestamp, then by schedule sequence so that
// equal-timestamp actions fire strictly in the order they were scheduled.
func (h actionHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h actionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *actionHeap) Push(x any) {
	*h = append(*h, x.(*pendingAction))
}

func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// Clock holds the virtual time and the queue of pending actions.
// Time advances only when Step pops the earliest action; it never moves
// backwards. An action executes synchronously to completion and may
// schedule further actions at the same or a later time.
type Clock struct {
	now     float64
	queue   actionHeap
	nextSeq uint64

	// Faults counts actions that panicked and were recovered.
	// A faulting action must not corrupt the queue or halt the clock.
	Faults int
}

// NewClock creates a clock at time zero with an empty queue.
func NewClock() *Clock {
	c := &Clock{queue: make(actionHeap, 0)}
	heap.Init(&c.queue)
	return c
}

// Now returns the current virtual time in minutes.
func (c *Clock) Now() float64 { return c.now }

// Pending returns the number of queued actions.
func (c *Clock) Pending() int { return c.queue.Len() }

// Schedule queues fn to run delay minutes from now.
// Negative delays are clamped to zero.
func (c *Clock) Schedule(delay float64, fn func()) {
	if delay < 0 {
		delay = 0
	}
	c.ScheduleAt(c.now+delay, fn)
}

// ScheduleAt queues fn to run at absolute virtual time t.
// Times in the past are clamped to the current time.
func (c *Clock) ScheduleAt(t float64, fn func()) {
	if t < c.now {
		t = c.now
	}
	c.nextSeq++
	heap.Push(&c.queue, &pendingAction{time: t, seq: c.nextSeq, fn: fn})
}

// Step pops and executes the single earliest pending action, advancing the
// clock to its timestamp. Returns false if the queue is empty.
func (c *Clock) Step() bool {
	if c.queue.Len() == 0 {
		return false
	}
	a := heap.Pop(&c.queue).(*pendingAction)
	c.now = a.time
	c.runIsolated(a.fn)
	return true
}

// runIsolated executes one action, recovering a panic so that a fault in
// one item's continuation cannot stop unrelated items' progress.
func (c *Clock) runIsolated(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.Faults++
			logrus.Errorf("[t=%09.3f] recovered fault in scheduled action: %v", c.now, r)
		}
	}()
	fn()
}
