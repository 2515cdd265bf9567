package sim

import "github.com/sirupsen/logrus"

// Resource models an exclusive, non-preemptive server station (Cutter,
// Robot, Heater, Packer) with FIFO-fair capacity. A process that cannot
// acquire a unit suspends as an enqueued continuation; it is resumed by the
// releasing process without an intervening idle tick.
//
// Invariant: the wait queue is non-empty only when inUse == capacity.
type Resource struct {
	name     string
	capacity int
	inUse    int
	waiters  []func()

	// time-weighted busy integral for average-utilization reporting
	clock        *Clock
	busyIntegral float64
	lastChange   float64
}

// NewResource creates a resource with the given fixed capacity.
func NewResource(name string, capacity int, clock *Clock) *Resource {
	return &Resource{name: name, capacity: capacity, clock: clock}
}

func (r *Resource) Name() string  { return r.name }
func (r *Resource) Capacity() int { return r.capacity }
func (r *Resource) InUse() int    { return r.inUse }

// QueueLen returns the number of suspended continuations waiting for a unit.
func (r *Resource) QueueLen() int { return len(r.waiters) }

// Utilization is the instantaneous inUse/capacity ratio.
func (r *Resource) Utilization() float64 {
	return float64(r.inUse) / float64(r.capacity)
}

// Acquire grants a unit and invokes fn immediately if capacity is
// available; otherwise fn joins the FIFO wait queue.
func (r *Resource) Acquire(fn func()) {
	if r.inUse < r.capacity {
		r.setInUse(r.inUse + 1)
		fn()
		return
	}
	logrus.Debugf("[t=%09.3f] %s: at capacity, queueing waiter (depth %d)", r.clock.Now(), r.name, len(r.waiters)+1)
	r.waiters = append(r.waiters, fn)
}

// Release returns a unit. If a waiter is queued, the unit is handed off
// directly: the first waiter is dequeued and invoked with inUse unchanged.
func (r *Resource) Release() {
	if r.inUse <= 0 {
		panic("resource " + r.name + ": release without acquire")
	}
	if len(r.waiters) > 0 {
		next := r.waiters[0]
		r.waiters = r.waiters[1:]
		next()
		return
	}
	r.setInUse(r.inUse - 1)
}

// setInUse records the time-weighted busy integral before changing inUse.
func (r *Resource) setInUse(n int) {
	now := r.clock.Now()
	r.busyIntegral += float64(r.inUse) * (now - r.lastChange)
	r.lastChange = now
	r.inUse = n
}

// AverageUtilization returns the time-weighted mean of inUse/capacity over
// [0, totalTime]. Zero totalTime yields zero.
func (r *Resource) AverageUtilization(totalTime float64) float64 {
	if totalTime <= 0 {
		return 0
	}
	integral := r.busyIntegral + float64(r.inUse)*(totalTime-r.lastChange)
	return integral / (totalTime * float64(r.capacity))
}

// RobotFailureState tracks the failure/repair sub-process attached to the
// Robot resource only.
type RobotFailureState struct {
	IsFailed      bool
	FailureCount  int
	LastFailureAt float64
	NextFailureAt float64 // estimated, set when the next failure is scheduled
}
