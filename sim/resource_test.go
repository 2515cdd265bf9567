package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_AcquireBelowCapacityRunsImmediately(t *testing.T) {
	r := NewResource("cutter", 2, NewClock())

	ran := 0
	r.Acquire(func() { ran++ })
	r.Acquire(func() { ran++ })

	assert.Equal(t, 2, ran)
	assert.Equal(t, 2, r.InUse())
	assert.Equal(t, 0, r.QueueLen())
	assert.Equal(t, 1.0, r.Utilization())
}

func TestResource_WaitersServedFIFO(t *testing.T) {
	r := NewResource("robot", 1, NewClock())
	var order []string

	r.Acquire(func() { order = append(order, "first") })
	r.Acquire(func() { order = append(order, "second") })
	r.Acquire(func() { order = append(order, "third") })

	require.Equal(t, []string{"first"}, order)
	require.Equal(t, 2, r.QueueLen())

	r.Release()
	assert.Equal(t, []string{"first", "second"}, order)
	r.Release()
	assert.Equal(t, []string{"first", "second", "third"}, order)

	// hand-offs kept the unit in use throughout
	assert.Equal(t, 1, r.InUse())
	r.Release()
	assert.Equal(t, 0, r.InUse())
}

func TestResource_HandOffKeepsUnitInUse(t *testing.T) {
	r := NewResource("packer", 1, NewClock())

	r.Acquire(func() {})
	resumed := false
	r.Acquire(func() {
		resumed = true
		// the waiter observes the unit already held on resume
		assert.Equal(t, 1, r.InUse())
	})

	r.Release()
	assert.True(t, resumed)
	assert.Equal(t, 1, r.InUse(), "release with a queued waiter must not idle the unit")
}

func TestResource_WaitQueueOnlyWhenSaturated(t *testing.T) {
	r := NewResource("heater", 2, NewClock())

	r.Acquire(func() {})
	assert.Equal(t, 0, r.QueueLen())
	r.Acquire(func() {})
	assert.Equal(t, 0, r.QueueLen())
	r.Acquire(func() {})
	assert.Equal(t, 1, r.QueueLen())
	assert.Equal(t, r.Capacity(), r.InUse(), "waiters imply inUse == capacity")
}

func TestResource_ReleaseWithoutAcquirePanics(t *testing.T) {
	r := NewResource("cutter", 1, NewClock())
	assert.Panics(t, func() { r.Release() })
}

func TestResource_AverageUtilization(t *testing.T) {
	clock := NewClock()
	r := NewResource("robot", 1, clock)

	// held from t=0; over a 10-minute window that is full utilization
	r.Acquire(func() {})
	assert.InDelta(t, 1.0, r.AverageUtilization(10), 1e-12)

	// released at t=4 (advance the clock via a scheduled action)
	clock.ScheduleAt(4, func() { r.Release() })
	clock.Step()
	assert.InDelta(t, 0.4, r.AverageUtilization(10), 1e-12)
}
