package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baselineConfig is Scenario A: the failure-free baseline line.
func baselineConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.SimHours = 1
	cfg.ArrivalMean = 1.8
	cfg.Cut.BaseTime = 1.2
	cfg.Cell.BaseTime = 2.5
	cfg.Pack.BaseTime = 1.0
	cfg.FailureMTBF = 0 // failures disabled
	return cfg
}

// driveLine builds a standalone engine and steps it to the horizon,
// invoking onStep (if non-nil) after every executed action.
func driveLine(cfg Config, onStep func(l *ProductionLine)) (*ProductionLine, *MetricsAccumulator, *Clock) {
	clock := NewClock()
	rng := NewRandomStream(cfg.Seed)
	metrics := NewMetricsAccumulator()
	line := NewProductionLine(cfg, clock, rng, metrics)
	line.ArmGenerators()

	horizon := cfg.HorizonMinutes()
	for clock.Now() < horizon {
		if !clock.Step() {
			break
		}
		if onStep != nil {
			onStep(line)
		}
	}
	metrics.Finalize(clock.Now())
	return line, metrics, clock
}

func TestLine_ScenarioA_BaselineReproducible(t *testing.T) {
	line1, m1, _ := driveLine(baselineConfig(), nil)
	line2, m2, _ := driveLine(baselineConfig(), nil)

	require.Greater(t, m1.Completed, 0, "a one-hour baseline run must complete items")
	assert.Equal(t, m1.Completed, m2.Completed, "same seed must reproduce the golden completed count")
	assert.Equal(t, line1.Snapshot(false), line2.Snapshot(false), "terminal snapshots must be bit-for-bit identical")
	assert.Equal(t, m1.AverageCycleTime(), m2.AverageCycleTime())
	assert.Equal(t, m1.AverageWIP(), m2.AverageWIP())
}

func TestLine_InvariantsHoldEveryStep(t *testing.T) {
	cfg := baselineConfig()
	cfg.SimHours = 2
	cfg.FailureMTBF = 20
	cfg.FailureMTTR = 3

	driveLine(cfg, func(l *ProductionLine) {
		for _, r := range []*Resource{l.Cutter, l.Robot, l.Heater, l.Packer} {
			if r.InUse() < 0 || r.InUse() > r.Capacity() {
				t.Fatalf("%s: inUse %d outside [0, %d]", r.Name(), r.InUse(), r.Capacity())
			}
			if r.QueueLen() > 0 && r.InUse() != r.Capacity() {
				t.Fatalf("%s: waiters queued while below capacity", r.Name())
			}
		}
		for _, b := range []*BoundedBuffer{l.Buffer1, l.Buffer2} {
			if b.Items() < 0 || b.Items() > b.Capacity() {
				t.Fatalf("%s: items %d outside [0, %d]", b.Name(), b.Items(), b.Capacity())
			}
			if b.PutQueueLen() > 0 && (b.Items() != b.Capacity() || b.GetQueueLen() > 0) {
				t.Fatalf("%s: producers blocked while not full", b.Name())
			}
			if b.GetQueueLen() > 0 && b.Items() != 0 {
				t.Fatalf("%s: consumers blocked while non-empty", b.Name())
			}
		}
	})
}

func TestLine_LittlesLaw(t *testing.T) {
	// Failure-free steady run, long enough for edge effects to wash out.
	// The arrival rate is set below the cell stage's service rate so the
	// line is stable; the baseline scenario itself is overloaded.
	cfg := baselineConfig()
	cfg.SimHours = 100
	cfg.ArrivalMean = 4.0

	_, m, _ := driveLine(cfg, nil)
	require.Greater(t, m.Completed, 1000)

	avgWIP := m.AverageWIP()
	throughput := float64(m.Completed) / m.TotalTime() // items per minute
	avgCycle := m.AverageCycleTime()

	relErr := math.Abs(avgWIP-throughput*avgCycle) / avgWIP
	assert.Less(t, relErr, 0.05, "Little's law: L=%.3f, λW=%.3f", avgWIP, throughput*avgCycle)
}

func TestLine_ScenarioB_UpstreamBackPressure(t *testing.T) {
	// A glacial cell stage starves downstream and backs up the Cutter.
	cfg := baselineConfig()
	cfg.Cell.BaseTime = 100

	buffer1Filled := false
	cutterQueued := false
	driveLine(cfg, func(l *ProductionLine) {
		if l.Buffer1.Utilization() == 1.0 {
			buffer1Filled = true
		}
		if l.Cutter.QueueLen() > 0 {
			cutterQueued = true
		}
		if l.Buffer2.Items() != 0 {
			t.Fatalf("buffer2 received an item at t=%.3f despite a starved pack stage", l.clock.Now())
		}
	})

	assert.True(t, buffer1Filled, "buffer1 must reach full utilization")
	assert.True(t, cutterQueued, "arrivals must back up behind the held Cutter")
}

func TestLine_FailureBackPressure(t *testing.T) {
	// With a single-unit Robot, a failure occupies the whole station for
	// the repair interval even when no work item is queued.
	cfg := baselineConfig()
	cfg.SimHours = 4
	cfg.RobotCapacity = 1
	cfg.FailureMTBF = 10
	cfg.FailureMTTR = 5

	observedFailure := false
	line, _, _ := driveLine(cfg, func(l *ProductionLine) {
		if l.Failure.IsFailed {
			observedFailure = true
			if l.Robot.InUse() != l.Robot.Capacity() {
				t.Fatalf("robot failed but inUse=%d, want %d", l.Robot.InUse(), l.Robot.Capacity())
			}
		}
	})

	require.True(t, observedFailure, "short MTBF must produce at least one observed failure")
	assert.Greater(t, line.Failure.FailureCount, 0)
	assert.Greater(t, line.Failure.LastFailureAt, 0.0)
}

func TestLine_FailureStateBookkeeping(t *testing.T) {
	cfg := baselineConfig()
	cfg.SimHours = 8
	cfg.FailureMTBF = 15
	cfg.FailureMTTR = 2

	line, _, clock := driveLine(cfg, nil)

	assert.Greater(t, line.Failure.FailureCount, 1)
	assert.GreaterOrEqual(t, line.Failure.NextFailureAt, line.Failure.LastFailureAt,
		"next estimated failure never precedes the last observed one")
	assert.LessOrEqual(t, line.Failure.LastFailureAt, clock.Now())
}

func TestLine_ArmGeneratorsIdempotent(t *testing.T) {
	cfg := baselineConfig()

	run := func(extraArm bool) int {
		clock := NewClock()
		line := NewProductionLine(cfg, clock, NewRandomStream(cfg.Seed), NewMetricsAccumulator())
		line.ArmGenerators()
		if extraArm {
			line.ArmGenerators() // must not register duplicate generators
		}
		for clock.Now() < cfg.HorizonMinutes() {
			if !clock.Step() {
				break
			}
		}
		return line.Snapshot(false).Metrics.Completed
	}

	assert.Equal(t, run(false), run(true))
}
