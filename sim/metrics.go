package sim

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// MetricsAccumulator aggregates statistics about one simulation run:
// completed count, a time-weighted WIP integral, and per-item cycle times.
type MetricsAccumulator struct {
	Completed int // items that exited the line

	wip         int     // items in flight right now
	wipIntegral float64 // ∫ WIP dt, updated on every WIP change
	lastChange  float64

	cycleTimes []float64 // finish − start, per completed item

	finalized bool
	totalTime float64
}

// NewMetricsAccumulator creates an empty accumulator at time zero.
func NewMetricsAccumulator() *MetricsAccumulator {
	return &MetricsAccumulator{}
}

// WIP returns the current number of in-flight items.
func (m *MetricsAccumulator) WIP() int { return m.wip }

// accumulate closes the open interval [lastChange, now] at the current WIP.
func (m *MetricsAccumulator) accumulate(now float64) {
	m.wipIntegral += float64(m.wip) * (now - m.lastChange)
	m.lastChange = now
}

// ItemStarted records an item entering the line at virtual time now.
func (m *MetricsAccumulator) ItemStarted(now float64) {
	m.accumulate(now)
	m.wip++
}

// ItemFinished records item exiting the line at virtual time now,
// sampling its cycle time.
func (m *MetricsAccumulator) ItemFinished(now float64, item *Item) {
	m.accumulate(now)
	m.wip--
	m.Completed++
	m.cycleTimes = append(m.cycleTimes, now-item.EnteredAt)
}

// Finalize closes the last open WIP interval at totalTime. Must be called
// once, when the run ends.
func (m *MetricsAccumulator) Finalize(totalTime float64) {
	if m.finalized {
		return
	}
	m.accumulate(totalTime)
	m.totalTime = totalTime
	m.finalized = true
}

// TotalTime returns the finalized run length in minutes (0 before Finalize).
func (m *MetricsAccumulator) TotalTime() float64 { return m.totalTime }

// AverageWIP returns the time-weighted mean WIP over the finalized run.
func (m *MetricsAccumulator) AverageWIP() float64 {
	if m.totalTime <= 0 {
		return 0
	}
	return m.wipIntegral / m.totalTime
}

// AverageCycleTime returns the arithmetic mean of sampled cycle times.
func (m *MetricsAccumulator) AverageCycleTime() float64 {
	if len(m.cycleTimes) == 0 {
		return 0
	}
	return stat.Mean(m.cycleTimes, nil)
}

// CycleTimeStdDev returns the sample standard deviation of cycle times.
func (m *MetricsAccumulator) CycleTimeStdDev() float64 {
	if len(m.cycleTimes) < 2 {
		return 0
	}
	return stat.StdDev(m.cycleTimes, nil)
}

// ThroughputPerHour returns completed items per simulated hour.
func (m *MetricsAccumulator) ThroughputPerHour() float64 {
	if m.totalTime <= 0 {
		return 0
	}
	return float64(m.Completed) / (m.totalTime / 60.0)
}

// Print displays aggregated metrics at the end of the simulation.
func (m *MetricsAccumulator) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Completed Items      : %d\n", m.Completed)
	fmt.Printf("Simulated Time       : %.1f min\n", m.totalTime)
	if m.Completed > 0 {
		fmt.Printf("Throughput           : %.2f items/hour\n", m.ThroughputPerHour())
		fmt.Printf("Average Cycle Time   : %.2f min (stddev %.2f)\n", m.AverageCycleTime(), m.CycleTimeStdDev())
	}
	fmt.Printf("Average WIP          : %.2f\n", m.AverageWIP())
	fmt.Printf("Final WIP            : %d\n", m.wip)
}
