package sim

import "fmt"

// ResourceStatus is the read-only projection of one resource.
type ResourceStatus struct {
	Capacity       int     `json:"capacity"`
	InUse          int     `json:"inUse"`
	QueueLength    int     `json:"queueLength"`
	Utilization    float64 `json:"utilization"`    // instantaneous inUse/capacity
	AvgUtilization float64 `json:"avgUtilization"` // time-weighted over the run so far
}

// RobotStatus extends ResourceStatus with the failure sub-process state.
type RobotStatus struct {
	ResourceStatus
	IsFailed                 bool    `json:"isFailed"`
	FailureCount             int     `json:"failureCount"`
	LastFailureTime          float64 `json:"lastFailureTime"`
	EstimatedNextFailureTime float64 `json:"estimatedNextFailureTime"`
}

// BufferStatus is the read-only projection of one inter-stage buffer.
type BufferStatus struct {
	Capacity       int     `json:"capacity"`
	Items          int     `json:"items"`
	GetQueueLength int     `json:"getQueueLength"`
	PutQueueLength int     `json:"putQueueLength"`
	Utilization    float64 `json:"utilization"` // items/capacity
}

// MetricsStatus is the metrics block of a snapshot.
type MetricsStatus struct {
	Completed    int     `json:"completed"`
	WIP          int     `json:"wip"`
	AvgCycleTime float64 `json:"avgCycleTime"`
	ActionFaults int     `json:"actionFaults"` // recovered per-action faults
}

// Snapshot is an immutable projection of the full simulation state, emitted
// to subscribers after every driven step.
type Snapshot struct {
	Time    float64 `json:"time"` // minutes elapsed
	Running bool    `json:"running"`

	Cutter ResourceStatus `json:"cutter"`
	Robot  RobotStatus    `json:"robot"`
	Heater ResourceStatus `json:"heater"`
	Packer ResourceStatus `json:"packer"`

	Buffer1 BufferStatus `json:"buffer1"`
	Buffer2 BufferStatus `json:"buffer2"`

	Metrics MetricsStatus `json:"metrics"`
}

func resourceStatus(r *Resource, now float64) ResourceStatus {
	return ResourceStatus{
		Capacity:       r.Capacity(),
		InUse:          r.InUse(),
		QueueLength:    r.QueueLen(),
		Utilization:    r.Utilization(),
		AvgUtilization: r.AverageUtilization(now),
	}
}

func bufferStatus(b *BoundedBuffer) BufferStatus {
	return BufferStatus{
		Capacity:       b.Capacity(),
		Items:          b.Items(),
		GetQueueLength: b.GetQueueLen(),
		PutQueueLength: b.PutQueueLen(),
		Utilization:    b.Utilization(),
	}
}

// Snapshot samples the line state at the current virtual time.
func (l *ProductionLine) Snapshot(running bool) Snapshot {
	now := l.clock.Now()
	return Snapshot{
		Time:    now,
		Running: running,
		Cutter:  resourceStatus(l.Cutter, now),
		Robot: RobotStatus{
			ResourceStatus:           resourceStatus(l.Robot, now),
			IsFailed:                 l.Failure.IsFailed,
			FailureCount:             l.Failure.FailureCount,
			LastFailureTime:          l.Failure.LastFailureAt,
			EstimatedNextFailureTime: l.Failure.NextFailureAt,
		},
		Heater:  resourceStatus(l.Heater, now),
		Packer:  resourceStatus(l.Packer, now),
		Buffer1: bufferStatus(l.Buffer1),
		Buffer2: bufferStatus(l.Buffer2),
		Metrics: MetricsStatus{
			Completed:    l.metrics.Completed,
			WIP:          l.metrics.WIP(),
			AvgCycleTime: l.metrics.AverageCycleTime(),
			ActionFaults: l.clock.Faults,
		},
	}
}

// PrintSummary displays the terminal snapshot's station view.
func (s Snapshot) PrintSummary() {
	fmt.Println("=== Station Summary ===")
	for _, st := range []struct {
		name string
		r    ResourceStatus
	}{
		{"Cutter", s.Cutter},
		{"Robot", s.Robot.ResourceStatus},
		{"Heater", s.Heater},
		{"Packer", s.Packer},
	} {
		fmt.Printf("%-8s: inUse %d/%d, queue %d, avg util %.2f\n",
			st.name, st.r.InUse, st.r.Capacity, st.r.QueueLength, st.r.AvgUtilization)
	}
	fmt.Printf("Buffer1 : %d/%d items (put wait %d, get wait %d)\n",
		s.Buffer1.Items, s.Buffer1.Capacity, s.Buffer1.PutQueueLength, s.Buffer1.GetQueueLength)
	fmt.Printf("Buffer2 : %d/%d items (put wait %d, get wait %d)\n",
		s.Buffer2.Items, s.Buffer2.Capacity, s.Buffer2.PutQueueLength, s.Buffer2.GetQueueLength)
	if s.Robot.FailureCount > 0 {
		fmt.Printf("Robot failures: %d (last at %.1f min)\n", s.Robot.FailureCount, s.Robot.LastFailureTime)
	}
}
