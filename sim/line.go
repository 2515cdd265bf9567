package sim

import "github.com/sirupsen/logrus"

// ProductionLine wires the four resources and two buffers into the
// three-stage topology and runs four logical processes over them:
//
//	arrival generator → Cutter → buffer1 → cell loop (Robot+Heater) →
//	buffer2 → pack loop (Packer) → done
//
// plus an independent failure/repair process competing for the Robot. Each
// process is a chain of continuations resumed only by the clock-driven
// scheduler; each loop iteration ends by scheduling a future action, so the
// chains never grow the call stack.
type ProductionLine struct {
	cfg     Config
	clock   *Clock
	rng     *RandomStream
	metrics *MetricsAccumulator

	Cutter *Resource
	Robot  *Resource
	Heater *Resource
	Packer *Resource

	Buffer1 *BoundedBuffer
	Buffer2 *BoundedBuffer

	Failure RobotFailureState

	nextItemID int64
	armed      bool
}

// NewProductionLine builds the topology from cfg. The caller retains
// ownership of clock, rng, and metrics.
func NewProductionLine(cfg Config, clock *Clock, rng *RandomStream, metrics *MetricsAccumulator) *ProductionLine {
	return &ProductionLine{
		cfg:     cfg,
		clock:   clock,
		rng:     rng,
		metrics: metrics,
		Cutter:  NewResource("cutter", cfg.CutterCapacity, clock),
		Robot:   NewResource("robot", cfg.RobotCapacity, clock),
		Heater:  NewResource("heater", cfg.HeaterCapacity, clock),
		Packer:  NewResource("packer", cfg.PackerCapacity, clock),
		Buffer1: NewBoundedBuffer("buffer1", cfg.Buffer1Capacity, clock),
		Buffer2: NewBoundedBuffer("buffer2", cfg.Buffer2Capacity, clock),
	}
}

// ArmGenerators starts the four logical processes. Idempotent: a second
// call on the same line instance is a no-op, so start() after stop()
// resumes the existing processes instead of registering duplicates.
func (l *ProductionLine) ArmGenerators() {
	if l.armed {
		return
	}
	l.armed = true
	l.scheduleNextArrival()
	l.cellLoop()
	l.packLoop()
	if l.cfg.FailuresEnabled() {
		l.scheduleNextFailure()
	}
}

func (l *ProductionLine) stageDuration(s StageConfig) float64 {
	return l.rng.Triangular(s.BaseTime*s.LowFactor, s.BaseTime, s.BaseTime*s.HighFactor)
}

// scheduleNextArrival arms the perpetual arrival generator: each firing
// creates one item and reschedules itself via an exponential interval.
func (l *ProductionLine) scheduleNextArrival() {
	l.clock.Schedule(l.rng.Exponential(l.cfg.ArrivalMean), l.arrive)
}

func (l *ProductionLine) arrive() {
	l.nextItemID++
	item := &Item{ID: l.nextItemID, EnteredAt: l.clock.Now()}
	logrus.Debugf("[t=%09.3f] << arrival: item %d", l.clock.Now(), item.ID)
	l.metrics.ItemStarted(l.clock.Now())
	l.startCut(item)
	l.scheduleNextArrival()
}

// startCut runs one item through the cutting stage. The Cutter is released
// only once the put into buffer1 succeeds, so a full downstream buffer
// back-pressures the Cutter: it holds its unit until the handoff completes.
func (l *ProductionLine) startCut(item *Item) {
	l.Cutter.Acquire(func() {
		d := l.stageDuration(l.cfg.Cut)
		l.clock.Schedule(d, func() {
			l.Buffer1.Put(item, func() {
				l.Cutter.Release()
			})
		})
	})
}

// cellLoop is the perpetual cell-processing process: get from buffer1,
// acquire Robot then Heater (always in that fixed order, to avoid
// circular wait), process, put into buffer2, release both, loop.
func (l *ProductionLine) cellLoop() {
	l.Buffer1.Get(func(item *Item) {
		l.Robot.Acquire(func() {
			l.Heater.Acquire(func() {
				d := l.stageDuration(l.cfg.Cell)
				l.clock.Schedule(d, func() {
					l.Buffer2.Put(item, func() {
						l.Heater.Release()
						l.Robot.Release()
						l.cellLoop()
					})
				})
			})
		})
	})
}

// packLoop is the perpetual packaging process: get from buffer2, acquire
// Packer, process, complete the item, release, loop.
func (l *ProductionLine) packLoop() {
	l.Buffer2.Get(func(item *Item) {
		l.Packer.Acquire(func() {
			d := l.stageDuration(l.cfg.Pack)
			l.clock.Schedule(d, func() {
				logrus.Debugf("[t=%09.3f] >> completed: item %d (cycle %.2f min)",
					l.clock.Now(), item.ID, l.clock.Now()-item.EnteredAt)
				l.metrics.ItemFinished(l.clock.Now(), item)
				l.Packer.Release()
				l.packLoop()
			})
		})
	})
}

// scheduleNextFailure arms the failure generator with an exponential
// interval drawn from the Robot's MTBF.
func (l *ProductionLine) scheduleNextFailure() {
	interval := l.rng.Exponential(l.cfg.FailureMTBF)
	l.Failure.NextFailureAt = l.clock.Now() + interval
	l.clock.Schedule(interval, l.failRobot)
}

// failRobot marks the Robot failed and competes for it through the normal
// acquire queue, so repair waits its turn as an ordinary FIFO waiter. Once
// granted, the repair holds one Robot unit for an exponential MTTR
// interval; during repair the effective Robot capacity is reduced by one.
func (l *ProductionLine) failRobot() {
	l.Failure.IsFailed = true
	l.Failure.FailureCount++
	l.Failure.LastFailureAt = l.clock.Now()
	logrus.Debugf("[t=%09.3f] !! robot failure #%d", l.clock.Now(), l.Failure.FailureCount)
	l.Robot.Acquire(func() {
		repair := l.rng.Exponential(l.cfg.FailureMTTR)
		l.clock.Schedule(repair, func() {
			l.Failure.IsFailed = false
			logrus.Debugf("[t=%09.3f] !! robot repaired after %.2f min", l.clock.Now(), repair)
			l.Robot.Release()
			l.scheduleNextFailure()
		})
	})
}
