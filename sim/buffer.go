package sim

import "github.com/sirupsen/logrus"

// blockedPut is a producer suspended on a full buffer, holding its item
// until a slot frees.
type blockedPut struct {
	item   *Item
	resume func()
}

// BoundedBuffer is a capacity-limited FIFO store with separate wait queues
// for blocked producers and blocked consumers (the two inter-stage buffers).
//
// Invariants: the producer queue is non-empty only when the buffer is full
// and no consumer is blocked; the consumer queue is non-empty only when the
// buffer is empty.
type BoundedBuffer struct {
	name     string
	capacity int
	items    []*Item
	putters  []blockedPut
	getters  []func(*Item)

	clock *Clock
}

// NewBoundedBuffer creates a buffer with the given fixed capacity.
func NewBoundedBuffer(name string, capacity int, clock *Clock) *BoundedBuffer {
	return &BoundedBuffer{name: name, capacity: capacity, clock: clock}
}

func (b *BoundedBuffer) Name() string  { return b.name }
func (b *BoundedBuffer) Capacity() int { return b.capacity }

// Items returns the number of stored items.
func (b *BoundedBuffer) Items() int { return len(b.items) }

// PutQueueLen returns the number of blocked producers.
func (b *BoundedBuffer) PutQueueLen() int { return len(b.putters) }

// GetQueueLen returns the number of blocked consumers.
func (b *BoundedBuffer) GetQueueLen() int { return len(b.getters) }

// Utilization is the instantaneous items/capacity ratio.
func (b *BoundedBuffer) Utilization() float64 {
	return float64(len(b.items)) / float64(b.capacity)
}

// Put inserts item and invokes fn once the insert has taken effect.
// If a consumer is already blocked, the item bypasses storage and is handed
// to it directly. If the buffer is full, the producer suspends with its
// item until a slot frees; fn runs only after the handoff completes, which
// is what back-pressures the producing stage.
func (b *BoundedBuffer) Put(item *Item, fn func()) {
	if len(b.getters) > 0 {
		g := b.getters[0]
		b.getters = b.getters[1:]
		g(item)
		fn()
		return
	}
	if len(b.items) < b.capacity {
		b.items = append(b.items, item)
		fn()
		return
	}
	logrus.Debugf("[t=%09.3f] %s: full, blocking producer of item %d", b.clock.Now(), b.name, item.ID)
	b.putters = append(b.putters, blockedPut{item: item, resume: fn})
}

// Get removes the oldest item and invokes fn with it. If a producer is
// blocked, its held item is admitted into the freed slot and the producer
// resumes. If the buffer is empty, the consumer suspends until an item
// arrives.
func (b *BoundedBuffer) Get(fn func(*Item)) {
	if len(b.items) > 0 {
		item := b.items[0]
		b.items = b.items[1:]
		if len(b.putters) > 0 {
			p := b.putters[0]
			b.putters = b.putters[1:]
			b.items = append(b.items, p.item)
			p.resume()
		}
		fn(item)
		return
	}
	b.getters = append(b.getters, fn)
}
