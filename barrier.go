package kernel

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
)

// Barrier is a rendezvous point for a fixed number of parties that also
// reduces the values they offer. Wait returns -1 to exactly one caller
// per rendezvous (the "last arrival") and 0 to everyone else; after
// Wait returns, Min/Max/Sum report the reduction over that rendezvous's
// offers. Offers below zero are treated as "no value" and excluded from
// the reduction.
type Barrier interface {
	Wait(offer int64) int64
	Min() int64
	Max() int64
	Sum() int64
}

// CondvarBarrier is a mutex+condition-variable barrier, grounded in
// _examples/original_source's barrier_mutex.cc.
type CondvarBarrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	count      int
	generation int

	min, max, sum           int64
	lastMin, lastMax, lastSum int64
}

// NewCondvarBarrier returns a barrier for n parties.
func NewCondvarBarrier(n int) *CondvarBarrier {
	b := &CondvarBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	b.resetAccum()
	return b
}

func (b *CondvarBarrier) resetAccum() {
	b.min = math.MaxInt64
	b.max = math.MinInt64
	b.sum = 0
}

// Wait blocks until all n parties have called Wait for this generation.
func (b *CondvarBarrier) Wait(offer int64) int64 {
	b.mu.Lock()
	gen := b.generation
	if offer >= 0 {
		if offer < b.min {
			b.min = offer
		}
		if offer > b.max {
			b.max = offer
		}
		b.sum += offer
	}
	b.count++
	if b.count == b.n {
		if b.min == math.MaxInt64 {
			b.lastMin = -1
		} else {
			b.lastMin = b.min
		}
		if b.max == math.MinInt64 {
			b.lastMax = -1
		} else {
			b.lastMax = b.max
		}
		b.lastSum = b.sum
		b.count = 0
		b.resetAccum()
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return -1
	}
	for b.generation == gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
	return 0
}

// Min returns the minimum non-negative offer from the last completed
// rendezvous, or -1 if every offer was negative.
func (b *CondvarBarrier) Min() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.lastMin }

// Max returns the maximum non-negative offer from the last completed
// rendezvous, or -1 if every offer was negative.
func (b *CondvarBarrier) Max() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.lastMax }

// Sum returns the sum of non-negative offers from the last completed
// rendezvous.
func (b *CondvarBarrier) Sum() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.lastSum }

// SpinBarrier is a sense-reversing spin barrier: parties busy-wait on a
// shared atomic sense flag instead of blocking on a condition variable,
// grounded in _examples/original_source's fast_tree_barrier.h.
type SpinBarrier struct {
	n     int32
	count atomic.Int32
	sense atomic.Bool

	min, max atomic.Int64
	sum      atomic.Int64

	lastMin, lastMax, lastSum atomic.Int64
}

// NewSpinBarrier returns a barrier for n parties.
func NewSpinBarrier(n int) *SpinBarrier {
	b := &SpinBarrier{n: int32(n)}
	b.min.Store(math.MaxInt64)
	b.max.Store(math.MinInt64)
	return b
}

func casMin(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v >= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func casMax(a *atomic.Int64, v int64) {
	for {
		cur := a.Load()
		if v <= cur {
			return
		}
		if a.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Wait blocks, spinning, until all n parties have called Wait for this
// generation.
func (b *SpinBarrier) Wait(offer int64) int64 {
	startSense := b.sense.Load()
	if offer >= 0 {
		casMin(&b.min, offer)
		casMax(&b.max, offer)
		b.sum.Add(offer)
	}
	if b.count.Add(1) == b.n {
		mn := b.min.Load()
		mx := b.max.Load()
		if mn == math.MaxInt64 {
			mn = -1
		}
		if mx == math.MinInt64 {
			mx = -1
		}
		b.lastMin.Store(mn)
		b.lastMax.Store(mx)
		b.lastSum.Store(b.sum.Load())
		b.count.Store(0)
		b.min.Store(math.MaxInt64)
		b.max.Store(math.MinInt64)
		b.sum.Store(0)
		b.sense.Store(!startSense)
		return -1
	}
	for b.sense.Load() == startSense {
		runtime.Gosched()
	}
	return 0
}

// Min returns the minimum non-negative offer from the last completed
// rendezvous, or -1 if every offer was negative.
func (b *SpinBarrier) Min() int64 { return b.lastMin.Load() }

// Max returns the maximum non-negative offer from the last completed
// rendezvous, or -1 if every offer was negative.
func (b *SpinBarrier) Max() int64 { return b.lastMax.Load() }

// Sum returns the sum of non-negative offers from the last completed
// rendezvous.
func (b *SpinBarrier) Sum() int64 { return b.lastSum.Load() }

func newBarrier(flavor BarrierFlavor, n int) Barrier {
	if flavor == FlavorSpin {
		return NewSpinBarrier(n)
	}
	return NewCondvarBarrier(n)
}
