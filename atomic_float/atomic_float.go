package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking reads and writes, stored as its
// IEEE-754 bits. Readers (views, http handlers) poll these while a run writes them,
// and a lock around a single number is not worth it.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 encapsulates a float64 for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.AtomicSet(val)
	return af
}

// AtomicRead reads the float64.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet sets the float64 and returns the previous value.
func (af *AtomicFloat64) AtomicSet(val float64) (old float64) {
	return math.Float64frombits(af.bits.Swap(math.Float64bits(val)))
}

// AtomicAdd adds to the float64 only if it was not changed by another writer in the
// meantime. A rejected add is reported rather than retried, so the caller decides
// whether to recalculate or drop it.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}
