// Package atomicfloat provides a lock-free float64 box for values that are
// written by the stepper goroutine and read by the telemetry exporter
// goroutine without a mutex.
package atomicfloat

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Float64 encapsulates a float64 for non-locking atomic operations.
// Critical regions stay short and no unsafe pointer escapes this file, so
// the GC cannot move val out from under an in-flight CAS.
type Float64 struct {
	val float64
}

// New returns a Float64 initialized to val.
func New(val float64) *Float64 {
	return &Float64{val: val}
}

// Load atomically reads the float64.
func (af *Float64) Load() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(bits)
}

// Add atomically adds addend, retrying the CAS on contention until it
// succeeds, and returns the new value. Stats counters never need to "give
// up" on a concurrent writer, so there is no failure result.
func (af *Float64) Add(addend float64) (newVal float64) {
	for {
		old := af.Load()
		newVal = old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&af.val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return
		}
	}
}

// Store atomically sets the float64.
func (af *Float64) Store(newVal float64) {
	for {
		old := af.Load()
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&af.val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return
		}
	}
}
