package kitchen

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall-clock readings. The kitchen itself never reads the
// clock — every operation takes its timestamp as an explicit argument,
// per the Kitchen API — but the Scheduler that drives it reads one to
// stamp each placement and pickup. The Scheduler's waits run on real
// time whichever Clock is supplied.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Timestamper issues strictly increasing microsecond timestamps for the
// action log, even across concurrent callers. Given a caller-provided
// wall-clock reading, it returns max(t, last+1) and atomically advances
// the high-water mark to that value — a lock-free compare-and-swap loop,
// mirroring original_source/kitchen.rs's AtomicU64 + compare_exchange_weak
// discipline. It never blocks on the storage locks the kitchen uses
// elsewhere, so it cannot participate in their lock ordering.
type Timestamper struct {
	last atomic.Int64
}

// Issue returns a timestamp (in microseconds since the epoch) strictly
// greater than every timestamp previously issued by this Timestamper,
// using wallClockMicros as a lower bound when it already exceeds the
// high-water mark.
func (t *Timestamper) Issue(wallClockMicros int64) int64 {
	for {
		last := t.last.Load()
		candidate := wallClockMicros
		if last+1 > candidate {
			candidate = last + 1
		}
		if t.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}
