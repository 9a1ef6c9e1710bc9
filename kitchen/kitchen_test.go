package kitchen

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func microTime(micros int64) time.Time {
	return time.UnixMicro(micros)
}

func order(id string, temp Temperature, freshness uint64) Order {
	return Order{ID: id, Name: id, Temp: temp, Freshness: freshness}
}

// S1 — ideal placement succeeds.
func TestPlaceOrderIdealPlacement(t *testing.T) {
	k := NewKitchen()
	k.PlaceOrder(order("A", Cold, 100), microTime(1_000_000))

	actions := k.GetActions()
	assert.Len(t, actions, 1)
	assert.Equal(t, ActionPlace, actions[0].Kind)
	assert.Equal(t, Cooler, actions[0].Target)
	assert.Equal(t, "A", actions[0].OrderID)
	assert.GreaterOrEqual(t, actions[0].TimestampMicros, int64(1_000_000))
}

func fillCooler(t *testing.T, k *Kitchen, n int) {
	for i := 0; i < n; i++ {
		k.PlaceOrder(order(fmt.Sprintf("C%d", i+1), Cold, 1000), microTime(int64(i+1)))
	}
}

// S2 — shelf fallback when ideal storage is full.
func TestPlaceOrderShelfFallbackWhenColdFull(t *testing.T) {
	k := NewKitchen()
	fillCooler(t, k, coolerCapacity)

	k.PlaceOrder(order("C7", Cold, 1000), microTime(1000))

	actions := k.GetActions()
	last := actions[len(actions)-1]
	assert.Equal(t, ActionPlace, last.Kind)
	assert.Equal(t, Shelf, last.Target)
	assert.Equal(t, "C7", last.OrderID)
}

func fillShelfWithRoomOrders(k *Kitchen, n int, startMicros int64) {
	for i := 0; i < n; i++ {
		k.PlaceOrder(order(fmt.Sprintf("R%d", i+1), Room, 100_000), microTime(startMicros+int64(i)))
	}
}

// S3 — move-out cascade is not taken when the shelf still has room.
func TestPlaceOrderPrefersShelfOverMoveWhenRoomAvailable(t *testing.T) {
	k := NewKitchen()
	fillCooler(t, k, coolerCapacity)
	fillShelfWithRoomOrders(k, shelfCapacity-1, 100)

	k.PlaceOrder(order("C7", Cold, 1000), microTime(1000))

	actions := k.GetActions()
	last := actions[len(actions)-1]
	assert.Equal(t, ActionPlace, last.Kind)
	assert.Equal(t, Shelf, last.Target)
	assert.Equal(t, "C7", last.OrderID)
	for _, a := range actions {
		assert.NotEqual(t, ActionMove, a.Kind)
	}
}

// S4 — evict to make room: cooler and shelf are both full, so placing one
// more cold order evicts the shelf's earliest-expiring occupant, moves the
// cooler's FIFO front to the shelf, and places the new order in the
// freed cooler slot.
func TestPlaceOrderEvictsAndMovesWhenBothFull(t *testing.T) {
	k := NewKitchen()
	fillCooler(t, k, coolerCapacity) // C1..C6, freshness 1000s each, placed at t=1..6

	// Shelf: 11 long-lived room orders plus R_soon, which expires soonest.
	for i := 0; i < shelfCapacity-1; i++ {
		k.PlaceOrder(order(fmt.Sprintf("R%d", i+1), Room, 100_000), microTime(int64(100+i)))
	}
	k.PlaceOrder(order("R_soon", Room, 1), microTime(200))

	k.PlaceOrder(order("C7", Cold, 1000), microTime(1000))

	actions := k.GetActions()
	tail := actions[len(actions)-3:]
	assert.Equal(t, ActionDiscard, tail[0].Kind)
	assert.Equal(t, "R_soon", tail[0].OrderID)
	assert.Equal(t, Shelf, tail[0].Target)

	assert.Equal(t, ActionMove, tail[1].Kind)
	assert.Equal(t, "C1", tail[1].OrderID)
	assert.Equal(t, Shelf, tail[1].Target)

	assert.Equal(t, ActionPlace, tail[2].Kind)
	assert.Equal(t, "C7", tail[2].OrderID)
	assert.Equal(t, Cooler, tail[2].Target)

	assert.Less(t, tail[0].TimestampMicros, tail[1].TimestampMicros)
	assert.Less(t, tail[1].TimestampMicros, tail[2].TimestampMicros)
}

// S5 — an expired pickup is recorded as a discard, not a pickup.
func TestPickupOrderExpiredBecomesDiscard(t *testing.T) {
	k := NewKitchen()
	k.PlaceOrder(order("X", Hot, 2), microTime(0))
	k.PickupOrder("X", microTime(3_000_000))

	actions := k.GetActions()
	assert.Len(t, actions, 2)
	assert.Equal(t, ActionPlace, actions[0].Kind)
	assert.Equal(t, Heater, actions[0].Target)
	assert.Equal(t, ActionDiscard, actions[1].Kind)
	assert.Equal(t, Heater, actions[1].Target)
	assert.Equal(t, "X", actions[1].OrderID)
}

// S6 — non-ideal degradation: an order stranded on the shelf decays at
// twice the ideal rate, but a pickup before that budget runs out still
// succeeds.
func TestPickupOrderNonIdealDegradation(t *testing.T) {
	k := NewKitchen()
	fillHeater(k, heaterCapacity)
	k.PlaceOrder(order("Y", Hot, 10), microTime(0))
	k.PickupOrder("Y", microTime(4_000_000))

	actions := k.GetActions()
	last := actions[len(actions)-1]
	assert.Equal(t, ActionPickup, last.Kind)
	assert.Equal(t, Shelf, last.Target)
	assert.Equal(t, "Y", last.OrderID)
}

func fillHeater(k *Kitchen, n int) {
	for i := 0; i < n; i++ {
		k.PlaceOrder(order(fmt.Sprintf("H%d", i+1), Hot, 100_000), microTime(int64(i+1)))
	}
}

// Pickup of an id absent from every storage is a silent no-op.
func TestPickupOrderAbsentIsNoOp(t *testing.T) {
	k := NewKitchen()
	k.PlaceOrder(order("A", Cold, 100), microTime(1))
	before := k.GetActions()

	k.PickupOrder("does-not-exist", microTime(2))

	after := k.GetActions()
	assert.Equal(t, before, after)
}

// GetActions is pure: repeated calls with no intervening mutation return
// identical sequences.
func TestGetActionsIsPure(t *testing.T) {
	k := NewKitchen()
	k.PlaceOrder(order("A", Cold, 100), microTime(1))
	k.PlaceOrder(order("B", Hot, 100), microTime(2))

	first := k.GetActions()
	second := k.GetActions()
	assert.Equal(t, first, second)
}

// Action timestamps are strictly increasing across the entire log, even
// under concurrent callers.
func TestActionTimestampsStrictlyIncreasingUnderConcurrency(t *testing.T) {
	k := NewKitchen()
	const n = shelfCapacity // stays within capacity: no evictions to interleave
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k.PlaceOrder(order(fmt.Sprintf("O%d", i), Room, 100_000), time.Now())
		}(i)
	}
	wg.Wait()

	actions := k.GetActions()
	assert.Len(t, actions, n)
	for i := 1; i < len(actions); i++ {
		assert.Less(t, actions[i-1].TimestampMicros, actions[i].TimestampMicros)
	}
}

// Storage capacities are never exceeded, even when many more orders are
// placed than the kitchen can hold.
func TestCapacitiesNeverExceeded(t *testing.T) {
	k := NewKitchen()
	for i := 0; i < 40; i++ {
		k.PlaceOrder(order(fmt.Sprintf("C%d", i), Cold, 1000), microTime(int64(i+1)))
	}
	assert.LessOrEqual(t, k.cooler.len(), coolerCapacity)
	assert.LessOrEqual(t, k.shelf.len(), shelfCapacity)
}

func BenchmarkPlaceOrder(b *testing.B) {
	k := NewKitchen()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		temp := Cold
		switch n % 3 {
		case 1:
			temp = Hot
		case 2:
			temp = Room
		}
		k.PlaceOrder(order(fmt.Sprintf("bench_%d", n), temp, 1000), time.Now())
	}
}
