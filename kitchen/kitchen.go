package kitchen

import "time"

// Kitchen is the order-placement state machine: three bounded storage
// locations, an append-only action log, and the monotonic timestamper
// that orders entries in it. Every operation takes its wall-clock
// reading as an explicit argument rather than consulting a clock of its
// own, so callers (and tests) fully control timing.
type Kitchen struct {
	cooler   *fifoStorage
	heater   *fifoStorage
	shelf    *shelfStorage
	log      *actionLog
	ts       *Timestamper
	onAction func(Action)
}

// NewKitchen returns an empty Kitchen with all three storage locations
// at zero occupancy.
func NewKitchen() *Kitchen {
	return &Kitchen{
		cooler: newFifoStorage(Cooler, coolerCapacity),
		heater: newFifoStorage(Heater, heaterCapacity),
		shelf:  newShelfStorage(shelfCapacity),
		log:    newActionLog(),
		ts:     &Timestamper{},
	}
}

// OnAction registers a callback invoked synchronously every time an
// action is recorded, after it's appended to the log. Intended for a
// metrics observer; at most one callback is kept. It runs with no
// storage or log lock held, so it may read the Kitchen (for example
// through Occupancy).
func (k *Kitchen) OnAction(fn func(Action)) {
	k.onAction = fn
}

// Occupancy returns the current order count in each storage location.
// Each location's own lock is taken and released independently, so the
// three counts are a snapshot of slightly different instants under
// concurrent activity, not an atomic whole-kitchen read.
func (k *Kitchen) Occupancy() map[StorageLocation]int {
	return map[StorageLocation]int{
		Cooler: k.cooler.len(),
		Heater: k.heater.len(),
		Shelf:  k.shelf.len(),
	}
}

// storageFor returns the FIFO storage backing a hot-or-cold ideal
// location. Callers never pass Shelf; PlaceOrder branches shelf-bound
// orders onto the shelf's own path before this is ever consulted.
func (k *Kitchen) storageFor(location StorageLocation) *fifoStorage {
	switch location {
	case Cooler:
		return k.cooler
	case Heater:
		return k.heater
	default:
		panic("kitchen: storageFor called with non-FIFO location " + string(location))
	}
}

// PlaceOrder runs the placement cascade for order, entering the kitchen
// at time t:
//
//  1. An order whose ideal location is the shelf goes straight there,
//     evicting the earliest-expiring occupant first if the shelf is full.
//  2. A hot or cold order goes into its ideal storage if there's room.
//  3. Failing that, it goes onto the shelf if there's room there.
//  4. Failing that, the oldest occupant of its ideal storage is moved to
//     the shelf (evicting a shelf occupant first if needed) to free a
//     slot, and the new order takes that slot.
func (k *Kitchen) PlaceOrder(order Order, t time.Time) {
	ideal := order.Temp.idealStorage()

	if ideal == Shelf {
		k.placeOnShelfEvictingIfNeeded(order, t)
		return
	}
	if k.tryPlaceInStorage(order, ideal, t) {
		return
	}
	if k.tryPlaceOnShelf(order, t) {
		return
	}
	k.moveOutAndPlace(order, ideal, t)
}

func (k *Kitchen) tryPlaceInStorage(order Order, location StorageLocation, t time.Time) bool {
	stored := newStoredOrder(order, t, location)
	if !k.storageFor(location).pushBack(stored) {
		return false
	}
	k.record(order.ID, ActionPlace, location, t)
	return true
}

func (k *Kitchen) tryPlaceOnShelf(order Order, t time.Time) bool {
	stored := newStoredOrder(order, t, Shelf)
	if !k.shelf.put(stored) {
		return false
	}
	k.record(order.ID, ActionPlace, Shelf, t)
	return true
}

func (k *Kitchen) placeOnShelfEvictingIfNeeded(order Order, t time.Time) {
	stored := newStoredOrder(order, t, Shelf)
	evictedID, didEvict := k.shelf.putEvictingIfFull(stored)
	if didEvict {
		k.record(evictedID, ActionDiscard, Shelf, t)
	}
	k.record(order.ID, ActionPlace, Shelf, t)
}

// moveOutAndPlace frees a slot in ideal storage by swapping its oldest
// occupant for order, then relocates that occupant onto the shelf
// (evicting a shelf occupant first if needed). The swap is atomic under
// ideal storage's own lock, so no concurrent placement can steal the
// freed slot before order lands in it.
func (k *Kitchen) moveOutAndPlace(order Order, ideal StorageLocation, t time.Time) {
	newOccupant := newStoredOrder(order, t, ideal)
	evicted, ok := k.storageFor(ideal).swapFront(newOccupant)
	if !ok {
		// ideal storage was reported full but is actually empty: fall
		// back to the shelf rather than leave the order unplaced.
		if k.tryPlaceOnShelf(order, t) {
			return
		}
		k.placeOnShelfEvictingIfNeeded(order, t)
		return
	}

	moved := newStoredOrder(evicted.Order, evicted.PlacedAt, Shelf)
	evictedID, didEvict := k.shelf.putEvictingIfFull(moved)
	if didEvict {
		k.record(evictedID, ActionDiscard, Shelf, t)
	}
	k.record(evicted.Order.ID, ActionMove, Shelf, t)
	k.record(order.ID, ActionPlace, ideal, t)
}

// PickupOrder resolves a courier pickup for orderID at time t, searching
// the cooler, then the heater, then the shelf. If the order is found and
// its remaining freshness at t has run out, the pickup is recorded as a
// discard instead. If the order isn't present anywhere — already picked
// up, already discarded, or never placed — PickupOrder is a silent
// no-op.
func (k *Kitchen) PickupOrder(orderID string, t time.Time) {
	for _, loc := range [...]StorageLocation{Cooler, Heater} {
		if stored, ok := k.storageFor(loc).removeByID(orderID); ok {
			k.recordPickupOrDiscard(stored, loc, t)
			return
		}
	}
	if stored, ok := k.shelf.removeByID(orderID); ok {
		k.recordPickupOrDiscard(stored, Shelf, t)
	}
}

func (k *Kitchen) recordPickupOrDiscard(stored *StoredOrder, loc StorageLocation, t time.Time) {
	if stored.isExpired(t) {
		k.record(stored.Order.ID, ActionDiscard, loc, t)
		return
	}
	k.record(stored.Order.ID, ActionPickup, loc, t)
}

// GetActions returns every action recorded so far, ordered ascending by
// timestamp.
func (k *Kitchen) GetActions() []Action {
	return k.log.snapshot()
}

func (k *Kitchen) record(orderID string, kind ActionKind, target StorageLocation, t time.Time) {
	issued := k.ts.Issue(t.UnixMicro())
	action := Action{TimestampMicros: issued, OrderID: orderID, Kind: kind, Target: target}
	k.log.append(action)
	if k.onAction != nil {
		k.onAction(action)
	}
}
