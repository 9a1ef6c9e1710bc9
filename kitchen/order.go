package kitchen

import "time"

// Order is the immutable order handed to the kitchen by the challenge
// service. Price is unused by the core state machine; it is carried only
// so callers can forward it unchanged (e.g. in logs or reports).
type Order struct {
	ID        string
	Name      string
	Temp      Temperature
	Price     uint64
	Freshness uint64 // seconds of freshness under ideal storage
}

// StoredOrder is the in-kitchen record of an Order: its immutable
// identity plus the mutable storage location it presently occupies and
// the instant it first entered the kitchen. PlacedAt is assigned once,
// at first entry, and is never changed by later moves.
type StoredOrder struct {
	Order       Order
	PlacedAt    time.Time
	CurrentTemp StorageLocation
}

func newStoredOrder(order Order, placedAt time.Time, location StorageLocation) *StoredOrder {
	return &StoredOrder{Order: order, PlacedAt: placedAt, CurrentTemp: location}
}

// degradationRate returns the freshness units consumed per elapsed
// second, given where the order currently sits.
func (s *StoredOrder) degradationRate() int64 {
	if s.Order.Temp == s.CurrentTemp.ambient() {
		return degradationIdeal
	}
	return degradationNonIdeal
}

// remainingFreshness computes remaining freshness at time t, using the
// order's true placed_at and the rate implied by its current storage.
func (s *StoredOrder) remainingFreshness(t time.Time) int64 {
	elapsedSeconds := int64(t.Sub(s.PlacedAt) / time.Second)
	return int64(s.Order.Freshness) - s.degradationRate()*elapsedSeconds
}

// isExpired reports whether the order's remaining freshness at t is <= 0.
func (s *StoredOrder) isExpired(t time.Time) bool {
	return s.remainingFreshness(t) <= 0
}

// expiresAtMicros is the absolute projected expiration instant, in
// microseconds since the epoch, under the order's current storage.
// placed_at is preserved across moves, so this must be recomputed
// against the destination ambient whenever the order's CurrentTemp
// changes; a stale copy from before a move will mis-rank the order in
// the eviction index.
func (s *StoredOrder) expiresAtMicros() int64 {
	placedAtMicros := s.PlacedAt.UnixMicro()
	secondsUntilExpiration := float64(s.Order.Freshness) / float64(s.degradationRate())
	microsUntilExpiration := int64(secondsUntilExpiration * 1_000_000)
	return placedAtMicros + microsUntilExpiration
}
