// Package scheduler drives a kitchen.Kitchen the way the challenge
// service's external load generator does: one task places orders in
// sequence at a fixed rate, and one task per order drives that order's
// pickup after a delay sampled uniformly from a configured window.
package scheduler

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"kitchen-challenge/kitchen"
)

// Scheduler holds the timing parameters for one run.
type Scheduler struct {
	kitchen *kitchen.Kitchen
	clock   kitchen.Clock
	rate    time.Duration
	min     time.Duration
	max     time.Duration
}

// New returns a Scheduler driving k. A nil clock defaults to the system
// clock.
func New(k *kitchen.Kitchen, clock kitchen.Clock, rate, min, max time.Duration) *Scheduler {
	if clock == nil {
		clock = kitchen.SystemClock{}
	}
	return &Scheduler{kitchen: k, clock: clock, rate: rate, min: min, max: max}
}

// Run places every order in orders, one rate apart starting now, and
// schedules each order's pickup at its own placement time plus a delay
// uniformly sampled from [min, max]. It blocks until every placement and
// pickup has happened, or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, orders []kitchen.Order) {
	start := s.clock.Now()
	delayDist := distuv.Uniform{Min: s.min.Seconds(), Max: s.max.Seconds()}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runPlacements(ctx, orders, start)
	}()

	for idx, order := range orders {
		wg.Add(1)
		go func(idx int, order kitchen.Order) {
			defer wg.Done()
			s.runPickup(ctx, order, start, idx, delayDist)
		}(idx, order)
	}

	wg.Wait()
}

func (s *Scheduler) placementTime(start time.Time, idx int) time.Time {
	return start.Add(s.rate * time.Duration(idx))
}

func (s *Scheduler) runPlacements(ctx context.Context, orders []kitchen.Order, start time.Time) {
	for idx, order := range orders {
		if !sleepUntil(ctx, s.placementTime(start, idx)) {
			return
		}
		s.kitchen.PlaceOrder(order, s.clock.Now())
	}
}

// runPickup waits until this order's placement time plus a sampled
// delay, then resolves its pickup. The delay is applied to the
// placement time rather than to wall-clock "now" after waiting, so
// scheduling jitter in runPlacements doesn't drift the pickup window.
func (s *Scheduler) runPickup(ctx context.Context, order kitchen.Order, start time.Time, idx int, delayDist distuv.Uniform) {
	delay := time.Duration(delayDist.Rand() * float64(time.Second))
	pickupTime := s.placementTime(start, idx).Add(delay)
	if !sleepUntil(ctx, pickupTime) {
		return
	}
	s.kitchen.PickupOrder(order.ID, s.clock.Now())
}

// sleepUntil blocks until t or ctx is cancelled, reporting whether it
// reached t.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
