// Package selection tracks the seats an operator is assembling into one
// prospective sale.  A Cart is client-only state: it is never persisted and
// never sent anywhere until the sale is submitted.
package selection

import (
	"errors"
	"sort"
	"sync"

	"github.com/iliyamo/raffle-console/internal/model"
)

var (
	// ErrNotSellable is returned by Toggle for a seat that cannot be added.
	// Callers route the operator to the seat's context view instead.
	ErrNotSellable = errors.New("seat is not available for sale")
	// ErrNegativePayment rejects a negative initial payment.
	ErrNegativePayment = errors.New("initial payment cannot be negative")
)

// Cart is a set of seat numbers plus an optional initial payment.  It is
// safe for concurrent use.
type Cart struct {
	mu      sync.Mutex
	seats   map[int]struct{}
	initial int64
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{seats: map[int]struct{}{}}
}

// Toggle adds the seat when absent and removes it when present.  A seat
// that is not sellable is never added (ErrNotSellable); one already in the
// cart can always be removed, even if it stopped being sellable.  added
// reports the resulting membership.
func (c *Cart) Toggle(seat model.Seat) (added bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seats[seat.Number]; ok {
		delete(c.seats, seat.Number)
		return false, nil
	}
	if !seat.Sellable() {
		return false, ErrNotSellable
	}
	c.seats[seat.Number] = struct{}{}
	return true, nil
}

// Remove drops one seat unconditionally.  Removing the last seat clears
// the initial payment as well.
func (c *Cart) Remove(number int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seats, number)
	if len(c.seats) == 0 {
		c.initial = 0
	}
}

// Clear empties the cart and the initial payment.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seats = map[int]struct{}{}
	c.initial = 0
}

// Seats returns the selected seat numbers in ascending order.
func (c *Cart) Seats() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.seats))
	for n := range c.seats {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of selected seats.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seats)
}

// Contains reports whether number is selected.
func (c *Cart) Contains(number int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seats[number]
	return ok
}

// EstimatedTotal is count × price.  Per-seat pricing is not modeled; the
// backend computes the real total at sale creation.
func (c *Cart) EstimatedTotal(pricePerSeat int64) int64 {
	return int64(c.Len()) * pricePerSeat
}

// SetInitialPayment records the amount to register right after the sale
// is created.  Zero means none.
func (c *Cart) SetInitialPayment(amount int64) error {
	if amount < 0 {
		return ErrNegativePayment
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initial = amount
	return nil
}

// InitialPayment returns the pending initial payment.
func (c *Cart) InitialPayment() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initial
}

// Prune drops every selected seat for which stillSellable is false and
// returns the dropped numbers in ascending order.  It runs after each
// registry refresh so a seat claimed by someone else leaves the cart.
func (c *Cart) Prune(stillSellable func(number int) bool) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped []int
	for n := range c.seats {
		if !stillSellable(n) {
			delete(c.seats, n)
			dropped = append(dropped, n)
		}
	}
	if len(c.seats) == 0 {
		c.initial = 0
	}
	sort.Ints(dropped)
	return dropped
}
