package model

import (
	"fmt"

	"github.com/iliyamo/raffle-console/internal/ledger"
)

// Seat describes one numbered slot (puesto) within a draw as last reported
// by the backend.  The console never creates or deletes seats; it only
// mirrors them and asks the backend for transitions.
//
// Fields:
//
//	Number        – seat identity, unique per draw (typically 0–99).
//	State         – normalized availability.
//	SaleID        – sale claiming this seat, 0 when unclaimed.
//	Money         – total/paid/balance of the claiming sale.
//	CustomerName  – denormalized from the sale, empty when unclaimed.
//	CustomerPhone – denormalized from the sale, empty when unclaimed.
//	SaleSeats     – every seat number of the claiming sale.
//	RawStatus     – status string exactly as received.
//	UnknownStatus – RawStatus was not recognized and State failed open.
//	ReleaseKnown  – the record carried money figures or a releasable flag,
//	                so Caps can answer whether the sale may be released.
//	Caps          – capability resolver chosen at decode time.
type Seat struct {
	Number        int            `json:"number"`
	State         SeatState      `json:"state"`
	SaleID        int64          `json:"sale_id,omitempty"`
	Money         ledger.Figures `json:"money"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	SaleSeats     []int          `json:"sale_seats,omitempty"`
	RawStatus     string         `json:"raw_status,omitempty"`
	UnknownStatus bool           `json:"unknown_status,omitempty"`
	ReleaseKnown  bool           `json:"-"`
	Caps          Capabilities   `json:"-"`
}

// HasSale reports whether a sale claims the seat.
func (s Seat) HasSale() bool { return s.SaleID > 0 }

// Sellable is the nil-safe form of Caps.IsSellable.
func (s Seat) Sellable() bool { return s.Caps != nil && s.Caps.IsSellable() }

// Releasable is the nil-safe form of Caps.IsReleasable.
func (s Seat) Releasable() bool { return s.Caps != nil && s.Caps.IsReleasable() }

// CheckSeat verifies the sale/state pairing: an unclaimed seat must be
// AVAILABLE (administrative BLOCKED/VOID excepted, those carry no customer)
// and a claimed one must not be AVAILABLE.
func CheckSeat(s Seat) error {
	if !s.HasSale() && s.State.Occupied() {
		return fmt.Errorf("seat %d is %s without a sale", s.Number, s.State)
	}
	if s.HasSale() && s.State == SeatAvailable {
		return fmt.Errorf("seat %d is AVAILABLE but claimed by sale %d", s.Number, s.SaleID)
	}
	return nil
}
