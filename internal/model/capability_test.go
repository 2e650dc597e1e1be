package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestParseSeatState(t *testing.T) {
	tests := []struct {
		raw   string
		want  SeatState
		known bool
	}{
		{"DISPONIBLE", SeatAvailable, true},
		{" reservado ", SeatReserved, true},
		{"PAGADO", SeatSold, true},
		{"BLOQUEADO", SeatBlocked, true},
		{"ANULADO", SeatVoid, true},
		{"SOLD", SeatSold, true},
		{"PAGAD0", SeatAvailable, false},
		{"", SeatAvailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, known := ParseSeatState(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestStateCapabilities(t *testing.T) {
	strict := Policy{}
	lenient := Policy{VoidResellable: true}

	tests := []struct {
		name       string
		caps       StateCapabilities
		sellable   bool
		releasable bool
	}{
		{"available", StateCapabilities{State: SeatAvailable, Policy: strict}, true, false},
		{"reserved owing", StateCapabilities{State: SeatReserved, Balance: 20000, Policy: strict}, false, true},
		{"reserved zero balance", StateCapabilities{State: SeatReserved, Policy: strict}, false, false},
		{"sold", StateCapabilities{State: SeatSold, Policy: strict}, false, false},
		{"blocked", StateCapabilities{State: SeatBlocked, Policy: lenient}, false, false},
		{"void strict", StateCapabilities{State: SeatVoid, Policy: strict}, false, false},
		{"void resellable", StateCapabilities{State: SeatVoid, Policy: lenient}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sellable, tt.caps.IsSellable())
			assert.Equal(t, tt.releasable, tt.caps.IsReleasable())
		})
	}
}

func TestResolveCapabilitiesPrefersFlags(t *testing.T) {
	// The state says AVAILABLE but the backend forbids selling (draw override).
	caps := ResolveCapabilities(SeatAvailable, 0, CapabilityFlags{Sellable: boolPtr(false)}, Policy{})
	assert.IsType(t, FlagCapabilities{}, caps)
	assert.False(t, caps.IsSellable())
	// Missing flags fall back to the state table.
	assert.True(t, caps.IsAvailable())
	assert.False(t, caps.IsReleasable())

	caps = ResolveCapabilities(SeatSold, 0, CapabilityFlags{Releasable: boolPtr(true)}, Policy{})
	assert.True(t, caps.IsReleasable())
}

func TestResolveCapabilitiesWithoutFlags(t *testing.T) {
	caps := ResolveCapabilities(SeatReserved, 5000, CapabilityFlags{}, Policy{})
	assert.IsType(t, StateCapabilities{}, caps)
	assert.True(t, caps.IsReleasable())
}

func TestCheckSeat(t *testing.T) {
	assert.NoError(t, CheckSeat(Seat{Number: 1, State: SeatAvailable}))
	assert.NoError(t, CheckSeat(Seat{Number: 2, State: SeatReserved, SaleID: 9}))
	assert.NoError(t, CheckSeat(Seat{Number: 3, State: SeatBlocked}))
	assert.Error(t, CheckSeat(Seat{Number: 4, State: SeatSold}))
	assert.Error(t, CheckSeat(Seat{Number: 5, State: SeatAvailable, SaleID: 9}))
}

func TestSaleSummaryReleasable(t *testing.T) {
	s := SaleSummary{}
	s.Money.Balance = 100
	assert.True(t, s.Releasable())
	s.CanRelease = boolPtr(false)
	assert.False(t, s.Releasable())
	s = SaleSummary{}
	assert.False(t, s.Releasable())
}
