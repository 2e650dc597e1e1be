package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/raffle-console/internal/model"
)

func available(n int) model.Seat {
	return model.Seat{Number: n, State: model.SeatAvailable,
		Caps: model.StateCapabilities{State: model.SeatAvailable}}
}

func sold(n int) model.Seat {
	return model.Seat{Number: n, State: model.SeatSold, SaleID: 1,
		Caps: model.StateCapabilities{State: model.SeatSold}}
}

func TestToggleTwiceRestoresSelection(t *testing.T) {
	c := New()
	_, err := c.Toggle(available(3))
	require.NoError(t, err)
	before := c.Seats()

	added, err := c.Toggle(available(42))
	require.NoError(t, err)
	assert.True(t, added)
	added, err = c.Toggle(available(42))
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, before, c.Seats())
}

func TestToggleRejectsUnsellable(t *testing.T) {
	c := New()
	_, err := c.Toggle(sold(5))
	assert.ErrorIs(t, err, ErrNotSellable)
	assert.Zero(t, c.Len())

	// A seat without resolved capabilities is not sellable either.
	_, err = c.Toggle(model.Seat{Number: 6})
	assert.ErrorIs(t, err, ErrNotSellable)
}

func TestSelectedSeatCanAlwaysBeRemovedByToggle(t *testing.T) {
	c := New()
	_, err := c.Toggle(available(8))
	require.NoError(t, err)
	added, err := c.Toggle(sold(8))
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, c.Contains(8))
}

func TestSortedViewAndEstimate(t *testing.T) {
	c := New()
	for _, n := range []int{42, 7, 19} {
		_, err := c.Toggle(available(n))
		require.NoError(t, err)
	}
	assert.Equal(t, []int{7, 19, 42}, c.Seats())
	assert.Equal(t, int64(105000), c.EstimatedTotal(35000))
}

func TestRemoveLastSeatClearsInitialPayment(t *testing.T) {
	c := New()
	_, _ = c.Toggle(available(1))
	require.NoError(t, c.SetInitialPayment(15000))
	c.Remove(1)
	assert.Zero(t, c.Len())
	assert.Zero(t, c.InitialPayment())
}

func TestClear(t *testing.T) {
	c := New()
	_, _ = c.Toggle(available(1))
	_, _ = c.Toggle(available(2))
	require.NoError(t, c.SetInitialPayment(5000))
	c.Clear()
	assert.Empty(t, c.Seats())
	assert.Zero(t, c.InitialPayment())
}

func TestSetInitialPaymentRejectsNegative(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.SetInitialPayment(-1), ErrNegativePayment)
	assert.NoError(t, c.SetInitialPayment(0))
}

func TestPrune(t *testing.T) {
	c := New()
	for _, n := range []int{1, 2, 3} {
		_, _ = c.Toggle(available(n))
	}
	dropped := c.Prune(func(n int) bool { return n != 2 })
	assert.Equal(t, []int{2}, dropped)
	assert.Equal(t, []int{1, 3}, c.Seats())
}
