package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/raffle-console/internal/model"
)

const (
	waitFor   = time.Second
	pollEvery = 5 * time.Millisecond
)

type fakeSeats struct {
	mu    sync.Mutex
	calls int
	// responses are served in call order; gates, when set for a call
	// index, block that call until closed.
	responses [][]model.Seat
	gates     map[int]chan struct{}
	errs      map[int]error
	err       error
}

func (f *fakeSeats) Seats(ctx context.Context, drawID int64) ([]model.Seat, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	gate := f.gates[n]
	callErr := f.errs[n]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if callErr != nil {
		return nil, callErr
	}
	if f.err != nil {
		return nil, f.err
	}
	if n >= len(f.responses) {
		n = len(f.responses) - 1
	}
	return f.responses[n], nil
}

func seat(n int, st model.SeatState, sale int64) model.Seat {
	return model.Seat{Number: n, State: st, SaleID: sale,
		Caps: model.ResolveCapabilities(st, 0, model.CapabilityFlags{}, model.Policy{})}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	src := &fakeSeats{responses: [][]model.Seat{
		{seat(2, model.SeatAvailable, 0), seat(1, model.SeatAvailable, 0)},
		{seat(1, model.SeatSold, 9)},
	}}
	r := New(src, 7)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.DrawID)
	require.Len(t, snap.Seats, 2)
	assert.Equal(t, 1, snap.Seats[0].Number)
	assert.True(t, r.IsSellable(2))

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	_, ok := r.Get(2)
	assert.False(t, ok, "seat missing from the latest fetch must be gone")
	st, ok := r.StatusOf(1)
	assert.True(t, ok)
	assert.Equal(t, model.SeatSold, st)
}

func TestRefreshIsIdempotent(t *testing.T) {
	src := &fakeSeats{responses: [][]model.Seat{
		{seat(1, model.SeatAvailable, 0), seat(2, model.SeatReserved, 4)},
	}}
	r := New(src, 1)
	a, err := r.Refresh(context.Background())
	require.NoError(t, err)
	b, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Seats, b.Seats)
	assert.Equal(t, a.Anomalies, b.Anomalies)
	assert.Greater(t, b.Version, a.Version)
}

func TestRefreshErrorKeepsPreviousContents(t *testing.T) {
	src := &fakeSeats{responses: [][]model.Seat{{seat(1, model.SeatAvailable, 0)}}}
	r := New(src, 1)
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	src.err = errors.New("boom")
	snap, err := r.Refresh(context.Background())
	assert.Error(t, err)
	assert.Len(t, snap.Seats, 1)
	assert.True(t, r.IsSellable(1))
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	src := &fakeSeats{
		responses: [][]model.Seat{
			{seat(5, model.SeatAvailable, 0)}, // first request, old view
			{seat(5, model.SeatSold, 3)},      // second request, newer view
		},
		gates: map[int]chan struct{}{0: slow},
	}
	r := New(src, 1)

	done := make(chan Snapshot)
	go func() {
		s, _ := r.Refresh(context.Background())
		done <- s
	}()
	// Wait until the first request is in flight before issuing the second.
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, waitFor, pollEvery)

	newer, err := r.Refresh(context.Background())
	require.NoError(t, err)
	close(slow)
	older := <-done

	assert.Equal(t, newer.Version, older.Version, "stale response returns the applied snapshot")
	st, _ := r.StatusOf(5)
	assert.Equal(t, model.SeatSold, st)
}

func TestStaleRefreshFailureIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	src := &fakeSeats{
		responses: [][]model.Seat{
			nil,
			{seat(5, model.SeatSold, 3)},
		},
		gates: map[int]chan struct{}{0: slow},
		errs:  map[int]error{0: errors.New("connection reset")},
	}
	r := New(src, 1)

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result)
	go func() {
		s, err := r.Refresh(context.Background())
		done <- result{s, err}
	}()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, waitFor, pollEvery)

	newer, err := r.Refresh(context.Background())
	require.NoError(t, err)
	close(slow)
	older := <-done

	assert.NoError(t, older.err, "a failure older than the applied grid is dropped")
	assert.Equal(t, newer.Version, older.snap.Version)
	st, _ := r.StatusOf(5)
	assert.Equal(t, model.SeatSold, st)
}

func TestAnomaliesAreReported(t *testing.T) {
	unknown := seat(3, model.SeatAvailable, 0)
	unknown.UnknownStatus = true
	src := &fakeSeats{responses: [][]model.Seat{{
		seat(1, model.SeatSold, 0),      // claimed state without a sale
		seat(2, model.SeatAvailable, 8), // sale on an available seat
		unknown,
		seat(4, model.SeatBlocked, 0),
	}}}
	snap, err := New(src, 1).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, snap.Anomalies)
}

func TestSnapshotHelpers(t *testing.T) {
	snap := build(1, 1, []model.Seat{
		seat(1, model.SeatReserved, 9),
		seat(2, model.SeatSold, 9),
		seat(3, model.SeatAvailable, 0),
		seat(4, model.SeatBlocked, 0),
	})
	assert.Equal(t, []int{1, 2}, snap.SeatsOfSale(9))
	assert.Equal(t, model.Occupancy{Total: 4, Sold: 2, Remaining: 2}, snap.Occupancy())
}

type fakeDraws struct {
	draws []model.Draw
	err   error
}

func (f fakeDraws) Draws(context.Context) ([]model.Draw, error) { return f.draws, f.err }

func TestResolveActiveDraw(t *testing.T) {
	tests := []struct {
		name string
		src  fakeDraws
		want int64
	}{
		{"highest active", fakeDraws{draws: []model.Draw{
			{ID: 3, State: "ACTIVO"}, {ID: 9, State: "REALIZADO"}, {ID: 5, State: "activo"},
		}}, 5},
		{"none active", fakeDraws{draws: []model.Draw{{ID: 2, State: "CANCELADO"}}}, 1},
		{"list fails", fakeDraws{err: errors.New("down")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveActiveDraw(context.Background(), tt.src, 1).ID)
		})
	}
}
