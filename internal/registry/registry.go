// Package registry holds the client-side seat cache of one draw.  The cache
// is only ever replaced wholesale by Refresh; nothing patches a seat in
// place.  Each Registry is owned by one console session and discarded when
// the session switches draws.
package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/model"
)

// SeatSource fetches the authoritative seat set of a draw.
type SeatSource interface {
	Seats(ctx context.Context, drawID int64) ([]model.Seat, error)
}

// Snapshot is an immutable view of the registry at one refresh.
//
// Fields:
//
//	DrawID    – draw the seats belong to.
//	Seats     – every seat, sorted by number.
//	Version   – request id of the refresh that produced it, 0 before the first.
//	FetchedAt – when that refresh completed.
//	Anomalies – seat numbers whose record breaks the sale/state pairing or
//	            carries an unrecognized status.
type Snapshot struct {
	DrawID    int64        `json:"draw_id"`
	Seats     []model.Seat `json:"seats"`
	Version   uint64       `json:"version"`
	FetchedAt time.Time    `json:"fetched_at"`
	Anomalies []int        `json:"anomalies,omitempty"`
}

// Get returns the seat with the given number.
func (s Snapshot) Get(number int) (model.Seat, bool) {
	i := sort.Search(len(s.Seats), func(i int) bool { return s.Seats[i].Number >= number })
	if i < len(s.Seats) && s.Seats[i].Number == number {
		return s.Seats[i], true
	}
	return model.Seat{}, false
}

// SeatsOfSale lists the seats currently claimed by saleID.
func (s Snapshot) SeatsOfSale(saleID int64) []int {
	var out []int
	for _, seat := range s.Seats {
		if seat.SaleID == saleID {
			out = append(out, seat.Number)
		}
	}
	return out
}

// Occupancy counts sold (RESERVED or SOLD) and remaining seats.
func (s Snapshot) Occupancy() model.Occupancy {
	o := model.Occupancy{Total: len(s.Seats)}
	for _, seat := range s.Seats {
		if seat.State.Occupied() {
			o.Sold++
		}
	}
	o.Remaining = o.Total - o.Sold
	return o
}

// Registry is the seat cache for one draw.
type Registry struct {
	src    SeatSource
	drawID int64

	seq atomic.Uint64

	mu   sync.RWMutex
	snap Snapshot
}

// New returns an empty registry for drawID.  Call Refresh to populate it.
func New(src SeatSource, drawID int64) *Registry {
	return &Registry{src: src, drawID: drawID, snap: Snapshot{DrawID: drawID}}
}

// DrawID returns the draw this registry mirrors.
func (r *Registry) DrawID() int64 { return r.drawID }

// Refresh refetches every seat and replaces the registry.  Concurrent
// refreshes are tagged with a monotonic request id; a response older than
// the one already applied is discarded and the current snapshot returned,
// so a slow stale refresh can never roll the grid back.  A stale failure is
// discarded the same way.  On error the registry keeps its previous contents.
func (r *Registry) Refresh(ctx context.Context) (Snapshot, error) {
	id := r.seq.Add(1)

	seats, err := r.src.Seats(ctx, r.drawID)
	if err != nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		if id < r.snap.Version {
			log.Debugf("registry: draw %d discarded stale refresh %d failure: %v", r.drawID, id, err)
			return r.snap, nil
		}
		return r.snap, err
	}

	next := build(r.drawID, id, seats)

	r.mu.Lock()
	defer r.mu.Unlock()
	if id < r.snap.Version {
		log.Debugf("registry: draw %d discarded stale refresh %d (applied %d)", r.drawID, id, r.snap.Version)
		return r.snap, nil
	}
	r.snap = next
	return next, nil
}

// Snapshot returns the current contents.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Get returns the seat with the given number.
func (r *Registry) Get(number int) (model.Seat, bool) {
	return r.Snapshot().Get(number)
}

// StatusOf returns the state of a seat, false when the seat is unknown.
func (r *Registry) StatusOf(number int) (model.SeatState, bool) {
	s, ok := r.Get(number)
	return s.State, ok
}

// IsSellable reports whether the seat is currently sellable.  Unknown seats
// are not.
func (r *Registry) IsSellable(number int) bool {
	s, ok := r.Get(number)
	return ok && s.Sellable()
}

func build(drawID int64, version uint64, seats []model.Seat) Snapshot {
	byNumber := make(map[int]model.Seat, len(seats))
	for _, s := range seats {
		byNumber[s.Number] = s
	}
	out := make([]model.Seat, 0, len(byNumber))
	for _, s := range byNumber {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	var anomalies []int
	for _, s := range out {
		if s.UnknownStatus || model.CheckSeat(s) != nil {
			anomalies = append(anomalies, s.Number)
		}
	}
	if len(anomalies) > 0 {
		log.Warnf("registry: draw %d has %d seat(s) with inconsistent status: %v", drawID, len(anomalies), anomalies)
	}
	return Snapshot{
		DrawID:    drawID,
		Seats:     out,
		Version:   version,
		FetchedAt: time.Now(),
		Anomalies: anomalies,
	}
}
