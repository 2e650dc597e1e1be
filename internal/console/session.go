// Package console holds the per-operator view of the raffle: the seat grid
// of the active draw, the selection being assembled, the sale context the
// operator has open and the single current-error slot.  It composes the
// registry, selection and settlement packages; the HTTP handlers only talk
// to a Session.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/registry"
	"github.com/iliyamo/raffle-console/internal/selection"
	"github.com/iliyamo/raffle-console/internal/settlement"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// ErrUnknownSeat is returned for a seat number the registry does not hold.
var ErrUnknownSeat = errors.New("seat does not exist in this draw")

// Backend is what a session needs from the backend connection.
type Backend interface {
	settlement.Backend
	registry.SeatSource
	registry.DrawSource
}

// ContextView is the read-only panel opened for an occupied seat.  Stale is
// set when a later refresh changed the seat underneath it.
type ContextView struct {
	Seat                model.Seat         `json:"seat"`
	Summary             *model.SaleSummary `json:"summary,omitempty"`
	Releasable          bool               `json:"releasable"`
	ReleaseSeats        []int              `json:"release_seats,omitempty"`
	ReleaseConfirmation string             `json:"release_confirmation,omitempty"`
	Stale               bool               `json:"stale"`
	Notice              string             `json:"notice,omitempty"`
}

// GridView is what the operator's grid renders.
type GridView struct {
	DrawID         int64           `json:"draw_id"`
	DrawName       string          `json:"draw_name,omitempty"`
	SeatPrice      int64           `json:"seat_price"`
	Seats          []model.Seat    `json:"seats"`
	Version        uint64          `json:"version"`
	FetchedAt      time.Time       `json:"fetched_at"`
	Anomalies      []int           `json:"anomalies,omitempty"`
	Occupancy      model.Occupancy `json:"occupancy"`
	Selection      []int           `json:"selection"`
	EstimatedTotal int64           `json:"estimated_total"`
	InitialPayment int64           `json:"initial_payment"`
	State          string          `json:"state"`
	Problem        *Problem        `json:"problem,omitempty"`
	Context        *ContextView    `json:"context,omitempty"`
	Notice         string          `json:"notice,omitempty"`
}

// ToggleResult tells the caller whether the seat went into the selection or
// a context view was opened instead.
type ToggleResult struct {
	Added    bool         `json:"added"`
	Selected bool         `json:"selected"`
	Context  *ContextView `json:"context,omitempty"`
}

// Session is one operator's console.  It is safe for concurrent use.
type Session struct {
	operator model.Operator
	conn     Backend
	settings Settings
	shared   Shared

	mu       sync.Mutex
	draw     model.Draw
	price    int64
	reg      *registry.Registry
	cart     *selection.Cart
	orch     *settlement.Orchestrator
	problem  *Problem
	ctxView  *ContextView
	lastUsed time.Time
}

func newSession(op model.Operator, conn Backend, settings Settings, shared Shared) *Session {
	s := &Session{operator: op, conn: conn, settings: settings, shared: shared, lastUsed: time.Now()}
	// Until Load runs the session shows the default draw, empty.
	s.install(model.Draw{ID: settings.DefaultDrawID})
	return s
}

// Operator returns the session owner.
func (s *Session) Operator() model.Operator { return s.operator }

// Load resolves the active draw and builds a fresh registry, selection and
// orchestrator for it.  A session that is submitting cannot switch draws.
func (s *Session) Load(ctx context.Context) error {
	_, _, orch := s.parts()
	if orch.State() == settlement.StateSubmitting {
		return settlement.ErrBusy
	}
	draw := registry.ResolveActiveDraw(ctx, s.conn, s.settings.DefaultDrawID)
	s.install(draw)
	log.Infof("console: operator %s opened draw %d", s.operator.Key(), draw.ID)
	return s.Refresh(ctx)
}

func (s *Session) install(draw model.Draw) {
	reg := registry.New(s.conn, draw.ID)
	orch := settlement.New(settlement.Deps{
		Backend:  s.conn,
		Registry: reg,
		Journal:  s.shared.Journal,
		Events:   s.shared.Events,
		Reports:  s.shared.Reports,
		Receipts: s.shared.Receipts,
		Operator: s.operator.Key(),
	})
	price := s.settings.SeatPrice
	if draw.SeatPrice > 0 {
		price = draw.SeatPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw, s.price, s.reg, s.orch = draw, price, reg, orch
	s.cart = selection.New()
	s.ctxView = nil
}

// parts returns the components under lock.
func (s *Session) parts() (*registry.Registry, *selection.Cart, *settlement.Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return s.reg, s.cart, s.orch
}

// Refresh refetches the grid and reconciles the selection and context view.
func (s *Session) Refresh(ctx context.Context) error {
	reg, _, _ := s.parts()
	snap, err := reg.Refresh(ctx)
	if err != nil {
		s.report(err, "refresh")
		return err
	}
	s.reconcile(snap)
	s.clearProblemFrom("refresh")
	return nil
}

// reconcile runs after every refresh: seats no longer sellable leave the
// selection, and an open context view is checked against the new seat.
func (s *Session) reconcile(snap registry.Snapshot) {
	_, cart, _ := s.parts()
	isSellable := func(n int) bool {
		seat, ok := snap.Get(n)
		return ok && seat.Sellable()
	}
	if dropped := cart.Prune(isSellable); len(dropped) > 0 {
		log.Infof("console: operator %s lost seats %v from the selection", s.operator.Key(), dropped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctxView == nil {
		return
	}
	// Views handed out earlier are never mutated; a changed view is replaced.
	next := *s.ctxView
	cur, ok := snap.Get(next.Seat.Number)
	switch {
	case next.Summary != nil && !next.Seat.HasSale():
		// opened by sale id, no seat in the grid to compare with
		return
	case !ok:
		next.Stale = true
		next.Notice = "this seat is no longer in the draw"
	case cur.SaleID != next.Seat.SaleID:
		next = ContextView{Seat: cur, Releasable: cur.Releasable(), Stale: true,
			Notice: "this seat changed hands while open; review it again"}
		s.fillRelease(&next, snap)
	case cur.State != next.Seat.State || cur.Money != next.Seat.Money:
		next.Seat = cur
		next.Releasable = cur.Releasable()
		next.Stale = true
		next.Notice = "this seat was updated while open"
		s.fillRelease(&next, snap)
	default:
		return
	}
	s.ctxView = &next
}

// Grid returns the current view.
func (s *Session) Grid() GridView {
	reg, cart, orch := s.parts()
	snap := reg.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	v := GridView{
		DrawID:         snap.DrawID,
		DrawName:       s.draw.Name,
		SeatPrice:      s.price,
		Seats:          snap.Seats,
		Version:        snap.Version,
		FetchedAt:      snap.FetchedAt,
		Anomalies:      snap.Anomalies,
		Occupancy:      snap.Occupancy(),
		Selection:      cart.Seats(),
		EstimatedTotal: cart.EstimatedTotal(s.price),
		InitialPayment: cart.InitialPayment(),
		State:          orch.State(),
	}
	if s.problem != nil {
		p := *s.problem
		v.Problem = &p
	}
	if s.ctxView != nil {
		c := *s.ctxView
		v.Context = &c
	}
	switch {
	case snap.Version == 0:
		v.Notice = "the grid has not been loaded yet"
	case len(snap.Seats) == 0:
		v.Notice = fmt.Sprintf("draw %d has no seats", snap.DrawID)
	case len(snap.Anomalies) > 0:
		v.Notice = fmt.Sprintf("seats %v have an inconsistent status; verify them before selling", snap.Anomalies)
	}
	return v
}

// Toggle adds or removes a sellable seat.  For any other seat it opens the
// context view instead, fetching the sale summary when the seat has a sale.
func (s *Session) Toggle(ctx context.Context, number int) (ToggleResult, error) {
	reg, cart, _ := s.parts()
	seat, ok := reg.Get(number)
	if !ok {
		return ToggleResult{}, ErrUnknownSeat
	}
	if cart.Contains(number) || seat.Sellable() {
		added, err := cart.Toggle(seat)
		if err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{Added: added, Selected: added}, nil
	}
	view, err := s.openContext(ctx, seat)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Context: view}, nil
}

// OpenSale opens the context view of a sale by id, using the first seat the
// registry holds for it.
func (s *Session) OpenSale(ctx context.Context, saleID int64) (*ContextView, error) {
	reg, _, _ := s.parts()
	snap := reg.Snapshot()
	for _, seat := range snap.Seats {
		if seat.SaleID == saleID {
			return s.openContext(ctx, seat)
		}
	}
	sum, err := s.conn.SaleSummary(ctx, saleID)
	if err != nil {
		s.report(err, "sale summary")
		return nil, err
	}
	view := &ContextView{Summary: &sum, Releasable: sum.Releasable()}
	s.mu.Lock()
	s.ctxView = view
	s.mu.Unlock()
	return view, nil
}

func (s *Session) openContext(ctx context.Context, seat model.Seat) (*ContextView, error) {
	view := &ContextView{Seat: seat, Releasable: seat.Releasable()}
	if seat.HasSale() {
		sum, err := s.conn.SaleSummary(ctx, seat.SaleID)
		if err != nil {
			s.report(err, "sale summary")
			return nil, err
		}
		view.Summary = &sum
		if sum.CanRelease != nil {
			view.Releasable = *sum.CanRelease
		}
	}
	reg, _, _ := s.parts()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillRelease(view, reg.Snapshot())
	s.ctxView = view
	return view, nil
}

// fillRelease sets the seats a release would free and the confirmation
// copy.  The copy always names every seat of the sale.
func (s *Session) fillRelease(view *ContextView, snap registry.Snapshot) {
	view.ReleaseSeats, view.ReleaseConfirmation = nil, ""
	if !view.Seat.HasSale() {
		return
	}
	view.ReleaseSeats = settlement.SaleSeats(snap, view.Seat.SaleID)
	view.ReleaseConfirmation = ReleaseConfirmation(view.Seat.SaleID, view.ReleaseSeats)
}

// ReleaseConfirmation renders the text the operator confirms before a
// release.
func ReleaseConfirmation(saleID int64, seats []int) string {
	nums := make([]string, len(seats))
	for i, n := range seats {
		nums[i] = fmt.Sprintf("%02d", n)
	}
	switch len(seats) {
	case 0:
		return fmt.Sprintf("Releasing sale %d frees every seat it holds.", saleID)
	case 1:
		return fmt.Sprintf("Releasing sale %d frees seat %s.", saleID, nums[0])
	}
	return fmt.Sprintf("Releasing sale %d frees ALL of its %d seats: %s. Every one of them becomes available again.",
		saleID, len(seats), strings.Join(nums, ", "))
}

// ReleasePreview returns the seats a release of saleID would free, as the
// grid knows them, and the confirmation copy naming them.
func (s *Session) ReleasePreview(saleID int64) ([]int, string) {
	reg, _, _ := s.parts()
	seats := settlement.SaleSeats(reg.Snapshot(), saleID)
	return seats, ReleaseConfirmation(saleID, seats)
}

// CloseContext closes the context view.
func (s *Session) CloseContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxView = nil
}

// RemoveSelected drops one seat from the selection.
func (s *Session) RemoveSelected(number int) {
	_, cart, _ := s.parts()
	cart.Remove(number)
}

// ClearSelection cancels the sale being assembled.
func (s *Session) ClearSelection() {
	_, cart, _ := s.parts()
	cart.Clear()
}

// SetInitialPayment sets the abono registered right after the sale.
func (s *Session) SetInitialPayment(amount int64) error {
	_, cart, _ := s.parts()
	if err := cart.SetInitialPayment(amount); err != nil {
		return validation.Errors{"initial_payment": err.Error()}
	}
	return nil
}

// CreateSale submits the current selection for customer.
func (s *Session) CreateSale(ctx context.Context, customer validation.CustomerForm, method string) (settlement.Result, error) {
	reg, cart, orch := s.parts()
	res, err := orch.CreateSale(ctx, settlement.SaleInput{
		DrawID:         reg.DrawID(),
		Seats:          cart.Seats(),
		Customer:       customer,
		InitialPayment: cart.InitialPayment(),
		PaymentMethod:  method,
		Selection:      cart,
	})
	return res, s.finish(res, err, "create sale")
}

// RegisterPayment registers an abono.  The balance last seen in the grid is
// used for the soft check.
func (s *Session) RegisterPayment(ctx context.Context, saleID int64, in settlement.PaymentInput) (settlement.Result, error) {
	reg, _, orch := s.parts()
	if in.KnownBalance == nil {
		for _, seat := range reg.Snapshot().Seats {
			if seat.SaleID == saleID {
				b := seat.Money.Balance
				in.KnownBalance = &b
				break
			}
		}
	}
	res, err := orch.RegisterPayment(ctx, saleID, in)
	return res, s.finish(res, err, "register payment")
}

// ReleaseCupo releases every seat of a sale.  The gate comes from the open
// context view when it shows this sale, else from the grid when the seat
// record carried money figures.
func (s *Session) ReleaseCupo(ctx context.Context, saleID int64) (settlement.Result, error) {
	reg, _, orch := s.parts()

	var gate settlement.ReleaseGate
	s.mu.Lock()
	if v := s.ctxView; v != nil && !v.Stale && v.Summary != nil && v.Summary.SaleID == saleID {
		if v.Summary.CanRelease != nil {
			gate.CanRelease = v.Summary.CanRelease
		} else {
			b := v.Summary.Money.Balance
			gate.Balance = &b
		}
	}
	s.mu.Unlock()
	if gate.CanRelease == nil && gate.Balance == nil {
		// A grid record without money or flag leaves the gate empty; the
		// orchestrator then asks for the sale summary.
		for _, seat := range reg.Snapshot().Seats {
			if seat.SaleID == saleID && seat.ReleaseKnown {
				ok := seat.Releasable()
				gate.CanRelease = &ok
				break
			}
		}
	}

	res, err := orch.ReleaseCupo(ctx, saleID, gate)
	if err == nil {
		s.CloseContext()
	}
	return res, s.finish(res, err, "release cupo")
}

// finish reconciles after a mutation and updates the error slot.
// Validation errors stay with the form and never reach the slot.
func (s *Session) finish(res settlement.Result, err error, op string) error {
	if res.Snapshot.Version > 0 {
		s.reconcile(res.Snapshot)
	}
	if err != nil {
		s.report(err, op)
		return err
	}
	if res.RefreshErr != nil {
		s.report(res.RefreshErr, "refresh")
		return nil
	}
	s.clearProblem()
	return nil
}

func (s *Session) report(err error, op string) {
	p := Classify(err, op)
	if p.Kind == KindValidation {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problem = &p
}

func (s *Session) clearProblem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problem = nil
}

// clearProblemFrom clears the slot only when it holds an error of op, so a
// plain refresh does not hide a pending partial success.
func (s *Session) clearProblemFrom(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.problem != nil && s.problem.Operation == op {
		s.problem = nil
	}
}

// Problem returns the current error, nil when none.
func (s *Session) Problem() *Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.problem
}

// DismissProblem clears the error slot.
func (s *Session) DismissProblem() { s.clearProblem() }

// Occupancy summarizes the current grid.
func (s *Session) Occupancy() model.Occupancy {
	reg, _, _ := s.parts()
	return reg.Snapshot().Occupancy()
}

// Close waits for background settlement work.
func (s *Session) Close() {
	_, _, orch := s.parts()
	if orch != nil {
		orch.Wait()
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
