// Package settlement drives the multi-step backend transactions of the
// console: creating a sale with an optional initial payment, registering
// payments and releasing a sale's cupo.  Every mutation is followed by a
// full registry refresh; no seat is ever patched locally.
package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/ledger"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/queue"
	"github.com/iliyamo/raffle-console/internal/registry"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// Orchestrator states.
const (
	StateIdle       = "IDLE"
	StateSubmitting = "SUBMITTING"
)

// Backend is the subset of the backend connection the orchestrator drives.
type Backend interface {
	CreateSale(ctx context.Context, req model.SaleRequest) (model.SaleCreated, error)
	RegisterPayment(ctx context.Context, saleID int64, req model.PaymentRequest) (model.PaymentReceipt, error)
	SaleSummary(ctx context.Context, saleID int64) (model.SaleSummary, error)
	ReleaseSale(ctx context.Context, saleID int64) error
	Receipt(ctx context.Context, saleID int64) ([]byte, error)
}

// Registry is the seat cache refreshed after every mutation.
type Registry interface {
	Refresh(ctx context.Context) (registry.Snapshot, error)
	Snapshot() registry.Snapshot
}

// Journal records operation outcomes.
type Journal interface {
	Record(ctx context.Context, e model.JournalEntry) error
}

// Publisher emits settlement events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SettlementEvent) error
}

// Invalidator drops cached reports.
type Invalidator interface {
	Invalidate(ctx context.Context, scopes ...string) error
}

// ReceiptStore keeps downloaded receipts.
type ReceiptStore interface {
	Save(saleID int64, data []byte) error
}

// Clearer is the selection emptied once a sale commits.
type Clearer interface {
	Clear()
}

// Deps wires an Orchestrator.  Backend and Registry are required; the rest
// are optional and skipped when nil.
type Deps struct {
	Backend  Backend
	Registry Registry
	Journal  Journal
	Events   Publisher
	Reports  Invalidator
	Receipts ReceiptStore
	Operator string
}

// Orchestrator runs one operation at a time for one console session.
type Orchestrator struct {
	d          Deps
	submitting atomic.Bool
	bg         sync.WaitGroup
}

// New returns an Orchestrator.
func New(d Deps) *Orchestrator {
	return &Orchestrator{d: d}
}

// State reports IDLE or SUBMITTING.
func (o *Orchestrator) State() string {
	if o.submitting.Load() {
		return StateSubmitting
	}
	return StateIdle
}

// Wait blocks until background work (receipt downloads, journal writes,
// event publishing) has finished.
func (o *Orchestrator) Wait() { o.bg.Wait() }

// Result describes a finished operation.  Snapshot is the registry after
// the post-mutation refresh; RefreshErr is set when that refresh failed and
// the grid may be out of date.
type Result struct {
	Operation  string            `json:"operation"`
	Outcome    string            `json:"outcome"`
	SaleID     int64             `json:"sale_id,omitempty"`
	Total      int64             `json:"total,omitempty"`
	Seats      []int             `json:"seats,omitempty"`
	Amount     int64             `json:"amount,omitempty"`
	Snapshot   registry.Snapshot `json:"-"`
	RefreshErr error             `json:"-"`
}

// SaleInput is a CreateSale request.
type SaleInput struct {
	DrawID         int64
	Seats          []int
	Customer       validation.CustomerForm
	InitialPayment int64
	PaymentMethod  string
	Selection      Clearer
}

// PaymentInput is a RegisterPayment request.  KnownBalance enables the
// client-side soft check when the caller has a fresh figure.
type PaymentInput struct {
	Amount       int64
	Method       string
	Reference    string
	Note         string
	KnownBalance *int64
}

// ReleaseGate carries whatever the caller already knows about whether the
// sale may be released.  The flag wins over the balance; with neither, the
// sale summary is fetched.
type ReleaseGate struct {
	CanRelease *bool
	Balance    *int64
}

func (o *Orchestrator) begin() error {
	if !o.submitting.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (o *Orchestrator) end() { o.submitting.Store(false) }

// CreateSale validates locally, asks the backend to claim every seat in one
// transaction, optionally registers the initial payment and refreshes the
// registry.  A failed initial payment yields PARTIAL_SUCCESS together with a
// *PartialSuccessError; the sale stays committed.
func (o *Orchestrator) CreateSale(ctx context.Context, in SaleInput) (Result, error) {
	res := Result{Operation: model.OpCreateSale, Outcome: model.OutcomeFailed}

	seats := uniqueSorted(in.Seats)
	verr := validation.Merge(validation.ValidateSelection(seats), validation.ValidateCustomer(in.Customer))
	if in.InitialPayment < 0 {
		verr = validation.Merge(verr, validation.Errors{"initial_payment": "initial payment cannot be negative"})
	}
	if verr != nil {
		return res, verr
	}

	if err := o.begin(); err != nil {
		return res, err
	}
	defer o.end()

	res.Seats = seats
	created, err := o.d.Backend.CreateSale(ctx, model.SaleRequest{
		DrawID:   in.DrawID,
		Seats:    seats,
		Customer: in.Customer.Customer(),
	})
	if err != nil {
		var rej *backend.RejectionError
		if errors.As(err, &rej) && rej.Business() {
			// The usual cause is a seat taken by someone else; refreshing
			// lets the grid and the selection converge.
			res.Snapshot, res.RefreshErr = o.d.Registry.Refresh(ctx)
		}
		o.record(res, in.DrawID, err, "")
		return res, &SaleCreationError{Reason: backend.Reason(err), Err: err}
	}

	res.SaleID = created.SaleID
	res.Total = created.Total
	res.Outcome = model.OutcomeSuccess
	o.fetchReceipt(ctx, created.SaleID)

	var partial error
	if in.InitialPayment > 0 {
		res.Amount = in.InitialPayment
		_, perr := o.d.Backend.RegisterPayment(ctx, created.SaleID, model.PaymentRequest{
			Amount: in.InitialPayment,
			Method: in.PaymentMethod,
			Note:   "abono inicial",
		})
		if perr != nil {
			res.Outcome = model.OutcomePartialSuccess
			partial = &PartialSuccessError{SaleID: created.SaleID, Amount: in.InitialPayment, Cause: perr}
		}
	}

	res.Snapshot, res.RefreshErr = o.d.Registry.Refresh(ctx)
	if in.Selection != nil {
		in.Selection.Clear()
	}
	o.invalidate(ctx, reportcache.ScopeReceivables, reportcache.ScopeProductivity)

	o.record(res, in.DrawID, partial, queue.EventSaleCreated)
	if partial != nil {
		o.publish(res, in.DrawID, queue.EventPaymentFailed, partial.Error())
	} else if res.Amount > 0 {
		o.publish(res, in.DrawID, queue.EventPaymentRegistered, "")
	}
	return res, partial
}

// RegisterPayment records one abono and refreshes the registry.  The soft
// check only runs when the caller knows the balance; the backend may still
// reject the amount.
func (o *Orchestrator) RegisterPayment(ctx context.Context, saleID int64, in PaymentInput) (Result, error) {
	res := Result{Operation: model.OpRegisterPayment, Outcome: model.OutcomeFailed, SaleID: saleID, Amount: in.Amount}

	if in.Amount <= 0 {
		return res, validation.Errors{"amount": ledger.ErrNonPositivePayment.Error()}
	}
	if in.KnownBalance != nil {
		if err := (ledger.Figures{Balance: *in.KnownBalance}).CheckPayment(in.Amount); err != nil {
			return res, validation.Errors{"amount": err.Error()}
		}
	}

	if err := o.begin(); err != nil {
		return res, err
	}
	defer o.end()

	drawID := o.d.Registry.Snapshot().DrawID
	res.Seats = o.d.Registry.Snapshot().SeatsOfSale(saleID)
	if _, err := o.d.Backend.RegisterPayment(ctx, saleID, model.PaymentRequest{
		Amount:    in.Amount,
		Method:    in.Method,
		Reference: in.Reference,
		Note:      in.Note,
	}); err != nil {
		o.record(res, drawID, err, "")
		return res, err
	}

	res.Outcome = model.OutcomeSuccess
	res.Snapshot, res.RefreshErr = o.d.Registry.Refresh(ctx)
	o.invalidate(ctx, reportcache.ScopeReceivables, reportcache.ScopeProductivity)
	o.record(res, drawID, nil, queue.EventPaymentRegistered)
	return res, nil
}

// ReleaseCupo frees every seat of a sale.  A fully paid sale is rejected
// locally with ErrNotReleasable.  After the backend confirms, the refreshed
// registry must show none of the sale's seats still claimed; otherwise a
// *PartialReleaseError is returned.
func (o *Orchestrator) ReleaseCupo(ctx context.Context, saleID int64, gate ReleaseGate) (Result, error) {
	res := Result{Operation: model.OpReleaseCupo, Outcome: model.OutcomeFailed, SaleID: saleID}

	if err := o.begin(); err != nil {
		return res, err
	}
	defer o.end()

	before := o.d.Registry.Snapshot()
	res.Seats = SaleSeats(before, saleID)

	ok, err := o.releasable(ctx, saleID, gate)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, ErrNotReleasable
	}

	if err := o.d.Backend.ReleaseSale(ctx, saleID); err != nil {
		o.record(res, before.DrawID, err, "")
		return res, err
	}

	res.Snapshot, res.RefreshErr = o.d.Registry.Refresh(ctx)
	o.invalidate(ctx, reportcache.ScopeReceivables, reportcache.ScopeProductivity)
	if res.RefreshErr == nil {
		if remaining := res.Snapshot.SeatsOfSale(saleID); len(remaining) > 0 {
			perr := &PartialReleaseError{SaleID: saleID, Remaining: remaining}
			o.record(res, before.DrawID, perr, "")
			return res, perr
		}
	}
	res.Outcome = model.OutcomeSuccess
	o.record(res, before.DrawID, nil, queue.EventCupoReleased)
	return res, nil
}

func (o *Orchestrator) releasable(ctx context.Context, saleID int64, gate ReleaseGate) (bool, error) {
	switch {
	case gate.CanRelease != nil:
		return *gate.CanRelease, nil
	case gate.Balance != nil:
		return *gate.Balance > 0, nil
	}
	sum, err := o.d.Backend.SaleSummary(ctx, saleID)
	if err != nil {
		return false, err
	}
	return sum.Releasable(), nil
}

// SaleSeats lists every seat of a sale as the snapshot knows it: seats
// pointing at the sale plus the sale's own seat list when the backend sent
// one.  Release confirmation copy is built from it.
func SaleSeats(snap registry.Snapshot, saleID int64) []int {
	set := map[int]struct{}{}
	for _, s := range snap.Seats {
		if s.SaleID != saleID {
			continue
		}
		set[s.Number] = struct{}{}
		for _, n := range s.SaleSeats {
			set[n] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// fetchReceipt downloads the comprobante in the background.  Failures are
// logged only: the sale is already committed.
func (o *Orchestrator) fetchReceipt(ctx context.Context, saleID int64) {
	if o.d.Receipts == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		data, err := o.d.Backend.Receipt(ctx, saleID)
		if err != nil {
			log.Warnf("settlement: receipt for sale %d not downloaded: %v", saleID, err)
			return
		}
		if err := o.d.Receipts.Save(saleID, data); err != nil {
			log.Warnf("settlement: receipt for sale %d not saved: %v", saleID, err)
		}
	}()
}

func (o *Orchestrator) invalidate(ctx context.Context, scopes ...string) {
	if o.d.Reports == nil {
		return
	}
	if err := o.d.Reports.Invalidate(ctx, scopes...); err != nil {
		log.Warnf("settlement: report cache invalidation failed: %v", err)
	}
}

// record writes the journal row and, when event is set, publishes it.  Both
// run in the background and are best-effort.
func (o *Orchestrator) record(res Result, drawID int64, cause error, event string) {
	entry := model.JournalEntry{
		ID:        uuid.NewString(),
		Operator:  o.d.Operator,
		Operation: res.Operation,
		Outcome:   res.Outcome,
		DrawID:    drawID,
		SaleID:    res.SaleID,
		Seats:     res.Seats,
		Amount:    res.Amount,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		entry.Detail = cause.Error()
	}
	if o.d.Journal != nil {
		o.bg.Add(1)
		go func() {
			defer o.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.d.Journal.Record(ctx, entry); err != nil {
				log.Warnf("settlement: journal write for %s failed: %v", entry.Operation, err)
			}
		}()
	}
	if event != "" {
		o.publish(res, drawID, event, entry.Detail)
	}
}

func (o *Orchestrator) publish(res Result, drawID int64, typ, detail string) {
	if o.d.Events == nil {
		return
	}
	ev := queue.NewSettlementEvent(typ, o.d.Operator, drawID, res.SaleID)
	ev.Seats = res.Seats
	ev.Amount = res.Amount
	ev.Detail = detail
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.d.Events.Publish(ctx, ev); err != nil {
			log.Warnf("settlement: publish %s for sale %d failed: %v", typ, res.SaleID, err)
		}
	}()
}

func uniqueSorted(in []int) []int {
	set := make(map[int]struct{}, len(in))
	for _, n := range in {
		set[n] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
