// Package ledger computes the installment (abono) figures of a sale. The
// backend may send any subset of total, paid and balance; the missing ones
// are derived so that callers always work with a complete, non-negative set.
package ledger

import "errors"

// Amounts carries the monetary fields exactly as the backend supplied them.
// A nil pointer means the field was absent from the payload.
type Amounts struct {
	Total   *int64
	Paid    *int64
	Balance *int64
}

// Figures is the fully derived view of a sale's money.
type Figures struct {
	Total   int64 `json:"total"`
	Paid    int64 `json:"paid"`
	Balance int64 `json:"balance"`
}

var (
	ErrNonPositivePayment = errors.New("payment amount must be greater than zero")
	ErrExceedsBalance     = errors.New("payment amount exceeds the outstanding balance")
)

// Compute fills in whatever the backend left out. A present balance is
// trusted as-is (clamped at zero); otherwise it is total minus paid. Total is
// paid plus balance when absent. Nothing here ever fails: missing fields
// degrade to zero.
func Compute(a Amounts) Figures {
	var f Figures

	switch {
	case a.Balance != nil:
		f.Balance = clamp(*a.Balance)
	case a.Total != nil && a.Paid != nil:
		f.Balance = clamp(*a.Total - *a.Paid)
	}

	switch {
	case a.Total != nil:
		f.Total = clamp(*a.Total)
	case a.Paid != nil && a.Balance != nil:
		f.Total = clamp(*a.Paid + f.Balance)
	}

	switch {
	case a.Paid != nil:
		f.Paid = clamp(*a.Paid)
	case a.Total != nil && a.Balance != nil:
		f.Paid = clamp(*a.Total - f.Balance)
	}

	return f
}

// Settled reports whether the sale has nothing left to pay.
func (f Figures) Settled() bool { return f.Total > 0 && f.Balance == 0 }

// CheckPayment is the client-side soft check before registering an abono.
// The backend stays authoritative and may still reject an amount that
// passes here.
func (f Figures) CheckPayment(amount int64) error {
	if amount <= 0 {
		return ErrNonPositivePayment
	}
	if amount > f.Balance {
		return ErrExceedsBalance
	}
	return nil
}

// Of is a convenience for building Amounts from literal values in callers
// that know all three fields.
func Of(total, paid, balance int64) Amounts {
	return Amounts{Total: &total, Paid: &paid, Balance: &balance}
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
