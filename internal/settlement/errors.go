package settlement

import (
	"errors"
	"fmt"

	"github.com/iliyamo/raffle-console/internal/backend"
)

var (
	// ErrBusy is returned while another operation of the same orchestrator
	// is in flight.
	ErrBusy = errors.New("another operation is still being submitted")
	// ErrNotReleasable is the terminal answer for a fully paid sale.  No
	// network mutation is attempted.
	ErrNotReleasable = errors.New("a fully paid sale cannot be released")
)

// SaleCreationError wraps a failed sale creation.  Reason is the backend's
// explanation when it sent one.
type SaleCreationError struct {
	Reason string
	Err    error
}

func (e *SaleCreationError) Error() string {
	if e.Reason != "" {
		return "the sale could not be created: " + e.Reason
	}
	if backend.IsRetriable(e.Err) {
		return "the sale could not be created, try again: " + e.Err.Error()
	}
	return "the sale could not be created: " + e.Err.Error()
}

func (e *SaleCreationError) Unwrap() error { return e.Err }

// PartialSuccessError reports a committed sale whose initial payment did not
// register.  The sale is not rolled back.
type PartialSuccessError struct {
	SaleID int64
	Amount int64
	Cause  error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("sale %d was created, but the payment of %d failed (%v); retry the payment separately",
		e.SaleID, e.Amount, e.Cause)
}

func (e *PartialSuccessError) Unwrap() error { return e.Cause }

// PartialReleaseError reports a release the backend accepted while the
// refreshed registry still shows seats claimed by the sale.
type PartialReleaseError struct {
	SaleID    int64
	Remaining []int
}

func (e *PartialReleaseError) Error() string {
	return fmt.Sprintf("sale %d was released but seats %v are still claimed; check the sale before selling them", e.SaleID, e.Remaining)
}
