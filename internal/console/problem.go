package console

import (
	"errors"
	"time"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/selection"
	"github.com/iliyamo/raffle-console/internal/settlement"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// Problem kinds shown in the grid's error slot.
const (
	KindValidation      = "VALIDATION"
	KindUnexpectedShape = "UNEXPECTED_SHAPE"
	KindNetwork         = "NETWORK"
	KindAuth            = "AUTH"
	KindRejected        = "REJECTED"
	KindPartialSuccess  = "PARTIAL_SUCCESS"
	KindPartialRelease  = "PARTIAL_RELEASE"
	KindNotReleasable   = "NOT_RELEASABLE"
	KindBusy            = "BUSY"
	KindInternal        = "INTERNAL"
)

// Problem is the single current error of a session.  The last one wins.
type Problem struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Retriable bool      `json:"retriable"`
	Endpoint  string    `json:"endpoint,omitempty"`
	SaleID    int64     `json:"sale_id,omitempty"`
	Operation string    `json:"operation,omitempty"`
	At        time.Time `json:"at"`
}

// Classify maps an error onto a Problem.  op names what the operator was
// doing, for display.
func Classify(err error, op string) Problem {
	p := Problem{Kind: KindInternal, Message: err.Error(), Operation: op, At: time.Now().UTC()}

	var (
		verr    validation.Errors
		shape   *backend.UnexpectedShapeError
		netErr  *backend.NetworkError
		rej     *backend.RejectionError
		partial *settlement.PartialSuccessError
		prel    *settlement.PartialReleaseError
	)
	switch {
	case errors.As(err, &verr):
		p.Kind = KindValidation
	case errors.Is(err, backend.ErrUnauthorized):
		p.Kind = KindAuth
		p.Message = "your session expired, sign in again"
	case errors.As(err, &partial):
		p.Kind = KindPartialSuccess
		p.SaleID = partial.SaleID
		p.Retriable = true
	case errors.As(err, &prel):
		p.Kind = KindPartialRelease
		p.SaleID = prel.SaleID
	case errors.Is(err, settlement.ErrNotReleasable):
		p.Kind = KindNotReleasable
	case errors.Is(err, settlement.ErrBusy):
		p.Kind = KindBusy
	case errors.Is(err, selection.ErrNotSellable), errors.Is(err, ErrUnknownSeat):
		p.Kind = KindRejected
	case errors.As(err, &shape):
		p.Kind = KindUnexpectedShape
		p.Endpoint = shape.Endpoint
	case errors.As(err, &netErr):
		p.Kind = KindNetwork
		p.Endpoint = netErr.Endpoint
		p.Retriable = true
	case errors.As(err, &rej):
		p.Endpoint = rej.Endpoint
		p.Retriable = backend.IsRetriable(err)
		if rej.Business() {
			p.Kind = KindRejected
			if rej.Reason == "" {
				p.Message = "the backend rejected the operation"
			}
		} else {
			p.Kind = KindNetwork
		}
	}
	return p
}
