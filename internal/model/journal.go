package model

import "time"

// Settlement outcomes recorded for every orchestrated operation.
const (
	OutcomeSuccess        = "SUCCESS"
	OutcomePartialSuccess = "PARTIAL_SUCCESS"
	OutcomeFailed         = "FAILED"
)

// Settlement operation kinds.
const (
	OpCreateSale      = "CREATE_SALE"
	OpRegisterPayment = "REGISTER_PAYMENT"
	OpReleaseCupo     = "RELEASE_CUPO"
)

// JournalEntry is one row of the local settlement journal.  It keeps the
// operator's view of what was attempted against the backend, most notably
// sales whose initial payment did not register.
//
// Fields:
//
//	ID         – operation id (uuid).
//	Operator   – session key of the operator.
//	Operation  – CREATE_SALE, REGISTER_PAYMENT or RELEASE_CUPO.
//	Outcome    – SUCCESS, PARTIAL_SUCCESS or FAILED.
//	DrawID     – draw the operation targeted.
//	SaleID     – sale id, 0 when the sale was never created.
//	Seats      – seat numbers involved.
//	Amount     – payment amount when relevant.
//	Detail     – error text for non-success outcomes.
//	CreatedAt  – when the outcome was recorded.
type JournalEntry struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	DrawID    int64     `json:"draw_id"`
	SaleID    int64     `json:"sale_id,omitempty"`
	Seats     []int     `json:"seats,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
