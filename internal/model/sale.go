package model

import "github.com/iliyamo/raffle-console/internal/ledger"

// Sale states as the backend reports them.  They are informational; the
// console derives behavior from the ledger figures, not from this string.
const (
	SaleOpen    = "OPEN"
	SalePartial = "PARTIAL"
	SalePaid    = "PAID"
)

// Customer is the buyer attached to a sale.  Names is required and at
// least one of Phone or Email must be present.
type Customer struct {
	Names     string `json:"nombres"`
	LastNames string `json:"apellidos,omitempty"`
	Phone     string `json:"celular,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"direccion,omitempty"`
}

// SaleRequest is the body of the sale-creation call.  The backend claims
// every seat in one transaction.
type SaleRequest struct {
	DrawID   int64    `json:"id_sorteo"`
	Seats    []int    `json:"puestos"`
	Customer Customer `json:"cliente"`
}

// SaleCreated is the backend's answer to a sale creation.
type SaleCreated struct {
	SaleID int64  `json:"sale_id"`
	DrawID int64  `json:"draw_id"`
	Total  int64  `json:"total"`
	State  string `json:"state"`
}

// PaymentRequest registers one abono against a sale.
type PaymentRequest struct {
	Amount    int64  `json:"monto"`
	Method    string `json:"metodo_pago,omitempty"`
	Reference string `json:"referencia,omitempty"`
	Note      string `json:"nota,omitempty"`
}

// PaymentReceipt is the backend's answer to a payment registration.
type PaymentReceipt struct {
	PaymentID      int64  `json:"payment_id"`
	SaleID         int64  `json:"sale_id"`
	Amount         int64  `json:"amount"`
	SaleStateAfter string `json:"sale_state_after"`
}

// SaleSummary is fetched on demand when the operator opens the context of
// an occupied seat.  The console holds no authoritative sale record.
type SaleSummary struct {
	SaleID        int64          `json:"sale_id"`
	DrawID        int64          `json:"draw_id"`
	State         string         `json:"state"`
	Money         ledger.Figures `json:"money"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	CanRelease    *bool          `json:"can_release,omitempty"`
}

// Releasable applies the flag when the backend sent one, else the balance.
func (s SaleSummary) Releasable() bool {
	if s.CanRelease != nil {
		return *s.CanRelease
	}
	return s.Money.Balance > 0
}
