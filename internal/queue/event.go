// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// SettlementQueue carries every settlement event.
const SettlementQueue = "settlement.events"

// Settlement event types.
const (
	EventSaleCreated       = "sale.created"
	EventPaymentRegistered = "payment.registered"
	EventPaymentFailed     = "payment.failed"
	EventCupoReleased      = "cupo.released"
)

// SettlementEvent is published after each orchestrated operation commits
// (or partially commits) on the backend.  It carries enough for downstream
// consumers to log or notify without calling the backend again.
type SettlementEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Operator   string    `json:"operator"`
	DrawID     int64     `json:"draw_id"`
	SaleID     int64     `json:"sale_id"`
	Seats      []int     `json:"seats,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewSettlementEvent stamps a new event with an id and the current time.
func NewSettlementEvent(typ, operator string, drawID, saleID int64) SettlementEvent {
	return SettlementEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Operator:   operator,
		DrawID:     drawID,
		SaleID:     saleID,
		OccurredAt: time.Now().UTC(),
	}
}
