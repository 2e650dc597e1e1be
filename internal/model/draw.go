package model

import "strings"

// DrawActive is the backend state of a draw currently selling seats.
const DrawActive = "ACTIVO"

// Draw (sorteo) is one instance of the raffle with its own seat pool.
//
// Fields:
//
//	ID         – sorteo id.
//	Name       – display name.
//	State      – ACTIVO, REALIZADO, CANCELADO...
//	DrawAt     – draw date as sent by the backend (not parsed).
//	SeatCount  – total_boletas, 0 when unknown.
//	SeatPrice  – precio_boleta, 0 when unknown.
//	LotteryID  – lottery the draw follows, 0 when none.
type Draw struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	DrawAt    string `json:"draw_at,omitempty"`
	SeatCount int    `json:"seat_count,omitempty"`
	SeatPrice int64  `json:"seat_price,omitempty"`
	LotteryID int64  `json:"lottery_id,omitempty"`
}

// Active reports whether the draw is in the ACTIVO state.
func (d Draw) Active() bool { return strings.EqualFold(strings.TrimSpace(d.State), DrawActive) }

// Lottery is an official lottery a draw can be tied to.
type Lottery struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DrawCreate is the body used to provision a new draw.
type DrawCreate struct {
	Name       string `json:"nombre"`
	DrawAt     string `json:"fecha_hora_sorteo"`
	Prize      string `json:"premio,omitempty"`
	SeatCount  int    `json:"total_boletas"`
	ChancesPer int    `json:"oportunidades_por_boleta"`
	SeatPrice  int64  `json:"precio_boleta"`
	LotteryID  *int64 `json:"loteria_id,omitempty"`
}
