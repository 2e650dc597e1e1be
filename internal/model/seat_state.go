package model

import "strings"

// SeatState is the normalized availability of one seat within a draw.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE" // sellable, no sale attached
	SeatReserved  SeatState = "RESERVED"  // sale exists, balance > 0
	SeatSold      SeatState = "SOLD"      // sale exists, fully paid
	SeatBlocked   SeatState = "BLOCKED"   // administratively held
	SeatVoid      SeatState = "VOID"      // annulled
)

// rawSeatStates maps every status spelling the backend has been seen to
// send (current Spanish enum, older English one) onto SeatState.
var rawSeatStates = map[string]SeatState{
	"DISPONIBLE": SeatAvailable,
	"AVAILABLE":  SeatAvailable,
	"LIBRE":      SeatAvailable,
	"FREE":       SeatAvailable,
	"RESERVADO":  SeatReserved,
	"RESERVED":   SeatReserved,
	"ABONADO":    SeatReserved,
	"PARCIAL":    SeatReserved,
	"PAGADO":     SeatSold,
	"VENDIDO":    SeatSold,
	"SOLD":       SeatSold,
	"PAID":       SeatSold,
	"BLOQUEADO":  SeatBlocked,
	"BLOCKED":    SeatBlocked,
	"ANULADO":    SeatVoid,
	"VOID":       SeatVoid,
}

// ParseSeatState normalizes a raw backend status. Unknown or empty values
// fail open to SeatAvailable and report known=false so the caller can flag
// the record: a mistyped backend status would otherwise make an occupied
// seat look sellable without anybody noticing.
func ParseSeatState(raw string) (state SeatState, known bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if s, ok := rawSeatStates[key]; ok {
		return s, true
	}
	return SeatAvailable, false
}

// Occupied reports whether the state implies a claimed seat.
func (s SeatState) Occupied() bool {
	return s == SeatReserved || s == SeatSold
}
