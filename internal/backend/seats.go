package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/raffle-console/internal/ledger"
	"github.com/iliyamo/raffle-console/internal/model"
)

// Draws lists every draw the backend knows about.
func (c *Conn) Draws(ctx context.Context) ([]model.Draw, error) {
	const path = "/api/sorteos"
	body, err := c.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	recs, ok := List(body, "sorteos", "items", "data", "results")
	if !ok {
		return nil, &UnexpectedShapeError{Endpoint: endpoint("GET", path), Expected: "a list of draws"}
	}
	draws := make([]model.Draw, 0, len(recs))
	for _, r := range recs {
		if d, ok := DecodeDraw(r); ok {
			draws = append(draws, d)
		}
	}
	return draws, nil
}

// Seats fetches the full seat set of a draw.  The backend answers either a
// bare array or {"puestos": [...]}; anything else is an UnexpectedShapeError.
// An empty array is a valid, empty draw.
func (c *Conn) Seats(ctx context.Context, drawID int64) ([]model.Seat, error) {
	path := fmt.Sprintf("/api/sorteos/%d/puestos-clasificados", drawID)
	body, err := c.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	recs, ok := List(body, "puestos", "seats")
	if !ok {
		return nil, &UnexpectedShapeError{Endpoint: endpoint("GET", path), Expected: "an array of seats or {puestos: [...]}"}
	}
	seats := make([]model.Seat, 0, len(recs))
	for _, r := range recs {
		if s, ok := DecodeSeat(r, c.client.policy); ok {
			seats = append(seats, s)
		}
	}
	return seats, nil
}

// DecodeDraw converts one draw record.  Records without an id are dropped.
func DecodeDraw(r Record) (model.Draw, bool) {
	id, ok := r.Int("id_sorteo", "id")
	if !ok {
		return model.Draw{}, false
	}
	return model.Draw{
		ID:        id,
		Name:      r.String("nombre", "name", "titulo"),
		State:     strings.ToUpper(r.String("estado", "state", "status")),
		DrawAt:    r.String("fecha_hora_sorteo", "fecha_sorteo", "fecha"),
		SeatCount: int(r.IntOr(0, "total_boletas", "cantidad_boletas", "seat_count")),
		SeatPrice: r.IntOr(0, "precio_boleta", "precio", "seat_price"),
		LotteryID: r.IntOr(0, "loteria_id", "id_loteria"),
	}, true
}

// DecodeSeat converts one seat record and resolves its capabilities.
// Records without a seat number are dropped.
func DecodeSeat(r Record, policy model.Policy) (model.Seat, bool) {
	num, ok := r.Int("puesto_num", "numero_puesto", "numero", "number", "id")
	if !ok {
		return model.Seat{}, false
	}
	raw := r.String("status", "estado_actual", "estado", "state")
	state, known := model.ParseSeatState(raw)
	amounts := ledger.Amounts{
		Total:   r.IntPtr("total", "total_venta"),
		Paid:    r.IntPtr("abonado", "total_abonado", "pagado", "paid"),
		Balance: r.IntPtr("saldo", "saldo_pendiente", "balance"),
	}
	money := ledger.Compute(amounts)
	flags := model.CapabilityFlags{
		Available:  r.Bool("is_disponible", "disponible", "available"),
		Sellable:   r.Bool("can_venderse", "can_sell"),
		Releasable: r.Bool("can_liberarse", "can_release"),
	}
	return model.Seat{
		Number:        int(num),
		State:         state,
		SaleID:        r.IntOr(0, "id_venta", "venta_id", "sale_id"),
		Money:         money,
		CustomerName:  customerName(r),
		CustomerPhone: r.String("cliente_celular", "celular", "customer_phone", "telefono"),
		SaleSeats:     r.Ints("venta_puestos", "puestos_venta", "sale_seats"),
		RawStatus:     raw,
		UnknownStatus: !known,
		ReleaseKnown:  amounts.Total != nil || amounts.Paid != nil || amounts.Balance != nil || flags.Releasable != nil,
		Caps:          model.ResolveCapabilities(state, money.Balance, flags, policy),
	}, true
}

// customerName reads the flat name field, or joins nombres/apellidos of a
// nested cliente object.
func customerName(r Record) string {
	if n := r.String("cliente_nombre", "customer_name", "nombre_cliente"); n != "" {
		return n
	}
	if n := r.String("cliente"); n != "" {
		return n
	}
	if c, ok := AsRecord(r["cliente"]); ok {
		return strings.TrimSpace(c.String("nombres", "nombre") + " " + c.String("apellidos"))
	}
	return ""
}
