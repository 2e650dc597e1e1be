package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/raffle-console/internal/ledger"
	"github.com/iliyamo/raffle-console/internal/model"
)

// CreateSale claims every requested seat in one backend transaction.
func (c *Conn) CreateSale(ctx context.Context, req model.SaleRequest) (model.SaleCreated, error) {
	const path = "/api/v1/ventas"
	body, err := c.Post(ctx, path, req)
	if err != nil {
		return model.SaleCreated{}, err
	}
	r, _ := unwrap(body, "venta", "data")
	id, ok := r.Int("id_venta", "sale_id", "id")
	if !ok {
		return model.SaleCreated{}, &UnexpectedShapeError{Endpoint: endpoint("POST", path), Expected: "a sale id"}
	}
	return model.SaleCreated{
		SaleID: id,
		DrawID: r.IntOr(req.DrawID, "id_sorteo", "draw_id"),
		Total:  r.IntOr(0, "total", "total_venta"),
		State:  strings.ToUpper(r.String("estado", "state")),
	}, nil
}

// RegisterPayment records one abono against a sale.
func (c *Conn) RegisterPayment(ctx context.Context, saleID int64, req model.PaymentRequest) (model.PaymentReceipt, error) {
	path := fmt.Sprintf("/api/v1/ventas/%d/pagos", saleID)
	body, err := c.Post(ctx, path, req)
	if err != nil {
		return model.PaymentReceipt{}, err
	}
	r, _ := unwrap(body, "pago", "data")
	return model.PaymentReceipt{
		PaymentID:      r.IntOr(0, "id_pago", "payment_id", "id"),
		SaleID:         r.IntOr(saleID, "id_venta", "sale_id"),
		Amount:         r.IntOr(req.Amount, "monto", "amount"),
		SaleStateAfter: strings.ToUpper(r.String("estado_venta", "sale_state_after", "estado")),
	}, nil
}

// SaleSummary fetches the on-demand summary of one sale.
func (c *Conn) SaleSummary(ctx context.Context, saleID int64) (model.SaleSummary, error) {
	path := fmt.Sprintf("/api/v1/ventas/%d/resumen", saleID)
	body, err := c.Get(ctx, path, nil)
	if err != nil {
		return model.SaleSummary{}, err
	}
	r, ok := unwrap(body, "resumen", "venta", "data")
	if !ok {
		return model.SaleSummary{}, &UnexpectedShapeError{Endpoint: endpoint("GET", path), Expected: "a sale summary object"}
	}
	return model.SaleSummary{
		SaleID: r.IntOr(saleID, "id_venta", "sale_id", "id"),
		DrawID: r.IntOr(0, "id_sorteo", "draw_id"),
		State:  strings.ToUpper(r.String("estado", "state")),
		Money: ledger.Compute(ledger.Amounts{
			Total:   r.IntPtr("total", "total_venta"),
			Paid:    r.IntPtr("abonado", "total_abonado", "pagado", "paid"),
			Balance: r.IntPtr("saldo", "saldo_pendiente", "balance"),
		}),
		CustomerName:  customerName(r),
		CustomerPhone: r.String("cliente_celular", "celular", "customer_phone", "telefono"),
		CanRelease:    r.Bool("can_liberarse", "can_release"),
	}, nil
}

// ReleaseSale frees every seat of a sale.  The route depends on the
// configured release mode.
func (c *Conn) ReleaseSale(ctx context.Context, saleID int64) error {
	if c.client.releaseMode == ReleaseDelete {
		_, err := c.Delete(ctx, fmt.Sprintf("/api/v1/ventas/%d", saleID))
		return err
	}
	_, err := c.Post(ctx, fmt.Sprintf("/api/v1/ventas/%d/liberar", saleID), nil)
	return err
}

// Receipt downloads the comprobante image of a sale.
func (c *Conn) Receipt(ctx context.Context, saleID int64) ([]byte, error) {
	path := fmt.Sprintf("/api/ventas/%d/comprobante.png", saleID)
	return c.client.do(ctx, "GET", path, nil, nil, c.token)
}

// unwrap returns body as a Record, looking inside the first envelope key
// that holds an object.  ok is false when body is not an object at all.
func unwrap(body any, keys ...string) (Record, bool) {
	r, ok := AsRecord(body)
	if !ok {
		return Record{}, false
	}
	for _, k := range keys {
		if inner, found := AsRecord(r[k]); found {
			return inner, true
		}
	}
	return r, true
}
