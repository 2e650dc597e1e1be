package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-console/internal/console"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/settlement"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// ReceiptSource downloads a sale's comprobante with the operator's token.
type ReceiptSource func(c echo.Context, token string, saleID int64) ([]byte, error)

// ConsoleHandler exposes the operator's console session: the seat grid,
// the selection and the settlement operations.
type ConsoleHandler struct {
	responder
	Sessions *console.Manager
	Receipts ReceiptSource
}

// NewConsoleHandler constructs a ConsoleHandler.
func NewConsoleHandler(sessions *console.Manager, receipts ReceiptSource) *ConsoleHandler {
	if sessions == nil {
		panic("nil session manager passed to NewConsoleHandler")
	}
	return &ConsoleHandler{responder: responder{sessions: sessions}, Sessions: sessions, Receipts: receipts}
}

var errNoOperator = errors.New("no operator in request")

// session returns the caller's console session, opening it on first use.
func (h *ConsoleHandler) session(c echo.Context) (*console.Session, error) {
	op, ok := operator(c)
	if !ok {
		return nil, errNoOperator
	}
	return h.Sessions.Open(c.Request().Context(), op)
}

// deny answers a request whose session could not be opened.
func (h *ConsoleHandler) deny(c echo.Context, err error) error {
	if errors.Is(err, errNoOperator) {
		return unauthorized(c)
	}
	return h.fail(c, err, "refresh")
}

// Grid handles GET /v1/grid.
func (h *ConsoleHandler) Grid(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	return c.JSON(http.StatusOK, s.Grid())
}

// Refresh handles POST /v1/grid/refresh.  A failed refresh keeps the old
// grid; the error is returned and also sits in the grid's error slot.
func (h *ConsoleHandler) Refresh(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	if err := s.Refresh(c.Request().Context()); err != nil {
		return h.fail(c, err, "refresh")
	}
	return c.JSON(http.StatusOK, s.Grid())
}

// Reload handles POST /v1/grid/reload: resolve the active draw again and
// start over with an empty selection.
func (h *ConsoleHandler) Reload(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	if err := s.Load(c.Request().Context()); err != nil {
		return h.fail(c, err, "refresh")
	}
	return c.JSON(http.StatusOK, s.Grid())
}

// Toggle handles POST /v1/grid/seats/:number/toggle.  Sellable seats go in
// or out of the selection; any other seat opens its context view.
func (h *ConsoleHandler) Toggle(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat number"})
	}
	res, err := s.Toggle(c.Request().Context(), n)
	if err != nil {
		return h.fail(c, err, "toggle seat")
	}
	return c.JSON(http.StatusOK, echo.Map{"toggle": res, "grid": s.Grid()})
}

// RemoveSelected handles DELETE /v1/grid/selection/:number.
func (h *ConsoleHandler) RemoveSelected(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat number"})
	}
	s.RemoveSelected(n)
	return c.JSON(http.StatusOK, s.Grid())
}

// ClearSelection handles DELETE /v1/grid/selection.
func (h *ConsoleHandler) ClearSelection(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	s.ClearSelection()
	return c.JSON(http.StatusOK, s.Grid())
}

// SetInitialPayment handles PUT /v1/grid/initial-payment.
func (h *ConsoleHandler) SetInitialPayment(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := s.SetInitialPayment(body.Amount); err != nil {
		return h.fail(c, err, "initial payment")
	}
	return c.JSON(http.StatusOK, s.Grid())
}

// CloseContext handles DELETE /v1/grid/context.
func (h *ConsoleHandler) CloseContext(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	s.CloseContext()
	return c.NoContent(http.StatusNoContent)
}

// DismissError handles DELETE /v1/grid/error.
func (h *ConsoleHandler) DismissError(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	s.DismissProblem()
	return c.NoContent(http.StatusNoContent)
}

type createSaleReq struct {
	Customer       validation.CustomerForm `json:"customer"`
	PaymentMethod  string                  `json:"payment_method"`
	InitialPayment *int64                  `json:"initial_payment"`
}

// settlementResp is what every settlement call answers.  GridStale is set
// when the refresh after the mutation failed.
type settlementResp struct {
	Result    settlement.Result `json:"result"`
	Problem   *console.Problem  `json:"problem,omitempty"`
	GridStale bool              `json:"grid_stale"`
	Grid      console.GridView  `json:"grid"`
}

// CreateSale handles POST /v1/sales: sells the current selection to the
// customer in the body.  A sale whose initial payment failed answers 200
// with outcome PARTIAL_SUCCESS and the problem describing the payment.
func (h *ConsoleHandler) CreateSale(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	var req createSaleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.InitialPayment != nil {
		if err := s.SetInitialPayment(*req.InitialPayment); err != nil {
			return h.fail(c, err, "create sale")
		}
	}

	res, err := s.CreateSale(c.Request().Context(), req.Customer, req.PaymentMethod)
	if err != nil && res.Outcome != model.OutcomePartialSuccess {
		return h.fail(c, err, "create sale")
	}
	out := settlementResp{Result: res, GridStale: res.RefreshErr != nil, Grid: s.Grid()}
	status := http.StatusCreated
	if err != nil {
		p := console.Classify(err, "create sale")
		out.Problem = &p
		status = http.StatusOK
	}
	return c.JSON(status, out)
}

// SaleSummary handles GET /v1/sales/:id/summary and opens the sale's
// context view.
func (h *ConsoleHandler) SaleSummary(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	view, err := s.OpenSale(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, "sale summary")
	}
	return c.JSON(http.StatusOK, view)
}

type paymentReq struct {
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

// RegisterPayment handles POST /v1/sales/:id/payments.
func (h *ConsoleHandler) RegisterPayment(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := s.RegisterPayment(c.Request().Context(), id, settlement.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Note:      req.Note,
	})
	if err != nil {
		return h.fail(c, err, "register payment")
	}
	return c.JSON(http.StatusOK, settlementResp{Result: res, GridStale: res.RefreshErr != nil, Grid: s.Grid()})
}

// ReleaseCupo handles POST /v1/sales/:id/release.  Without "confirm": true
// it answers 428 with the seats the release would free and the text the
// operator must confirm.
func (h *ConsoleHandler) ReleaseCupo(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.deny(c, err)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !req.Confirm {
		seats, text := s.ReleasePreview(id)
		return c.JSON(http.StatusPreconditionRequired, echo.Map{
			"error":        "confirmation required",
			"seats":        seats,
			"confirmation": text,
		})
	}
	res, err := s.ReleaseCupo(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, "release cupo")
	}
	return c.JSON(http.StatusOK, settlementResp{Result: res, GridStale: res.RefreshErr != nil, Grid: s.Grid()})
}

// Receipt handles GET /v1/sales/:id/receipt, streaming the backend's PNG.
func (h *ConsoleHandler) Receipt(c echo.Context) error {
	op, ok := operator(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	if h.Receipts == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "receipts are not available"})
	}
	data, err := h.Receipts(c, op.Token, id)
	if err != nil {
		return h.fail(c, err, "receipt")
	}
	return c.Blob(http.StatusOK, "image/png", data)
}
