package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/console"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reports"
)

// ReportConnector binds a report connection to the operator's token.
type ReportConnector func(token string) reports.Conn

// ReportHandler serves the secondary views: cartera, gastos, productivity,
// draw administration and the gallery.
type ReportHandler struct {
	responder
	Reports  *reports.Service
	Connect  ReportConnector
	Sessions *console.Manager
}

func NewReportHandler(svc *reports.Service, connect ReportConnector, sessions *console.Manager) *ReportHandler {
	return &ReportHandler{responder: responder{sessions: sessions}, Reports: svc, Connect: connect, Sessions: sessions}
}

func (h *ReportHandler) conn(c echo.Context) (reports.Conn, model.Operator, bool) {
	op, ok := operator(c)
	if !ok {
		return nil, op, false
	}
	return h.Connect(op.Token), op, true
}

// Receivables handles GET /v1/reports/receivables?name=&phone=.
func (h *ReportHandler) Receivables(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	rows, err := h.Reports.Receivables(c.Request().Context(), conn, model.ReceivableFilter{
		Name:  c.QueryParam("name"),
		Phone: c.QueryParam("phone"),
	})
	if err != nil {
		return h.fail(c, err, "receivables")
	}
	var total int64
	for _, r := range rows {
		total += r.Balance
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows, "count": len(rows), "total_balance": total})
}

// Expenses handles GET /v1/reports/expenses?range=dia|semana|mes&concept=.
func (h *ReportHandler) Expenses(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	rng := c.QueryParam("range")
	rows, err := h.Reports.Expenses(c.Request().Context(), conn, rng, c.QueryParam("concept"))
	if err != nil {
		return h.fail(c, err, "expenses")
	}
	var total int64
	for _, e := range rows {
		total += e.Amount
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows, "count": len(rows), "total": total})
}

type expenseReq struct {
	Concept string `json:"concept"`
	Amount  int64  `json:"amount"`
	Note    string `json:"note"`
}

// CreateExpense handles POST /v1/expenses.
func (h *ReportHandler) CreateExpense(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	var req expenseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	err := h.Reports.CreateExpense(c.Request().Context(), conn, model.ExpenseCreate{
		Concept: req.Concept,
		Amount:  req.Amount,
		Note:    req.Note,
	})
	if err != nil {
		return h.fail(c, err, "create expense")
	}
	return c.NoContent(http.StatusCreated)
}

func productivityFilter(c echo.Context) reports.ProductivityFilter {
	return reports.ProductivityFilter{State: c.QueryParam("state"), Seller: c.QueryParam("seller")}
}

// ProductivityMonth handles GET /v1/reports/productivity/month?year=&month=.
// Missing year or month default to the current one.
func (h *ReportHandler) ProductivityMonth(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	now := time.Now()
	year := queryInt(c, "year", now.Year())
	month := queryInt(c, "month", int(now.Month()))
	rep, err := h.Reports.ProductivityMonth(c.Request().Context(), conn, year, month, productivityFilter(c))
	if err != nil {
		return h.fail(c, err, "productivity")
	}
	return c.JSON(http.StatusOK, rep)
}

// ProductivityDraw handles GET /v1/reports/productivity/draw/:id.
func (h *ReportHandler) ProductivityDraw(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid draw id"})
	}
	rep, err := h.Reports.ProductivityDraw(c.Request().Context(), conn, id, productivityFilter(c))
	if err != nil {
		return h.fail(c, err, "productivity")
	}
	return c.JSON(http.StatusOK, rep)
}

// SellerSales handles GET /v1/reports/sellers/draw/:id.
func (h *ReportHandler) SellerSales(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid draw id"})
	}
	rep, err := h.Reports.SellerSales(c.Request().Context(), conn, id)
	if err != nil {
		return h.fail(c, err, "seller sales")
	}
	return c.JSON(http.StatusOK, rep)
}

// Lotteries handles GET /v1/lotteries, the choices for a new draw.
func (h *ReportHandler) Lotteries(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	lots, err := h.Reports.Lotteries(c.Request().Context(), conn)
	if err != nil {
		return h.fail(c, err, "lotteries")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": lots, "count": len(lots)})
}

// Draws handles GET /v1/draws?state=.
func (h *ReportHandler) Draws(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	draws, err := h.Reports.Draws(c.Request().Context(), conn)
	if err != nil {
		return h.fail(c, err, "draws")
	}
	if state := strings.TrimSpace(c.QueryParam("state")); state != "" {
		kept := draws[:0:0]
		for _, d := range draws {
			if strings.EqualFold(d.State, state) {
				kept = append(kept, d)
			}
		}
		draws = kept
	}
	return c.JSON(http.StatusOK, echo.Map{"items": draws, "count": len(draws)})
}

type drawReq struct {
	Name       string `json:"name"`
	DrawAt     string `json:"draw_at"`
	Prize      string `json:"prize"`
	SeatCount  int    `json:"seat_count"`
	ChancesPer int    `json:"chances_per_seat"`
	SeatPrice  int64  `json:"seat_price"`
	LotteryID  *int64 `json:"lottery_id"`
}

// CreateDraw handles POST /v1/draws.
func (h *ReportHandler) CreateDraw(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	var req drawReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d, err := h.Reports.CreateDraw(c.Request().Context(), conn, model.DrawCreate{
		Name:       req.Name,
		DrawAt:     req.DrawAt,
		Prize:      req.Prize,
		SeatCount:  req.SeatCount,
		ChancesPer: req.ChancesPer,
		SeatPrice:  req.SeatPrice,
		LotteryID:  req.LotteryID,
	})
	if err != nil {
		return h.fail(c, err, "create draw")
	}
	return c.JSON(http.StatusCreated, d)
}

// SetDrawState handles PUT /v1/draws/:id/state.  When the operator's console
// shows that draw it is reloaded, since the active draw may have changed.
func (h *ReportHandler) SetDrawState(c echo.Context) error {
	conn, op, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid draw id"})
	}
	var req struct {
		State string `json:"state"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	if err := h.Reports.SetDrawState(ctx, conn, id, req.State); err != nil {
		return h.fail(c, err, "draw state")
	}

	reloaded := false
	if h.Sessions != nil {
		if s, ok := h.Sessions.Get(op.Key()); ok && s.Grid().DrawID == id {
			if err := s.Load(ctx); err != nil {
				log.Warnf("reports: reloading console of %s after draw %d changed: %v", op.Key(), id, err)
			}
			reloaded = true
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":               id,
		"state":            strings.ToUpper(strings.TrimSpace(req.State)),
		"console_reloaded": reloaded,
	})
}

// GalleryYears handles GET /v1/gallery/years.
func (h *ReportHandler) GalleryYears(c echo.Context) error {
	conn, _, ok := h.conn(c)
	if !ok {
		return unauthorized(c)
	}
	years, err := h.Reports.GalleryYears(c.Request().Context(), conn)
	if err != nil {
		return h.fail(c, err, "gallery")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": years})
}
