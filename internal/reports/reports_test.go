package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/validation"
)

func newService(t *testing.T, h http.HandlerFunc) (*Service, *backend.Conn) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc := New(reportcache.New(reportcache.NewMemoryStore(), "test", time.Minute))
	svc.step = time.Millisecond
	return svc, backend.New(backend.Options{BaseURL: srv.URL, Timeout: time.Second}).As("tok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestReceivablesSanitisesFiltersAndNormalizes(t *testing.T) {
	var calls atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/cartera", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "vigente", q.Get("sorteo"))
		assert.Equal(t, "true", q.Get("debe"))
		assert.Equal(t, "ana maria", q.Get("nombre"))
		assert.Equal(t, "3001234567", q.Get("telefono"))
		writeJSON(w, 200, []any{
			map[string]any{"id_venta": 12, "nombre": "Ana Maria", "total_venta": 80000, "total_abonado": 20000, "saldo": 60000, "puesto": 7},
			map[string]any{"nombre": "Sin Id", "total": 40000, "abonado": 0, "saldo": 40000, "puestos": []any{1, 2}},
		})
	})

	f := model.ReceivableFilter{Name: "  ana   maria ", Phone: "300-123-4567"}
	rows, err := svc.Receivables(context.Background(), conn, f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(12), rows[0].ID)
	assert.Equal(t, int64(80000), rows[0].Total)
	assert.Equal(t, int64(20000), rows[0].Paid)
	assert.Equal(t, []int{7}, rows[0].Seats)
	assert.Negative(t, rows[1].ID)
	assert.Equal(t, []int{1, 2}, rows[1].Seats)

	_, err = svc.Receivables(context.Background(), conn, f)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second read is served from the cache")
}

func TestCachedReportsArePerCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer admin" {
			writeJSON(w, http.StatusForbidden, map[string]any{"detail": "no autorizado"})
			return
		}
		writeJSON(w, 200, []any{map[string]any{"id_venta": 12, "nombre": "Ana", "saldo": 60000}})
	}))
	t.Cleanup(srv.Close)
	client := backend.New(backend.Options{BaseURL: srv.URL, Timeout: time.Second})
	svc := New(reportcache.New(reportcache.NewMemoryStore(), "test", time.Minute))
	svc.step = time.Millisecond
	ctx := context.Background()

	rows, err := svc.Receivables(ctx, client.As("admin"), model.ReceivableFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = svc.Receivables(ctx, client.As("clerk"), model.ReceivableFilter{})
	var rej *backend.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusForbidden, rej.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSellerSalesAndLotteries(t *testing.T) {
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dashboard/sorteo/4/ventas-vendedores":
			writeJSON(w, 200, map[string]any{"sorteo_id": 4, "vendedores": []any{
				map[string]any{"vendedor_id": 2, "nombre": "Ana", "total_pagado": 80000, "total_abonado": 20000},
				map[string]any{"vendedor_id": nil, "total_pagado": 40000},
			}})
		case "/api/sorteos/loterias":
			writeJSON(w, 200, []any{
				map[string]any{"id": 3, "nombre": "Medellín"},
				map[string]any{"id": 1, "nombre": "Boyacá"},
				map[string]any{"id": 9},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	rep, err := svc.SellerSales(ctx, conn, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), rep.DrawID)
	require.Len(t, rep.Sellers, 2)
	require.NotNil(t, rep.Sellers[0].SellerID)
	assert.Equal(t, int64(2), *rep.Sellers[0].SellerID)
	assert.Equal(t, int64(20000), rep.Sellers[0].TotalPart)
	assert.Nil(t, rep.Sellers[1].SellerID)
	assert.Equal(t, "Vendedor 2", rep.Sellers[1].Seller)

	lots, err := svc.Lotteries(ctx, conn)
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, "Boyacá", lots[0].Name)
	assert.Equal(t, "Lotería 9", lots[1].Name)
	assert.Equal(t, int64(3), lots[2].ID)
}

func TestSanitizers(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	assert.Len(t, SanitizeText(long, maxNameFilter), 80)
	assert.Equal(t, "a b", SanitizeText("\ta \n  b ", 80))
	assert.Equal(t, "12345678901234567890", SanitizePhone("+1 (234) 567-890-1234567890", 20))
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, 503, map[string]any{"detail": "busy"})
			return
		}
		writeJSON(w, 200, []any{})
	})
	rows, err := svc.Receivables(context.Background(), conn, model.ReceivableFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 502, nil)
	})
	_, err := svc.Draws(context.Background(), conn)
	require.Error(t, err)
	assert.True(t, backend.IsRetriable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestUnauthorizedIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 401, map[string]any{"detail": "token expired"})
	})
	_, err := svc.Receivables(context.Background(), conn, model.ReceivableFilter{})
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRangeBounds(t *testing.T) {
	// Sunday 2026-10-18.
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	cases := []struct {
		rng, from, to string
	}{
		{RangeDay, "2026-10-18", "2026-10-18"},
		{RangeWeek, "2026-10-12", "2026-10-18"},
		{RangeMonth, "2026-10-01", "2026-10-18"},
	}
	for _, tc := range cases {
		from, to, err := RangeBounds(tc.rng, now)
		require.NoError(t, err, tc.rng)
		assert.Equal(t, tc.from, from.Format(dateLayout), tc.rng)
		assert.Equal(t, tc.to, to.Format(dateLayout), tc.rng)
	}

	monday := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	from, _, err := RangeBounds(RangeWeek, monday)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", from.Format(dateLayout))

	_, _, err = RangeBounds("year", now)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestExpensesFilterAndInvalidateOnCreate(t *testing.T) {
	var lists atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lists.Add(1)
			assert.Equal(t, "2026-10-01", r.URL.Query().Get("fecha_inicio"))
			writeJSON(w, 200, []any{
				map[string]any{"id_gasto": 1, "concepto": "Papeleria", "valor": "12000", "fecha": "2026-10-02"},
				map[string]any{"id": 2, "concepto": "Transporte", "valor": 8000, "observacion": "taxi papeleria"},
				map[string]any{"concepto": "Almuerzo", "valor": 15000, "usuario": "ana"},
			})
		case http.MethodPost:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cafe", body["concepto"])
			assert.EqualValues(t, 5000, body["valor"])
			writeJSON(w, 201, map[string]any{"id_gasto": 3})
		}
	})
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	rows, err := svc.Expenses(ctx, conn, RangeMonth, "PAPELERIA")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(12000), rows[0].Amount)
	assert.Equal(t, "2026-10-02", rows[0].CreatedAt)

	all, err := svc.Expenses(ctx, conn, RangeMonth, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Negative(t, all[2].ID)
	assert.Equal(t, "ana", all[2].UserName)
	assert.Equal(t, int32(1), lists.Load())

	require.NoError(t, svc.CreateExpense(ctx, conn, model.ExpenseCreate{Concept: " Cafe ", Amount: 5000}))
	_, err = svc.Expenses(ctx, conn, RangeMonth, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), lists.Load(), "creating an expense drops the cached list")
}

func TestCreateExpenseValidates(t *testing.T) {
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("backend must not be called")
	})
	err := svc.CreateExpense(context.Background(), conn, model.ExpenseCreate{Concept: "  ", Amount: 0})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "concept")
	assert.Contains(t, verr, "amount")
}

func TestProductivityMonthNormalizesAndFilters(t *testing.T) {
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/productividad/sorteos", r.URL.Path)
		assert.Equal(t, "2026", r.URL.Query().Get("anio"))
		assert.Equal(t, "9", r.URL.Query().Get("mes"))
		writeJSON(w, 200, map[string]any{
			"anio": 2026, "mes": 9,
			"sorteos": []any{
				map[string]any{"id_sorteo": 4, "sorteo": "Septiembre", "estado": "REALIZADO", "total_vendido": "900000", "ocupacion_porcentaje": 87.5},
				map[string]any{"nombre": "Sin id", "estado": "ACTIVO"},
			},
			"por_vendedor": []any{
				map[string]any{"vendedor_id": 2, "vendedor": "Ana", "ventas_realizadas": 10, "efectividad_porcentaje": 75},
				map[string]any{"id_vendedor": 3},
			},
		})
	})

	rep, err := svc.ProductivityMonth(context.Background(), conn, 2026, 9, ProductivityFilter{})
	require.NoError(t, err)
	require.Len(t, rep.Draws, 2)
	assert.Equal(t, int64(900000), rep.Draws[0].TotalSold)
	assert.InDelta(t, 87.5, rep.Draws[0].OccupancyPct, 0.001)
	assert.Equal(t, int64(2), rep.Draws[1].DrawID)
	assert.Equal(t, "Sin id", rep.Draws[1].Draw)
	require.Len(t, rep.Sellers, 2)
	assert.Equal(t, "Vendedor 3", rep.Sellers[1].Seller)

	rep, err = svc.ProductivityMonth(context.Background(), conn, 2026, 9, ProductivityFilter{State: "activo", Seller: "an"})
	require.NoError(t, err)
	require.Len(t, rep.Draws, 1)
	assert.Equal(t, "ACTIVO", rep.Draws[0].State)
	require.Len(t, rep.Sellers, 1)
	assert.Equal(t, "Ana", rep.Sellers[0].Seller)

	_, err = svc.ProductivityMonth(context.Background(), conn, 2026, 13, ProductivityFilter{})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)
}

func TestProductivityDrawRequiresObject(t *testing.T) {
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []any{})
	})
	_, err := svc.ProductivityDraw(context.Background(), conn, 4, ProductivityFilter{})
	var shape *backend.UnexpectedShapeError
	assert.ErrorAs(t, err, &shape)
}

func TestDrawAdministration(t *testing.T) {
	var lists atomic.Int32
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/sorteos":
			lists.Add(1)
			writeJSON(w, 200, map[string]any{"sorteos": []any{map[string]any{"id_sorteo": 7, "nombre": "Octubre", "estado": "activo"}}})
		case r.Method == http.MethodPut && r.URL.Path == "/api/sorteos/7/estado":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "REALIZADO", body["estado"])
			writeJSON(w, 200, map[string]any{"ok": true})
		case r.Method == http.MethodPost && r.URL.Path == "/api/sorteos":
			writeJSON(w, 201, map[string]any{"id_sorteo": 8, "nombre": "Noviembre", "estado": "ACTIVO"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	draws, err := svc.Draws(ctx, conn)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Active())

	assert.Error(t, svc.SetDrawState(ctx, conn, 7, "borrado"))
	require.NoError(t, svc.SetDrawState(ctx, conn, 7, "realizado"))
	_, err = svc.Draws(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lists.Load())

	d, err := svc.CreateDraw(ctx, conn, model.DrawCreate{Name: "Noviembre", DrawAt: "2026-11-30T20:00:00", SeatCount: 100, ChancesPer: 1, SeatPrice: 40000})
	require.NoError(t, err)
	assert.Equal(t, int64(8), d.ID)

	_, err = svc.CreateDraw(ctx, conn, model.DrawCreate{})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr, 5)
}

func TestGalleryYears(t *testing.T) {
	svc, conn := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public/gallery", r.URL.Path)
		writeJSON(w, 200, map[string]any{"photos": []any{
			map[string]any{"createdAt": "2025-03-01T10:00:00Z"},
			map[string]any{"created_at": "2026-01-02 08:00:00"},
			map[string]any{"created_at": "2026-05-02"},
			map[string]any{"created_at": "not a date"},
		}})
	})
	years, err := svc.GalleryYears(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, []model.GalleryYear{{Year: 2026, Photos: 2}, {Year: 2025, Photos: 1}}, years)
}
