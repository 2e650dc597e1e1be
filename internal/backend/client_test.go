package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/raffle-console/internal/model"
)

func newTestConn(t *testing.T, h http.HandlerFunc, opts Options) *Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	return New(opts).As("tok")
}

func TestSeatsAcceptsArrayAndEnvelope(t *testing.T) {
	bodies := map[string]string{
		"array":    `[{"puesto_num": 42, "status": "DISPONIBLE"}]`,
		"envelope": `{"puestos": [{"numero_puesto": "42", "estado": "DISPONIBLE"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/sorteos/7/puestos-clasificados", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(body))
			}, Options{})
			seats, err := conn.Seats(context.Background(), 7)
			require.NoError(t, err)
			require.Len(t, seats, 1)
			assert.Equal(t, 42, seats[0].Number)
			assert.Equal(t, model.SeatAvailable, seats[0].State)
			assert.True(t, seats[0].Sellable())
		})
	}
}

func TestSeatsEmptyIsNotMalformed(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"puestos": []}`))
	}, Options{})
	seats, err := conn.Seats(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, seats)
}

func TestSeatsUnexpectedShape(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	}, Options{})
	_, err := conn.Seats(context.Background(), 3)
	var shape *UnexpectedShapeError
	require.ErrorAs(t, err, &shape)
	assert.Contains(t, shape.Endpoint, "/api/sorteos/3/puestos-clasificados")
}

func TestSeatDecodeFallbacks(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"puesto_num": 7, "estado_actual": "ABONADO", "id_venta": 501,
			 "total_venta": 35000, "total_abonado": 15000,
			 "cliente": {"nombres": "Ana", "apellidos": "Ruiz"},
			 "venta_puestos": [7, 8]},
			{"puesto_num": 9, "status": "PAGADO", "id_venta": 502, "total": 35000, "saldo": 0,
			 "can_liberarse": true},
			{"status": "DISPONIBLE"}
		]`))
	}, Options{})
	seats, err := conn.Seats(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, seats, 2)

	s := seats[0]
	assert.Equal(t, model.SeatReserved, s.State)
	assert.Equal(t, int64(501), s.SaleID)
	assert.Equal(t, int64(20000), s.Money.Balance)
	assert.Equal(t, "Ana Ruiz", s.CustomerName)
	assert.Equal(t, []int{7, 8}, s.SaleSeats)
	assert.True(t, s.Releasable())
	assert.False(t, s.Sellable())

	// The explicit flag wins over the state table.
	assert.True(t, seats[1].Releasable())
	assert.Equal(t, int64(35000), seats[1].Money.Paid)
}

func TestUnknownStatusFailsOpenAndIsFlagged(t *testing.T) {
	s, ok := DecodeSeat(Record{"puesto_num": json.Number("3"), "status": "RESERVDO"}, model.Policy{})
	require.True(t, ok)
	assert.Equal(t, model.SeatAvailable, s.State)
	assert.True(t, s.UnknownStatus)
	assert.Equal(t, "RESERVDO", s.RawStatus)
}

func TestSeatReleaseKnownNeedsMoneyOrFlag(t *testing.T) {
	bare, ok := DecodeSeat(Record{"puesto_num": json.Number("2"), "status": "reservado", "id_venta": json.Number("900")}, model.Policy{})
	require.True(t, ok)
	assert.False(t, bare.ReleaseKnown)

	withBalance, _ := DecodeSeat(Record{"puesto_num": json.Number("2"), "status": "reservado",
		"id_venta": json.Number("900"), "saldo": json.Number("25000")}, model.Policy{})
	assert.True(t, withBalance.ReleaseKnown)
	assert.True(t, withBalance.Releasable())

	flagged, _ := DecodeSeat(Record{"puesto_num": json.Number("2"), "status": "vendido",
		"id_venta": json.Number("900"), "can_liberarse": false}, model.Policy{})
	assert.True(t, flagged.ReleaseKnown)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(t *testing.T, err error)
		retriable bool
	}{
		{"unauthorized", 401, `{"detail":"expired"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}, false},
		{"business", 409, `{"detail":"El puesto 42 ya no está disponible"}`, func(t *testing.T, err error) {
			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.True(t, rej.Business())
			assert.Equal(t, "El puesto 42 ya no está disponible", err.Error())
		}, false},
		{"validation list", 422, `{"detail":[{"msg":"monto must be positive"}]}`, func(t *testing.T, err error) {
			assert.Equal(t, "monto must be positive", Reason(err))
		}, false},
		{"no detail", 400, `oops`, func(t *testing.T, err error) {
			assert.Equal(t, "HTTP 400", err.Error())
		}, false},
		{"server", 503, `{"message":"maintenance"}`, func(t *testing.T, err error) {
			assert.Equal(t, "maintenance", Reason(err))
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Options{})
			_, err := conn.SaleSummary(context.Background(), 1)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, tt.retriable, IsRetriable(err))
		})
	}
}

func TestTimeoutIsRetriableNetworkError(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, Options{Timeout: 20 * time.Millisecond})
	_, err := conn.Draws(context.Background())
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout)
	assert.True(t, IsRetriable(err))
}

func TestCreateSaleSendsWireBody(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/ventas", r.URL.Path)
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.EqualValues(t, 7, got["id_sorteo"])
		assert.Len(t, got["puestos"], 2)
		assert.Equal(t, "Ana Ruiz", got["cliente"].(map[string]any)["nombres"])
		_, _ = w.Write([]byte(`{"id_venta": 501, "total": 70000, "estado": "pendiente"}`))
	}, Options{})
	created, err := conn.CreateSale(context.Background(), model.SaleRequest{
		DrawID:   7,
		Seats:    []int{3, 4},
		Customer: model.Customer{Names: "Ana Ruiz", Phone: "3001234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(501), created.SaleID)
	assert.Equal(t, int64(7), created.DrawID)
	assert.Equal(t, int64(70000), created.Total)
	assert.Equal(t, "PENDIENTE", created.State)
}

func TestCreateSaleWithoutIDIsShapeError(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	}, Options{})
	_, err := conn.CreateSale(context.Background(), model.SaleRequest{DrawID: 1, Seats: []int{1}})
	var shape *UnexpectedShapeError
	assert.True(t, errors.As(err, &shape))
}

func TestReleaseModes(t *testing.T) {
	for mode, want := range map[string]string{
		ReleasePost:   "POST /api/v1/ventas/9/liberar",
		ReleaseDelete: "DELETE /api/v1/ventas/9",
		"":            "POST /api/v1/ventas/9/liberar",
	} {
		var got string
		conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.Method + " " + r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}, Options{ReleaseMode: mode})
		require.NoError(t, conn.ReleaseSale(context.Background(), 9))
		assert.Equal(t, want, got)
	}
}

func TestSaleSummaryDerivesLedger(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id_venta": 5, "id_sorteo": 7, "abonado": 15000, "saldo": 20000, "cliente_nombre": "Ana"}`))
	}, Options{})
	sum, err := conn.SaleSummary(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), sum.Money.Total)
	assert.Equal(t, int64(20000), sum.Money.Balance)
	assert.True(t, sum.Releasable())
}

func TestLoginTokenFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"jwt": "abc"}`))
	}))
	defer srv.Close()
	tok, err := New(Options{BaseURL: srv.URL}).Login(context.Background(), Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestDrawsDecode(t *testing.T) {
	conn := newTestConn(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sorteos": [{"id_sorteo": 3, "estado": "activo", "precio_boleta": 35000}, {"nombre": "sin id"}]}`))
	}, Options{})
	draws, err := conn.Draws(context.Background())
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Active())
	assert.Equal(t, int64(35000), draws[0].SeatPrice)
}
