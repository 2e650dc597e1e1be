package reports

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reportcache"
)

const (
	maxNameFilter  = 80
	maxPhoneFilter = 20
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// SanitizeText collapses whitespace runs, trims and cuts s to max runes.
func SanitizeText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}

// SanitizePhone keeps only digits, at most max of them.
func SanitizePhone(s string, max int) string {
	s = nonDigits.ReplaceAllString(s, "")
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// Receivables lists customers of the current draw that still owe money.
func (s *Service) Receivables(ctx context.Context, conn Conn, f model.ReceivableFilter) ([]model.Receivable, error) {
	q := url.Values{}
	q.Set("sorteo", "vigente")
	q.Set("debe", "true")
	if n := SanitizeText(f.Name, maxNameFilter); n != "" {
		q.Set("nombre", n)
	}
	if p := SanitizePhone(f.Phone, maxPhoneFilter); p != "" {
		q.Set("telefono", p)
	}

	var out []model.Receivable
	err := s.cached(ctx, conn, reportcache.ScopeReceivables, q, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/api/cartera", q)
		if err != nil {
			return nil, err
		}
		items, ok := backend.List(body, "items", "cartera", "data")
		if !ok {
			log.Warnf("reports: cartera answered with no list, showing none")
		}
		rows := make([]model.Receivable, 0, len(items))
		for i, r := range items {
			rows = append(rows, decodeReceivable(r, i))
		}
		return rows, nil
	})
	return out, err
}

func decodeReceivable(r backend.Record, idx int) model.Receivable {
	row := model.Receivable{
		Name:        r.String("nombre", "cliente", "name"),
		Phone:       r.String("telefono", "celular", "phone"),
		Total:       r.IntOr(0, "total", "total_venta"),
		Paid:        r.IntOr(0, "abonado", "total_abonado"),
		Balance:     r.IntOr(0, "saldo", "saldo_pendiente"),
		SellerID:    r.IntOr(0, "vendedor_id", "id_vendedor"),
		SellerColor: r.String("vendedor_color"),
		Seats:       r.Ints("puestos"),
	}
	if len(row.Seats) == 0 {
		if n, ok := r.Int("puesto"); ok {
			row.Seats = []int{int(n)}
		}
	}
	if id, ok := r.Int("id", "id_venta"); ok {
		row.ID = id
	} else {
		row.ID = syntheticID(fmt.Sprintf("%s|%s|%d|%d|%d|%d", row.Name, row.Phone, row.Total, row.Paid, row.Balance, idx))
	}
	return row
}

// syntheticID derives a stable negative id for rows the backend sent
// without one, so they never collide with real ids.
func syntheticID(seed string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	v := int64(h.Sum32())
	if v == 0 {
		v = 1
	}
	return -v
}
