package reports

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// Expense ranges, all ending today.
const (
	RangeDay   = "dia"
	RangeWeek  = "semana"
	RangeMonth = "mes"
)

// ErrInvalidRange is returned for a range other than dia, semana or mes.
var ErrInvalidRange = errors.New("range must be dia, semana or mes")

const dateLayout = "2006-01-02"

// RangeBounds returns the first and last day of rng relative to now.  Weeks
// start on Monday; a month starts on its first day.
func RangeBounds(rng string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch rng {
	case RangeDay, "":
		return today, today, nil
	case RangeWeek:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -sinceMonday), today, nil
	case RangeMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today, nil
	}
	return time.Time{}, time.Time{}, ErrInvalidRange
}

// Expenses lists the gastos of rng.  concept filters on concept or note,
// case-insensitive, after the (cached) fetch.
func (s *Service) Expenses(ctx context.Context, conn Conn, rng, concept string) ([]model.Expense, error) {
	from, to, err := RangeBounds(rng, s.now())
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("fecha_inicio", from.Format(dateLayout))
	q.Set("fecha_fin", to.Format(dateLayout))

	var all []model.Expense
	err = s.cached(ctx, conn, reportcache.ScopeExpenses, q, &all, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/api/gastos", q)
		if err != nil {
			return nil, err
		}
		items, _ := backend.List(body, "items", "gastos", "data")
		rows := make([]model.Expense, 0, len(items))
		for i, r := range items {
			rows = append(rows, decodeExpense(r, i))
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return filterExpenses(all, concept), nil
}

func filterExpenses(rows []model.Expense, concept string) []model.Expense {
	needle := strings.ToLower(SanitizeText(concept, maxNameFilter))
	if needle == "" {
		return rows
	}
	out := make([]model.Expense, 0, len(rows))
	for _, e := range rows {
		if strings.Contains(strings.ToLower(e.Concept), needle) || strings.Contains(strings.ToLower(e.Note), needle) {
			out = append(out, e)
		}
	}
	return out
}

func decodeExpense(r backend.Record, idx int) model.Expense {
	e := model.Expense{
		Concept:   r.String("concepto", "concept"),
		Amount:    r.IntOr(0, "valor", "monto", "amount"),
		Note:      r.String("observacion", "nota"),
		UserID:    r.IntOr(0, "usuario_id", "id_usuario"),
		UserName:  r.String("usuario_nombre", "nombre_usuario", "usuario"),
		CreatedAt: r.String("created_at", "fecha"),
	}
	if id, ok := r.Int("id_gasto", "id"); ok {
		e.ID = id
	} else {
		e.ID = syntheticID(fmt.Sprintf("%s|%s|%d|%d|%d", e.CreatedAt, e.Concept, e.Amount, e.UserID, idx))
	}
	return e
}

// CreateExpense records a gasto and drops the cached expense lists.
func (s *Service) CreateExpense(ctx context.Context, conn Conn, in model.ExpenseCreate) error {
	in.Concept = SanitizeText(in.Concept, 120)
	in.Note = strings.TrimSpace(in.Note)
	verr := validation.Errors{}
	if in.Concept == "" {
		verr["concept"] = "concept is required"
	}
	if in.Amount <= 0 {
		verr["amount"] = "amount must be greater than zero"
	}
	if len(verr) > 0 {
		return verr
	}

	if _, err := conn.Post(ctx, "/api/gastos", in); err != nil {
		return err
	}
	s.invalidate(ctx, reportcache.ScopeExpenses)
	return nil
}
