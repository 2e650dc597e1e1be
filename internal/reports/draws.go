package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// Draw states an operator may set.
var drawStates = map[string]bool{
	model.DrawActive: true,
	"REALIZADO":      true,
	"CANCELADO":      true,
}

// Draws lists every draw.
func (s *Service) Draws(ctx context.Context, conn Conn) ([]model.Draw, error) {
	var out []model.Draw
	err := s.cached(ctx, conn, reportcache.ScopeDraws, nil, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/api/sorteos", nil)
		if err != nil {
			return nil, err
		}
		items, _ := backend.List(body, "sorteos", "items", "data")
		draws := make([]model.Draw, 0, len(items))
		for _, r := range items {
			if d, ok := backend.DecodeDraw(r); ok {
				draws = append(draws, d)
			}
		}
		return draws, nil
	})
	return out, err
}

// Lotteries lists the lotteries a new draw can reference, sorted by name.
func (s *Service) Lotteries(ctx context.Context, conn Conn) ([]model.Lottery, error) {
	var out []model.Lottery
	err := s.cached(ctx, conn, reportcache.ScopeLotteries, nil, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/api/sorteos/loterias", nil)
		if err != nil {
			return nil, err
		}
		items, _ := backend.List(body, "loterias", "items")
		lots := make([]model.Lottery, 0, len(items))
		for i, r := range items {
			id := r.IntOr(int64(i+1), "id", "id_loteria")
			name := r.String("nombre", "name")
			if name == "" {
				name = fmt.Sprintf("Lotería %d", id)
			}
			lots = append(lots, model.Lottery{ID: id, Name: name})
		}
		sort.SliceStable(lots, func(i, j int) bool { return lots[i].Name < lots[j].Name })
		return lots, nil
	})
	return out, err
}

// CreateDraw provisions a draw.
func (s *Service) CreateDraw(ctx context.Context, conn Conn, in model.DrawCreate) (model.Draw, error) {
	in.Name = SanitizeText(in.Name, 120)
	in.DrawAt = strings.TrimSpace(in.DrawAt)
	verr := validation.Errors{}
	if in.Name == "" {
		verr["name"] = "name is required"
	}
	if in.DrawAt == "" {
		verr["draw_at"] = "draw date is required"
	}
	if in.SeatCount <= 0 {
		verr["seat_count"] = "seat count must be greater than zero"
	}
	if in.ChancesPer <= 0 {
		verr["chances_per_seat"] = "chances per seat must be greater than zero"
	}
	if in.SeatPrice <= 0 {
		verr["seat_price"] = "seat price must be greater than zero"
	}
	if len(verr) > 0 {
		return model.Draw{}, verr
	}

	body, err := conn.Post(ctx, "/api/sorteos", in)
	if err != nil {
		return model.Draw{}, err
	}
	s.invalidate(ctx, reportcache.ScopeDraws, reportcache.ScopeProductivity)
	r, _ := backend.AsRecord(body)
	d, ok := backend.DecodeDraw(r)
	if !ok {
		return model.Draw{}, &backend.UnexpectedShapeError{Endpoint: "POST /api/sorteos", Expected: "draw with id_sorteo"}
	}
	if d.Name == "" {
		d.Name = in.Name
	}
	return d, nil
}

// SetDrawState moves a draw to ACTIVO, REALIZADO or CANCELADO.
func (s *Service) SetDrawState(ctx context.Context, conn Conn, drawID int64, state string) error {
	state = strings.ToUpper(strings.TrimSpace(state))
	if !drawStates[state] {
		return validation.Errors{"state": "state must be ACTIVO, REALIZADO or CANCELADO"}
	}
	if _, err := conn.Put(ctx, fmt.Sprintf("/api/sorteos/%d/estado", drawID), map[string]string{"estado": state}); err != nil {
		return err
	}
	s.invalidate(ctx, reportcache.ScopeDraws, reportcache.ScopeProductivity)
	return nil
}

// GalleryYears counts public gallery photos per year, newest year first.
// Photos without a parseable date are skipped.
func (s *Service) GalleryYears(ctx context.Context, conn Conn) ([]model.GalleryYear, error) {
	var out []model.GalleryYear
	err := s.cached(ctx, conn, reportcache.ScopeGallery, nil, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/public/gallery", nil)
		if err != nil {
			return nil, err
		}
		photos, _ := backend.List(body, "photos", "items")
		counts := map[int]int{}
		for _, p := range photos {
			if y := yearOf(p.String("createdAt", "created_at")); y > 0 {
				counts[y]++
			}
		}
		years := make([]model.GalleryYear, 0, len(counts))
		for y, n := range counts {
			years = append(years, model.GalleryYear{Year: y, Photos: n})
		}
		sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })
		return years, nil
	})
	return out, err
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", dateLayout}

func yearOf(s string) int {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Year()
		}
	}
	return 0
}
