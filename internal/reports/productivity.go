package reports

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/validation"
)

const maxTextFilter = 60

// ProductivityFilter narrows a productivity report after it is fetched.
// State matches draw rows, Seller matches seller rows; both are
// case-insensitive substrings.
type ProductivityFilter struct {
	State  string
	Seller string
}

// ProductivityMonth returns the draws and sellers of one month.
func (s *Service) ProductivityMonth(ctx context.Context, conn Conn, year, month int, f ProductivityFilter) (model.ProductivityMonth, error) {
	verr := validation.Errors{}
	if year < 2000 || year > 2100 {
		verr["year"] = "year is out of range"
	}
	if month < 1 || month > 12 {
		verr["month"] = "month must be between 1 and 12"
	}
	if len(verr) > 0 {
		return model.ProductivityMonth{}, verr
	}

	q := url.Values{}
	q.Set("anio", strconv.Itoa(year))
	q.Set("mes", strconv.Itoa(month))

	var out model.ProductivityMonth
	err := s.cached(ctx, conn, reportcache.ScopeProductivity, q, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, "/api/productividad/sorteos", q)
		if err != nil {
			return nil, err
		}
		rep := model.ProductivityMonth{Year: year, Month: month}
		if r, ok := backend.AsRecord(body); ok {
			rep.Year = int(r.IntOr(int64(year), "anio", "year"))
			rep.Month = int(r.IntOr(int64(month), "mes", "month"))
			if sellers, ok := backend.List(r["por_vendedor"]); ok {
				rep.Sellers = decodeSellers(sellers)
			}
		}
		draws, _ := backend.List(body, "sorteos")
		rep.Draws = make([]model.ProductivityDrawRow, 0, len(draws))
		for i, d := range draws {
			rep.Draws = append(rep.Draws, decodeDrawRow(d, int64(i+1)))
		}
		return rep, nil
	})
	if err != nil {
		return model.ProductivityMonth{}, err
	}

	if st := strings.ToLower(SanitizeText(f.State, maxTextFilter)); st != "" {
		kept := out.Draws[:0:0]
		for _, d := range out.Draws {
			if strings.Contains(strings.ToLower(d.State), st) {
				kept = append(kept, d)
			}
		}
		out.Draws = kept
	}
	out.Sellers = filterSellers(out.Sellers, f.Seller)
	return out, nil
}

// ProductivityDraw returns one draw's totals and its per-seller rows.
func (s *Service) ProductivityDraw(ctx context.Context, conn Conn, drawID int64, f ProductivityFilter) (model.ProductivityDraw, error) {
	q := url.Values{}
	q.Set("sorteo", strconv.FormatInt(drawID, 10))

	var out model.ProductivityDraw
	err := s.cached(ctx, conn, reportcache.ScopeProductivity, q, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, fmt.Sprintf("/api/productividad/sorteo/%d", drawID), nil)
		if err != nil {
			return nil, err
		}
		r, ok := backend.AsRecord(body)
		if !ok {
			return nil, &backend.UnexpectedShapeError{Endpoint: fmt.Sprintf("GET /api/productividad/sorteo/%d", drawID), Expected: "object"}
		}
		rep := model.ProductivityDraw{ProductivityDrawRow: decodeDrawRow(r, drawID)}
		rep.Sellers = []model.ProductivitySellerRow{}
		if sellers, ok := backend.List(r["por_vendedor"]); ok {
			rep.Sellers = decodeSellers(sellers)
		}
		return rep, nil
	})
	if err != nil {
		return model.ProductivityDraw{}, err
	}
	out.Sellers = filterSellers(out.Sellers, f.Seller)
	return out, nil
}

// SellerSales returns the per-seller dashboard of one draw.  A body that is
// not an object yields an empty breakdown.
func (s *Service) SellerSales(ctx context.Context, conn Conn, drawID int64) (model.DrawSellerSales, error) {
	q := url.Values{}
	q.Set("vendedores", strconv.FormatInt(drawID, 10))

	var out model.DrawSellerSales
	err := s.cached(ctx, conn, reportcache.ScopeProductivity, q, &out, func(ctx context.Context) (any, error) {
		body, err := conn.Get(ctx, fmt.Sprintf("/api/dashboard/sorteo/%d/ventas-vendedores", drawID), nil)
		if err != nil {
			return nil, err
		}
		rep := model.DrawSellerSales{DrawID: drawID, Sellers: []model.SellerSales{}}
		r, ok := backend.AsRecord(body)
		if !ok {
			return rep, nil
		}
		rep.DrawID = r.IntOr(drawID, "sorteo_id")
		rows, _ := backend.List(r["vendedores"])
		for i, row := range rows {
			var id *int64
			if v, ok := row.Int("vendedor_id"); ok {
				id = &v
			}
			name := row.String("nombre", "vendedor")
			if name == "" {
				n := int64(i + 1)
				if id != nil {
					n = *id
				}
				name = fmt.Sprintf("Vendedor %d", n)
			}
			rep.Sellers = append(rep.Sellers, model.SellerSales{
				SellerID:  id,
				Seller:    name,
				TotalPaid: row.IntOr(0, "total_pagado"),
				TotalPart: row.IntOr(0, "total_abonado"),
			})
		}
		return rep, nil
	})
	return out, err
}

func decodeDrawRow(r backend.Record, fallbackID int64) model.ProductivityDrawRow {
	id := r.IntOr(fallbackID, "id_sorteo", "id")
	name := r.String("sorteo", "nombre")
	if name == "" {
		name = fmt.Sprintf("Sorteo %d", id)
	}
	pct, _ := r.Float("ocupacion_porcentaje")
	return model.ProductivityDrawRow{
		DrawID:       id,
		Draw:         name,
		Date:         r.String("fecha", "created_at"),
		State:        r.String("estado"),
		TotalSold:    r.IntOr(0, "total_vendido"),
		TotalPaid:    r.IntOr(0, "total_abonado"),
		TotalBalance: r.IntOr(0, "saldo_total"),
		OccupancyPct: pct,
	}
}

func decodeSellers(items []backend.Record) []model.ProductivitySellerRow {
	out := make([]model.ProductivitySellerRow, 0, len(items))
	for i, r := range items {
		id := r.IntOr(0, "vendedor_id", "id_vendedor")
		name := r.String("vendedor", "nombre")
		if name == "" {
			n := id
			if n == 0 {
				n = int64(i + 1)
			}
			name = fmt.Sprintf("Vendedor %d", n)
		}
		pct, _ := r.Float("efectividad_porcentaje")
		out = append(out, model.ProductivitySellerRow{
			SellerID:       id,
			Seller:         name,
			SalesCount:     r.IntOr(0, "ventas_realizadas"),
			TotalSold:      r.IntOr(0, "total_vendido"),
			TotalCollected: r.IntOr(0, "total_cobrado"),
			TotalBalance:   r.IntOr(0, "saldo_total"),
			EffectivePct:   pct,
		})
	}
	return out
}

func filterSellers(rows []model.ProductivitySellerRow, seller string) []model.ProductivitySellerRow {
	needle := strings.ToLower(SanitizeText(seller, maxTextFilter))
	if needle == "" {
		return rows
	}
	out := make([]model.ProductivitySellerRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Seller), needle) {
			out = append(out, r)
		}
	}
	return out
}
