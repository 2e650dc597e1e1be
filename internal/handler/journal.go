package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/repository"
)

// JournalReader is the read side of the settlement journal.
type JournalReader interface {
	ListByOutcome(ctx context.Context, outcome string, limit int) ([]model.JournalEntry, error)
	ListBySale(ctx context.Context, saleID int64) ([]model.JournalEntry, error)
}

// JournalHandler lists locally recorded settlement outcomes.  Journal is
// nil when no database is configured; every route then answers 503.
type JournalHandler struct {
	Journal JournalReader
}

var journalOutcomes = map[string]bool{
	model.OutcomeSuccess:        true,
	model.OutcomePartialSuccess: true,
	model.OutcomeFailed:         true,
}

func (h *JournalHandler) disabled(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "settlement journal is not configured"})
}

// List handles GET /v1/journal?outcome=&limit=.  outcome defaults to
// PARTIAL_SUCCESS: sales whose initial payment never registered.
func (h *JournalHandler) List(c echo.Context) error {
	if h.Journal == nil {
		return h.disabled(c)
	}
	outcome := strings.ToUpper(strings.TrimSpace(c.QueryParam("outcome")))
	if outcome == "" {
		outcome = model.OutcomePartialSuccess
	}
	if !journalOutcomes[outcome] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be SUCCESS, PARTIAL_SUCCESS or FAILED"})
	}
	items, err := h.Journal.ListByOutcome(c.Request().Context(), outcome, queryInt(c, "limit", 100))
	if err != nil {
		log.Errorf("journal: list %s: %v", outcome, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.JournalEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// BySale handles GET /v1/journal/sales/:id.
func (h *JournalHandler) BySale(c echo.Context) error {
	if h.Journal == nil {
		return h.disabled(c)
	}
	id, ok := pathInt64(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
	}
	items, err := h.Journal.ListBySale(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no journal entries for this sale"})
		}
		log.Errorf("journal: sale %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
