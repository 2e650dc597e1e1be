package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/console"
	"github.com/iliyamo/raffle-console/internal/middleware"
	"github.com/iliyamo/raffle-console/internal/reports"
	"github.com/iliyamo/raffle-console/internal/settlement"
	"github.com/iliyamo/raffle-console/internal/validation"
)

// statusOf picks the HTTP status for a classified error.
func statusOf(err error, p console.Problem) int {
	switch p.Kind {
	case console.KindValidation:
		return http.StatusUnprocessableEntity
	case console.KindAuth:
		return http.StatusUnauthorized
	case console.KindUnexpectedShape:
		return http.StatusBadGateway
	case console.KindNetwork:
		var ne *backend.NetworkError
		if errors.As(err, &ne) {
			if ne.Timeout {
				return http.StatusGatewayTimeout
			}
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case console.KindRejected:
		if errors.Is(err, console.ErrUnknownSeat) {
			return http.StatusNotFound
		}
		var re *backend.RejectionError
		if errors.As(err, &re) {
			switch re.Status {
			case http.StatusNotFound, http.StatusConflict:
				return re.Status
			}
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case console.KindBusy, console.KindNotReleasable, console.KindPartialRelease:
		return http.StatusConflict
	case console.KindPartialSuccess:
		return http.StatusOK
	}
	if errors.Is(err, reports.ErrInvalidRange) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// problemBody renders p the way every error response looks.
func problemBody(p console.Problem) echo.Map {
	body := echo.Map{"error": p.Message, "kind": p.Kind, "retriable": p.Retriable}
	if p.Endpoint != "" {
		body["endpoint"] = p.Endpoint
	}
	if p.SaleID != 0 {
		body["sale_id"] = p.SaleID
	}
	return body
}

// responder is embedded by every handler that reports backend errors.
type responder struct {
	sessions *console.Manager
}

// fail writes err as JSON.  A rejected token also drops the operator's
// console session and tells the UI to sign out.
func (r responder) fail(c echo.Context, err error, op string) error {
	p := console.Classify(err, op)
	status := statusOf(err, p)
	body := problemBody(p)

	var verr validation.Errors
	if errors.As(err, &verr) {
		body["error"] = "validation failed"
		body["fields"] = verr
	}
	var prel *settlement.PartialReleaseError
	if errors.As(err, &prel) {
		body["remaining_seats"] = prel.Remaining
	}
	if p.Kind == console.KindAuth {
		body["logout"] = true
		if o, ok := middleware.OperatorFrom(c); ok && r.sessions != nil {
			r.sessions.Drop(o.Key())
		}
	}
	if status >= http.StatusInternalServerError && p.Kind == console.KindInternal {
		log.Errorf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		body["error"] = "internal error"
	}
	return c.JSON(status, body)
}
