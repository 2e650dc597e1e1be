package registry

import (
	"context"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/raffle-console/internal/model"
)

// DrawSource lists draws.
type DrawSource interface {
	Draws(ctx context.Context) ([]model.Draw, error)
}

// ResolveActiveDraw picks the draw the console opens on: the highest id
// among ACTIVO draws, or fallback when there is none or the list cannot be
// fetched.  The returned Draw is zero-valued except for ID on fallback.
func ResolveActiveDraw(ctx context.Context, src DrawSource, fallback int64) model.Draw {
	draws, err := src.Draws(ctx)
	if err != nil {
		log.Warnf("registry: draw list unavailable, using default draw %d: %v", fallback, err)
		return model.Draw{ID: fallback}
	}
	var best model.Draw
	for _, d := range draws {
		if d.Active() && d.ID > best.ID {
			best = d
		}
	}
	if best.ID == 0 {
		log.Infof("registry: no active draw, using default draw %d", fallback)
		return model.Draw{ID: fallback}
	}
	return best
}
