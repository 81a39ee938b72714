package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// Route runs the classification step and fixes the unit selection on the
// request state. The selection is immutable from here on.
func Route(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, ErrStateMissing
	}

	decision, err := router.Route(ctx, contractx.RouteInput{UserInput: in.State.UserInput})
	if err != nil {
		return nil, err
	}
	if len(decision.SelectedUnits) == 0 {
		return nil, fmt.Errorf("%w: router returned empty selection", contractx.ErrSchemaViolation)
	}

	if err := in.State.SetRoute(decision); err != nil {
		return nil, err
	}

	log.Debug().
		Str("intent", decision.Intent).
		Interface("selected_units", decision.SelectedUnits).
		Msg("request routed")
	return in, nil
}
