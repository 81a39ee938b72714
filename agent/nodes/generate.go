package nodes

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

type generateResult struct {
	unit contractx.UnitName
	text string
	err  error
}

// GenerateResponses is the second execution stage: every selected generative
// unit runs concurrently against the now-complete retrieval context. One
// unit's failure or timeout never aborts its siblings; the unit is simply
// absent from executed_units and its output field stays unset.
//
// Zero surviving generative units fails the whole request.
func GenerateResponses(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, ErrStateMissing
	}
	if len(in.State.SelectedUnits) == 0 {
		return nil, ErrRouteMissing
	}

	var selected []contractx.GenerativeUnit
	for _, name := range in.State.SelectedUnits {
		if !name.IsGenerative() {
			continue
		}
		unit, ok := registry.Generative(name)
		if !ok {
			log.Warn().Str("unit", string(name)).Msg("selected generative unit is not registered, skipping")
			continue
		}
		if in.State.HasExecuted(name) {
			log.Warn().Str("unit", string(name)).Msg("generative unit already executed, skipping re-entry")
			continue
		}
		selected = append(selected, unit)
	}
	if len(selected) == 0 {
		return nil, contractx.ErrAllUnitsFailed
	}

	// Each unit sees only the user input, the intent, and the retrieval
	// context. Sibling generative outputs are structurally out of reach.
	req := contractx.GenerateRequest{
		UserInput: in.State.UserInput,
		Intent:    in.State.Intent,
		Context:   in.State.Context(),
	}

	results := make([]generateResult, len(selected))
	var wg sync.WaitGroup
	for i, unit := range selected {
		wg.Add(1)
		go func(i int, unit contractx.GenerativeUnit) {
			defer wg.Done()
			unitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			text, err := unit.Generate(unitCtx, req)
			results[i] = generateResult{unit: unit.Name(), text: text, err: err}
		}(i, unit)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.err != nil {
			log.Warn().Err(res.err).Str("unit", string(res.unit)).Msg("generative unit failed, proceeding without it")
			continue
		}
		if err := in.State.MarkExecuted(res.unit); err != nil {
			return nil, err
		}
		if err := in.State.SetOutput(res.unit, res.text); err != nil {
			return nil, err
		}
		succeeded++
	}

	if succeeded == 0 {
		return nil, contractx.ErrAllUnitsFailed
	}
	return in, nil
}
