package nodes

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

type retrievalResult struct {
	unit contractx.UnitName
	text string
	err  error
}

// RetrieveContext is the first execution stage: every selected retrieval
// unit runs concurrently with its own timeout, and the stage barriers on all
// of them before returning. Generative units must only ever see completed
// retrieval output, never a partial one.
//
// A failed or timed-out unit is skipped: no output field, no executed_units
// entry, no effect on its siblings.
func RetrieveContext(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, ErrStateMissing
	}

	var selected []contractx.RetrievalUnit
	for _, name := range in.State.SelectedUnits {
		if !name.IsRetrieval() {
			continue
		}
		unit, ok := registry.Retrieval(name)
		if !ok {
			log.Warn().Str("unit", string(name)).Msg("selected retrieval unit is not registered, skipping")
			continue
		}
		if in.State.HasExecuted(name) {
			log.Warn().Str("unit", string(name)).Msg("retrieval unit already executed, skipping re-entry")
			continue
		}
		selected = append(selected, unit)
	}
	if len(selected) == 0 {
		return in, nil
	}

	query := contractx.RetrievalQuery{
		UserID:         in.State.UserID,
		ConversationID: in.State.ConversationID,
		Query:          in.State.UserInput,
	}

	results := make([]retrievalResult, len(selected))
	var wg sync.WaitGroup
	for i, unit := range selected {
		wg.Add(1)
		go func(i int, unit contractx.RetrievalUnit) {
			defer wg.Done()
			unitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			items, err := unit.Retrieve(unitCtx, query)
			if err != nil {
				results[i] = retrievalResult{unit: unit.Name(), err: err}
				return
			}
			results[i] = retrievalResult{unit: unit.Name(), text: unit.Format(items)}
		}(i, unit)
	}
	wg.Wait()

	// The stage goroutines only wrote their own slot; all state mutation
	// happens here, on the engine goroutine.
	for _, res := range results {
		if res.err != nil {
			log.Warn().Err(res.err).Str("unit", string(res.unit)).Msg("retrieval unit failed, proceeding without it")
			continue
		}
		if err := in.State.MarkExecuted(res.unit); err != nil {
			return nil, err
		}
		if res.text != "" {
			if err := in.State.SetOutput(res.unit, res.text); err != nil {
				return nil, err
			}
		}
	}
	return in, nil
}
