package nodes

import (
	"context"
	"time"

	aggregatorx "github.com/chorusml/chorus/agent/agents/aggregator"
	contractx "github.com/chorusml/chorus/agent/contract"
)

// Aggregate resolves the final answer once every selected unit has settled.
// The decision consults executed_units, not the original selection: a unit
// can be selected yet skipped on failure.
func Aggregate(
	ctx context.Context,
	in *GraphState,
	agg *aggregatorx.Aggregator,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, ErrStateMissing
	}

	aggCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	final, err := agg.Aggregate(aggCtx, contractx.SynthesisInput{
		UserInput: in.State.UserInput,
		Intent:    in.State.Intent,
		Context:   in.State.Context(),
		Outputs:   in.State.GenerativeOutputs(),
	}, in.State.ExecutedGenerative())
	if err != nil {
		return nil, err
	}

	if err := in.State.SetFinalOutput(final); err != nil {
		return nil, err
	}
	return in, nil
}
