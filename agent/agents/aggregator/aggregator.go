package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// DecisionKind is the aggregation entry point's explicit 3-case outcome.
type DecisionKind int

const (
	// DecisionPassthrough: exactly one generative unit ran; its output is the
	// final answer, byte for byte, with no synthesis call.
	DecisionPassthrough DecisionKind = iota
	// DecisionSynthesize: two or more generative units ran; their outputs are
	// merged by a synthesis model call.
	DecisionSynthesize
	// DecisionFail: no generative unit produced output.
	DecisionFail
)

// Decision tags how a request's outputs become the final answer.
type Decision struct {
	Kind    DecisionKind
	Outputs []contractx.UnitOutput
}

// Decide inspects the generative portion of the execution log. Retrieval
// outputs never count: they are context, not answers.
func Decide(executedGenerative []contractx.UnitName, outputs []contractx.UnitOutput) Decision {
	switch {
	case len(executedGenerative) == 0 || len(outputs) == 0:
		return Decision{Kind: DecisionFail}
	case len(executedGenerative) == 1:
		return Decision{Kind: DecisionPassthrough, Outputs: outputs[:1]}
	default:
		return Decision{Kind: DecisionSynthesize, Outputs: outputs}
	}
}

// Aggregator turns one-or-more generative outputs into the single final
// answer.
type Aggregator struct {
	synthesizer contractx.Synthesizer
}

func New(synthesizer contractx.Synthesizer) (*Aggregator, error) {
	if synthesizer == nil {
		return nil, fmt.Errorf("%w: synthesizer is required", contractx.ErrValidation)
	}
	return &Aggregator{synthesizer: synthesizer}, nil
}

// Aggregate resolves the decision for one request. A synthesis-model failure
// degrades to labeled concatenation; only the fail case returns an error.
func (a *Aggregator) Aggregate(ctx context.Context, in contractx.SynthesisInput, executedGenerative []contractx.UnitName) (string, error) {
	decision := Decide(executedGenerative, in.Outputs)

	switch decision.Kind {
	case DecisionPassthrough:
		return decision.Outputs[0].Text, nil

	case DecisionSynthesize:
		merged, err := a.synthesizer.Synthesize(ctx, in)
		if err != nil || strings.TrimSpace(merged) == "" {
			log.Warn().Err(err).Msg("synthesis failed, falling back to concatenation")
			return ConcatOutputs(decision.Outputs), nil
		}
		return strings.TrimSpace(merged), nil

	default:
		return "", contractx.ErrAllUnitsFailed
	}
}

// ConcatOutputs is the degraded aggregation mode: every contribution appears,
// labeled by its unit, so nothing is silently dropped.
func ConcatOutputs(outputs []contractx.UnitOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, out := range outputs {
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", sectionTitle(out.Unit), out.Text))
	}
	return strings.Join(parts, "\n\n")
}

func sectionTitle(unit contractx.UnitName) string {
	switch unit {
	case contractx.UnitGeneral:
		return "Response"
	case contractx.UnitResearch:
		return "Research"
	case contractx.UnitWriting:
		return "Content"
	case contractx.UnitCode:
		return "Code"
	default:
		return string(unit)
	}
}
