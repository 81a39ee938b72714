package nodes

import (
	"strings"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// Finalize converts the settled request state into the caller-facing result.
func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil || in.State == nil {
		return GraphOutput{}, ErrStateMissing
	}
	if strings.TrimSpace(in.State.FinalOutput) == "" {
		return GraphOutput{}, ErrOutputMissing
	}

	return GraphOutput{
		FinalOutput: in.State.FinalOutput,
		Intent:      in.State.Intent,
		UnitsUsed:   append([]contractx.UnitName(nil), in.State.ExecutedUnits...),
	}, nil
}
