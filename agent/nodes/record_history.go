package nodes

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// RecordHistory emits the user turn and the assistant turn to the history
// collaborator. The write runs on its own goroutine with a detached context:
// it must never delay the response, and its failure must never fail the
// request.
func RecordHistory(in *GraphState, recorder contractx.HistoryRecorder, timeout time.Duration) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, ErrStateMissing
	}
	if recorder == nil {
		return in, nil
	}

	userTurn := contractx.Turn{
		UserID:         in.State.UserID,
		ConversationID: in.State.ConversationID,
		Role:           "user",
		Content:        in.State.UserInput,
		Intent:         in.State.Intent,
	}
	assistantTurn := contractx.Turn{
		UserID:         in.State.UserID,
		ConversationID: in.State.ConversationID,
		Role:           "assistant",
		Content:        in.State.FinalOutput,
		Intent:         in.State.Intent,
		UnitsUsed:      append([]contractx.UnitName(nil), in.State.ExecutedUnits...),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		for _, turn := range []contractx.Turn{userTurn, assistantTurn} {
			if err := recorder.RecordTurn(ctx, turn); err != nil {
				log.Warn().Err(err).Str("role", turn.Role).Msg("history write failed")
			}
		}
	}()

	return in, nil
}
