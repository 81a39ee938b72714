package nodes

import (
	"strings"
	"time"

	contractx "github.com/chorusml/chorus/agent/contract"
	statex "github.com/chorusml/chorus/agent/state"
)

// GraphInput is the orchestration core's entire inbound surface.
type GraphInput struct {
	UserID         string
	ConversationID string
	Text           string
}

// GraphOutput is what the caller gets back: the final answer, the classified
// intent, and the units that actually ran.
type GraphOutput struct {
	FinalOutput string
	Intent      string
	UnitsUsed   []contractx.UnitName
}

// GraphState carries the request state through the pipeline nodes.
type GraphState struct {
	State *statex.RequestState
}

// ValidateRequest checks the inbound call and creates the request state. The
// user input is fixed here and read-only from this point on.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidInput
	}

	return &GraphState{
		State: statex.New(text, strings.TrimSpace(in.UserID), strings.TrimSpace(in.ConversationID), nowFn()),
	}, nil
}
