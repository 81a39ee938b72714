package contract

import "strings"

// UnitName is the closed vocabulary of schedulable units. Routing output is
// validated against this set at the parse boundary; unknown names never reach
// the execution pipeline.
type UnitName string

const (
	UnitKnowledge UnitName = "knowledge"
	UnitMemory    UnitName = "memory"
	UnitGeneral   UnitName = "general"
	UnitResearch  UnitName = "research"
	UnitWriting   UnitName = "writing"
	UnitCode      UnitName = "code"
)

// FallbackUnit answers every request the router could not classify.
const FallbackUnit = UnitGeneral

var allUnits = []UnitName{
	UnitKnowledge,
	UnitMemory,
	UnitGeneral,
	UnitResearch,
	UnitWriting,
	UnitCode,
}

func AllUnits() []UnitName {
	return append([]UnitName(nil), allUnits...)
}

func RetrievalUnits() []UnitName {
	return []UnitName{UnitKnowledge, UnitMemory}
}

func GenerativeUnits() []UnitName {
	return []UnitName{UnitGeneral, UnitResearch, UnitWriting, UnitCode}
}

func (u UnitName) IsRetrieval() bool {
	return u == UnitKnowledge || u == UnitMemory
}

func (u UnitName) IsGenerative() bool {
	switch u {
	case UnitGeneral, UnitResearch, UnitWriting, UnitCode:
		return true
	default:
		return false
	}
}

// ParseUnitName normalizes a raw model-emitted name. The second return is
// false for anything outside the vocabulary.
func ParseUnitName(raw string) (UnitName, bool) {
	name := UnitName(strings.ToLower(strings.TrimSpace(raw)))
	switch name {
	case UnitKnowledge, UnitMemory, UnitGeneral, UnitResearch, UnitWriting, UnitCode:
		return name, true
	default:
		return "", false
	}
}

// RouteInput is what the router is allowed to see.
type RouteInput struct {
	UserInput string `json:"user_input"`
}

// RouteDecision is the router's entire output: a classification, never content.
type RouteDecision struct {
	Intent        string     `json:"intent"`
	SelectedUnits []UnitName `json:"selected_units"`
}

// RetrievedItem is one ranked result from a retrieval backend.
type RetrievedItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

// RetrievalQuery scopes a retrieval unit's read. Identifiers are opaque here;
// only the backend interprets them.
type RetrievalQuery struct {
	UserID         string
	ConversationID string
	Query          string
	Category       string
}

// UnitContext is the read-only context handed to a generative unit. It carries
// retrieval outputs only; generative peers are structurally invisible to each
// other.
type UnitContext struct {
	Knowledge string
	Memory    string
}

func (c UnitContext) IsEmpty() bool {
	return strings.TrimSpace(c.Knowledge) == "" && strings.TrimSpace(c.Memory) == ""
}

// GenerateRequest is the uniform input of every generative unit.
type GenerateRequest struct {
	UserInput string
	Intent    string
	Context   UnitContext
}

// SynthesisInput carries everything the aggregator's synthesis call may use.
// Outputs preserves the contributing unit order.
type SynthesisInput struct {
	UserInput string
	Intent    string
	Context   UnitContext
	Outputs   []UnitOutput
}

// UnitOutput pairs a generative unit with the text it produced.
type UnitOutput struct {
	Unit UnitName
	Text string
}

// Turn is one side of a conversational exchange, emitted to the history
// collaborator after a request completes.
type Turn struct {
	UserID         string
	ConversationID string
	Role           string
	Content        string
	Intent         string
	UnitsUsed      []UnitName
}
