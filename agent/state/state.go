package state

import (
	"fmt"
	"time"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// RequestState is the per-request record threaded through every pipeline
// stage. It is owned by one request's engine for its whole lifetime: stage
// goroutines report results back to the engine goroutine, which is the only
// writer, so no locking is needed.
//
// Write discipline, enforced here rather than documented elsewhere:
//   - UserInput/UserID/ConversationID are fixed at construction.
//   - Intent and SelectedUnits are written once, by the router step.
//   - Each unit output field has exactly one writer; SetOutput rejects a
//     second write to the same field.
//   - ExecutedUnits is append-only and doubles as the re-entry guard.
//   - FinalOutput is written once, by the aggregation step.
type RequestState struct {
	UserInput      string
	UserID         string
	ConversationID string
	StartedAt      time.Time

	Intent        string
	SelectedUnits []contractx.UnitName

	ExecutedUnits []contractx.UnitName

	KnowledgeOutput string
	MemoryOutput    string
	GeneralOutput   string
	ResearchOutput  string
	WritingOutput   string
	CodeOutput      string

	FinalOutput string

	routed    bool
	outputs   map[contractx.UnitName]bool
	finalized bool
}

func New(userInput, userID, conversationID string, now time.Time) *RequestState {
	return &RequestState{
		UserInput:      userInput,
		UserID:         userID,
		ConversationID: conversationID,
		StartedAt:      now.UTC(),
		outputs:        make(map[contractx.UnitName]bool, len(contractx.AllUnits())),
	}
}

// SetRoute records the routing decision. It can succeed once.
func (s *RequestState) SetRoute(decision contractx.RouteDecision) error {
	if s.routed {
		return fmt.Errorf("%w: route already set", contractx.ErrValidation)
	}
	if len(decision.SelectedUnits) == 0 {
		return fmt.Errorf("%w: empty unit selection", contractx.ErrValidation)
	}
	s.Intent = decision.Intent
	s.SelectedUnits = append([]contractx.UnitName(nil), decision.SelectedUnits...)
	s.routed = true
	return nil
}

// SetOutput writes a unit's output field. A second write to the same field,
// or a write for an unknown unit, is rejected.
func (s *RequestState) SetOutput(unit contractx.UnitName, text string) error {
	if s.outputs == nil {
		s.outputs = make(map[contractx.UnitName]bool, len(contractx.AllUnits()))
	}
	if s.outputs[unit] {
		return fmt.Errorf("%w: output for unit=%s already written", contractx.ErrValidation, unit)
	}
	switch unit {
	case contractx.UnitKnowledge:
		s.KnowledgeOutput = text
	case contractx.UnitMemory:
		s.MemoryOutput = text
	case contractx.UnitGeneral:
		s.GeneralOutput = text
	case contractx.UnitResearch:
		s.ResearchOutput = text
	case contractx.UnitWriting:
		s.WritingOutput = text
	case contractx.UnitCode:
		s.CodeOutput = text
	default:
		return fmt.Errorf("%w: unknown unit=%q", contractx.ErrValidation, unit)
	}
	s.outputs[unit] = true
	return nil
}

// Output returns a unit's output field; ok is false when the field was never
// written.
func (s *RequestState) Output(unit contractx.UnitName) (string, bool) {
	if !s.outputs[unit] {
		return "", false
	}
	switch unit {
	case contractx.UnitKnowledge:
		return s.KnowledgeOutput, true
	case contractx.UnitMemory:
		return s.MemoryOutput, true
	case contractx.UnitGeneral:
		return s.GeneralOutput, true
	case contractx.UnitResearch:
		return s.ResearchOutput, true
	case contractx.UnitWriting:
		return s.WritingOutput, true
	case contractx.UnitCode:
		return s.CodeOutput, true
	default:
		return "", false
	}
}

// MarkExecuted appends a unit to the execution log. Re-marking an already
// executed unit is an error: the log is the re-entry guard.
func (s *RequestState) MarkExecuted(unit contractx.UnitName) error {
	if s.HasExecuted(unit) {
		return fmt.Errorf("%w: unit=%s already executed", contractx.ErrValidation, unit)
	}
	s.ExecutedUnits = append(s.ExecutedUnits, unit)
	return nil
}

func (s *RequestState) HasExecuted(unit contractx.UnitName) bool {
	for _, u := range s.ExecutedUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// ExecutedGenerative returns the generative subset of the execution log, in
// completion order. This is what the aggregation decision consults.
func (s *RequestState) ExecutedGenerative() []contractx.UnitName {
	var out []contractx.UnitName
	for _, u := range s.ExecutedUnits {
		if u.IsGenerative() {
			out = append(out, u)
		}
	}
	return out
}

// Context assembles the read-only retrieval context handed to generative
// units.
func (s *RequestState) Context() contractx.UnitContext {
	return contractx.UnitContext{
		Knowledge: s.KnowledgeOutput,
		Memory:    s.MemoryOutput,
	}
}

// GenerativeOutputs collects the non-empty generative outputs in stable
// vocabulary order, for synthesis input.
func (s *RequestState) GenerativeOutputs() []contractx.UnitOutput {
	var outs []contractx.UnitOutput
	for _, u := range contractx.GenerativeUnits() {
		if text, ok := s.Output(u); ok && text != "" {
			outs = append(outs, contractx.UnitOutput{Unit: u, Text: text})
		}
	}
	return outs
}

// SetFinalOutput writes the final answer. It can succeed once.
func (s *RequestState) SetFinalOutput(text string) error {
	if s.finalized {
		return fmt.Errorf("%w: final output already written", contractx.ErrValidation)
	}
	s.FinalOutput = text
	s.finalized = true
	return nil
}
