package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
	openrouterx "github.com/chorusml/chorus/pkg/openrouter"
)

// FallbackIntent marks decisions produced without a usable classification.
const FallbackIntent = "fallback"

// Completer is the single constrained completion call the router needs.
type Completer interface {
	Complete(ctx context.Context, req openrouterx.CompletionRequest) (string, error)
}

// Router classifies the user input with one constrained model call and emits
// a validated unit selection. It never answers the question itself, and it
// never fails a request: any model or parse problem collapses into the
// deterministic fallback selection.
type Router struct {
	completer    Completer
	systemPrompt string
}

func New(completer Completer, systemPrompt string) (*Router, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router prompt is required", contractx.ErrValidation)
	}
	return &Router{completer: completer, systemPrompt: systemPrompt}, nil
}

func (r *Router) Route(ctx context.Context, in contractx.RouteInput) (contractx.RouteDecision, error) {
	userInput := strings.TrimSpace(in.UserInput)
	if userInput == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: user input is required", contractx.ErrValidation)
	}

	raw, err := r.completer.Complete(ctx, openrouterx.CompletionRequest{
		SystemPrompt: r.systemPrompt,
		UserPrompt:   "User input: " + userInput,
		JSONOnly:     true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("router model call failed, using fallback selection")
		return FallbackDecision(), nil
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("router output unparseable, using fallback selection")
		return FallbackDecision(), nil
	}
	return decision, nil
}

// FallbackDecision is the deterministic selection used whenever
// classification fails.
func FallbackDecision() contractx.RouteDecision {
	return contractx.RouteDecision{
		Intent:        FallbackIntent,
		SelectedUnits: []contractx.UnitName{contractx.FallbackUnit},
	}
}

type rawDecision struct {
	Intent        string   `json:"intent"`
	SelectedUnits []string `json:"selected_units"`
}

// ParseDecision parses the model's structured output. It tolerates formatting
// noise around the JSON payload (markdown fences, prose before or after) and
// normalizes the selection: unknown names are dropped, duplicates removed,
// and a retrieval-only selection gains the fallback generative unit so
// retrieval alone never has to answer a request.
func ParseDecision(raw string) (contractx.RouteDecision, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: no JSON object in router output", contractx.ErrSchemaViolation)
	}

	var parsed rawDecision
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: decode router output: %v", contractx.ErrSchemaViolation, err)
	}

	seen := make(map[contractx.UnitName]struct{}, len(parsed.SelectedUnits))
	var units []contractx.UnitName
	for _, rawName := range parsed.SelectedUnits {
		name, ok := contractx.ParseUnitName(rawName)
		if !ok {
			log.Debug().Str("unit", rawName).Msg("dropping unknown unit from router selection")
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		units = append(units, name)
	}

	if len(units) == 0 {
		return contractx.RouteDecision{}, fmt.Errorf("%w: empty unit selection", contractx.ErrSchemaViolation)
	}

	hasGenerative := false
	for _, u := range units {
		if u.IsGenerative() {
			hasGenerative = true
			break
		}
	}
	if !hasGenerative {
		units = append(units, contractx.FallbackUnit)
	}

	intent := strings.TrimSpace(parsed.Intent)
	if intent == "" {
		intent = FallbackIntent
	}

	return contractx.RouteDecision{Intent: intent, SelectedUnits: units}, nil
}

// extractJSONObject pulls the outermost JSON object out of surrounding noise.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
