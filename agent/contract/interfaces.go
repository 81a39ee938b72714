package contract

import "context"

// Router classifies a request and selects which units run. Implementations
// must always return a valid non-empty selection; routing failures are
// recovered internally via the fallback unit, never surfaced.
type Router interface {
	Route(ctx context.Context, in RouteInput) (RouteDecision, error)
}

// RetrievalUnit fetches context from an external backend. It never calls a
// generative model. Backend unavailability yields an empty result, not an
// error.
type RetrievalUnit interface {
	Name() UnitName
	Retrieve(ctx context.Context, q RetrievalQuery) ([]RetrievedItem, error)
	// Format renders retrieved items into the text block injected into
	// generative prompts. An empty slice renders as "".
	Format(items []RetrievedItem) string
}

// GenerativeUnit produces user-facing text from the user input plus injected
// retrieval context.
type GenerativeUnit interface {
	Name() UnitName
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Synthesizer merges two or more generative outputs into one coherent answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, in SynthesisInput) (string, error)
}

// Registry resolves units by name. Lookups outside the vocabulary return
// false.
type Registry interface {
	Router() Router
	Synthesizer() Synthesizer
	Retrieval(name UnitName) (RetrievalUnit, bool)
	Generative(name UnitName) (GenerativeUnit, bool)
}

// SearchBackend is the narrow retrieval surface of the external memory and
// knowledge store.
type SearchBackend interface {
	Search(ctx context.Context, req SearchRequest) ([]RetrievedItem, error)
}

// SearchRequest addresses the retrieval backend. An empty Query asks for
// recency order instead of semantic ranking.
type SearchRequest struct {
	Query       string
	TopK        int
	Tags        []string
	ExcludeTags []string
}

// HistoryRecorder persists conversation turns. Calls are fire-and-forget from
// the orchestration core's perspective.
type HistoryRecorder interface {
	RecordTurn(ctx context.Context, turn Turn) error
}
