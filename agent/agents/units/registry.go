package units

import (
	"context"
	"fmt"

	aggregatorx "github.com/chorusml/chorus/agent/agents/aggregator"
	routerx "github.com/chorusml/chorus/agent/agents/router"
	contractx "github.com/chorusml/chorus/agent/contract"
	llmx "github.com/chorusml/chorus/agent/llm"
	promptx "github.com/chorusml/chorus/agent/prompt"
	openrouterx "github.com/chorusml/chorus/pkg/openrouter"
)

type registryImpl struct {
	router      contractx.Router
	synthesizer contractx.Synthesizer
	retrieval   map[contractx.UnitName]contractx.RetrievalUnit
	generative  map[contractx.UnitName]contractx.GenerativeUnit
}

func (r *registryImpl) Router() contractx.Router {
	return r.router
}

func (r *registryImpl) Synthesizer() contractx.Synthesizer {
	return r.synthesizer
}

func (r *registryImpl) Retrieval(name contractx.UnitName) (contractx.RetrievalUnit, bool) {
	u, ok := r.retrieval[name]
	return u, ok
}

func (r *registryImpl) Generative(name contractx.UnitName) (contractx.GenerativeUnit, bool) {
	u, ok := r.generative[name]
	return u, ok
}

// NewRegistry wires the full unit set: the router, both retrieval units, the
// four generative units and the synthesizer, each parameterized from the one
// llm config record.
func NewRegistry(
	ctx context.Context,
	cfg llmx.Config,
	backend contractx.SearchBackend,
) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: search backend is required", contractx.ErrValidation)
	}

	prompts := promptx.LoadPromptSet()

	completer, err := openrouterx.NewCompleter(cfg.OpenRouterForRouter())
	if err != nil {
		return nil, fmt.Errorf("%w: create router completer: %v", contractx.ErrModelInvoke, err)
	}
	rt, err := routerx.New(completer, prompts.Router)
	if err != nil {
		return nil, err
	}

	generative := make(map[contractx.UnitName]contractx.GenerativeUnit, 4)
	unitPrompts := map[contractx.UnitName]string{
		contractx.UnitGeneral:  prompts.General,
		contractx.UnitResearch: prompts.Research,
		contractx.UnitWriting:  prompts.Writing,
		contractx.UnitCode:     prompts.Code,
	}
	for _, name := range contractx.GenerativeUnits() {
		modelCfg := cfg.OpenRouterFor(name)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for unit=%s: %v", contractx.ErrModelInvoke, name, err)
		}
		unit, err := newGenerativeUnit(ctx, name, chatModel, unitPrompts[name])
		if err != nil {
			return nil, err
		}
		generative[name] = unit
	}

	synthesisCfg := cfg.OpenRouterForSynthesis()
	synthesisModel, err := synthesisCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create synthesis model: %v", contractx.ErrModelInvoke, err)
	}
	synthesizer, err := aggregatorx.NewSynthesizer(ctx, synthesisModel, prompts.Synthesis)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:      rt,
		synthesizer: synthesizer,
		retrieval: map[contractx.UnitName]contractx.RetrievalUnit{
			contractx.UnitKnowledge: newKnowledgeUnit(backend),
			contractx.UnitMemory:    newMemoryUnit(backend),
		},
		generative: generative,
	}, nil
}
