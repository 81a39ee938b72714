package aggregator

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// llmSynthesizer merges multiple generative outputs with one model call. The
// prompt receives the original question, the intent, retrieval context, and
// every contributing draft, labeled by unit.
type llmSynthesizer struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func NewSynthesizer(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (contractx.Synthesizer, error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add synthesis prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add synthesis model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add synthesis edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add synthesis edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add synthesis edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("aggregator.synthesis"))
	if err != nil {
		return nil, fmt.Errorf("compile synthesis graph: %w", err)
	}
	return &llmSynthesizer{runner: runner}, nil
}

func (s *llmSynthesizer) Synthesize(ctx context.Context, in contractx.SynthesisInput) (string, error) {
	if len(in.Outputs) == 0 {
		return "", fmt.Errorf("%w: nothing to synthesize", contractx.ErrAggregation)
	}

	msg, err := s.runner.Invoke(ctx, map[string]any{
		"input": buildSynthesisPayload(in),
	})
	if err != nil {
		return "", fmt.Errorf("%w: synthesis invoke: %v", contractx.ErrAggregation, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: synthesis returned empty content", contractx.ErrAggregation)
	}
	return strings.TrimSpace(msg.Content), nil
}

func buildSynthesisPayload(in contractx.SynthesisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original user question: %s\n", strings.TrimSpace(in.UserInput))
	if intent := strings.TrimSpace(in.Intent); intent != "" {
		fmt.Fprintf(&b, "Intent: %s\n", intent)
	}

	if k := strings.TrimSpace(in.Context.Knowledge); k != "" {
		b.WriteString("\n=== CONTEXT: COMPANY KNOWLEDGE ===\n")
		b.WriteString(k)
		b.WriteString("\n")
	}
	if m := strings.TrimSpace(in.Context.Memory); m != "" {
		b.WriteString("\n=== CONTEXT: CONVERSATION HISTORY ===\n")
		b.WriteString(m)
		b.WriteString("\n")
	}

	b.WriteString("\n=== UNIT DRAFTS ===\n")
	for _, out := range in.Outputs {
		fmt.Fprintf(&b, "\n--- draft from %s ---\n%s\n", out.Unit, out.Text)
	}
	b.WriteString("\nCreate one unified, coherent answer to the user's question.")
	return b.String()
}
