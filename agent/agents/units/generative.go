package units

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/chorusml/chorus/agent/contract"
)

// generativeUnit is the uniform implementation behind general, research,
// writing and code. Each instance is fully parameterized at construction: a
// name, a system prompt, and a chat model already carrying its model selector
// and temperature.
type generativeUnit struct {
	name   contractx.UnitName
	runner compose.Runnable[map[string]any, *schema.Message]
}

func newGenerativeUnit(
	ctx context.Context,
	name contractx.UnitName,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*generativeUnit, error) {
	runner, err := compileTextGraph(ctx, chatModel, systemPrompt, fmt.Sprintf("unit.%s", name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile unit=%s: %v", contractx.ErrModelInvoke, name, err)
	}
	return &generativeUnit{name: name, runner: runner}, nil
}

func (u *generativeUnit) Name() contractx.UnitName {
	return u.name
}

func (u *generativeUnit) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.UserInput) == "" {
		return "", fmt.Errorf("%w: user input is required", contractx.ErrValidation)
	}

	msg, err := u.runner.Invoke(ctx, map[string]any{
		"input": buildUserPayload(req),
	})
	if err != nil {
		return "", fmt.Errorf("%w: unit=%s invoke: %v", contractx.ErrModelInvoke, u.name, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: unit=%s returned empty content", contractx.ErrSchemaViolation, u.name)
	}
	return strings.TrimSpace(msg.Content), nil
}

// buildUserPayload assembles the user message: intent, question, then any
// injected retrieval context. Generative units never fetch context themselves.
func buildUserPayload(req contractx.GenerateRequest) string {
	var b strings.Builder
	if intent := strings.TrimSpace(req.Intent); intent != "" {
		fmt.Fprintf(&b, "Task intent: %s\n\n", intent)
	}
	fmt.Fprintf(&b, "User question: %s", strings.TrimSpace(req.UserInput))

	if section := contextSection(req.Context); section != "" {
		b.WriteString("\n\n")
		b.WriteString(section)
	}
	return b.String()
}

func contextSection(c contractx.UnitContext) string {
	var parts []string
	if k := strings.TrimSpace(c.Knowledge); k != "" {
		parts = append(parts, "=== COMPANY KNOWLEDGE ===\n"+k)
	}
	if m := strings.TrimSpace(c.Memory); m != "" {
		parts = append(parts, "=== USER HISTORY ===\n"+m)
	}
	return strings.Join(parts, "\n\n")
}
