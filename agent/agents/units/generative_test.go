package units

import (
	"strings"
	"testing"

	contractx "github.com/chorusml/chorus/agent/contract"
)

func TestBuildUserPayloadWithContext(t *testing.T) {
	t.Parallel()

	payload := buildUserPayload(contractx.GenerateRequest{
		UserInput: "What's our remote work policy?",
		Intent:    "policy question",
		Context: contractx.UnitContext{
			Knowledge: "[HR] Remote Work Policy\nThree days a week.",
			Memory:    "user: asked about HR topics before",
		},
	})

	for _, want := range []string{
		"Task intent: policy question",
		"User question: What's our remote work policy?",
		"=== COMPANY KNOWLEDGE ===",
		"Three days a week.",
		"=== USER HISTORY ===",
	} {
		if !strings.Contains(payload, want) {
			t.Fatalf("payload missing %q in:\n%s", want, payload)
		}
	}

	idxQuestion := strings.Index(payload, "User question:")
	idxKnowledge := strings.Index(payload, "=== COMPANY KNOWLEDGE ===")
	if idxKnowledge < idxQuestion {
		t.Fatal("context should follow the question")
	}
}

func TestBuildUserPayloadWithoutContext(t *testing.T) {
	t.Parallel()

	payload := buildUserPayload(contractx.GenerateRequest{
		UserInput: "Hello, how are you?",
	})

	if strings.Contains(payload, "===") {
		t.Fatalf("payload should have no context sections:\n%s", payload)
	}
	if strings.Contains(payload, "Task intent:") {
		t.Fatalf("payload should omit empty intent:\n%s", payload)
	}
	if !strings.Contains(payload, "User question: Hello, how are you?") {
		t.Fatalf("payload = %q", payload)
	}
}
