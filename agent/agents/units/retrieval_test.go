package units

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/chorusml/chorus/agent/contract"
)

type backendCall struct {
	req contractx.SearchRequest
}

type fakeBackend struct {
	// responses are consumed in call order.
	responses [][]contractx.RetrievedItem
	err       error
	calls     []backendCall
}

func (f *fakeBackend) Search(ctx context.Context, req contractx.SearchRequest) ([]contractx.RetrievedItem, error) {
	f.calls = append(f.calls, backendCall{req: req})
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		return nil, nil
	}
	return f.responses[idx], nil
}

func item(id, content string, tags ...string) contractx.RetrievedItem {
	return contractx.RetrievedItem{ID: id, Content: content, Tags: tags}
}

func TestMemoryThreeTierOrderAndDedup(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		responses: [][]contractx.RetrievedItem{
			// tier 1: recent, chronological
			{item("m1", "hi there", "user"), item("m2", "hello!", "assistant")},
			// tier 2: in-conversation semantic; m2 is a duplicate
			{item("m2", "hello!"), item("m3", "we were discussing budgets")},
			// tier 3: cross-session; m3 is a duplicate
			{item("m3", "we were discussing budgets"), item("m4", "user prefers terse answers")},
		},
	}
	u := newMemoryUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{
		UserID:         "u1",
		ConversationID: "c1",
		Query:          "budgets",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	gotIDs := make([]string, 0, len(items))
	for _, it := range items {
		gotIDs = append(gotIDs, it.ID)
	}
	want := []string{"m1", "m2", "m3", "m4"}
	if strings.Join(gotIDs, ",") != strings.Join(want, ",") {
		t.Fatalf("merged ids = %v, want %v", gotIDs, want)
	}

	if len(backend.calls) != 3 {
		t.Fatalf("backend calls = %d, want 3", len(backend.calls))
	}
	// tier 1 must be a recency read: no query, conversation-scoped
	if backend.calls[0].req.Query != "" {
		t.Fatalf("tier 1 query = %q, want empty", backend.calls[0].req.Query)
	}
	if got := backend.calls[0].req.Tags; len(got) != 1 || got[0] != "conversation_c1" {
		t.Fatalf("tier 1 tags = %v", got)
	}
	// tier 2 is semantic within the conversation
	if backend.calls[1].req.Query != "budgets" {
		t.Fatalf("tier 2 query = %q", backend.calls[1].req.Query)
	}
	// tier 3 is user-scoped and excludes the active conversation
	if got := backend.calls[2].req.Tags; len(got) != 1 || got[0] != "user_u1" {
		t.Fatalf("tier 3 tags = %v", got)
	}
	if got := backend.calls[2].req.ExcludeTags; len(got) != 1 || got[0] != "conversation_c1" {
		t.Fatalf("tier 3 exclude tags = %v", got)
	}
}

func TestMemoryFormatSections(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		responses: [][]contractx.RetrievedItem{
			{item("m1", "how do I reset my password?", "user")},
			{item("m2", "password policy discussion")},
			{item("m3", "user works on the billing team")},
		},
	}
	u := newMemoryUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{
		UserID:         "u1",
		ConversationID: "c1",
		Query:          "password",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	text := u.Format(items)
	for _, section := range []string{
		"=== RECENT CONVERSATION ===",
		"=== RELEVANT FROM THIS CONVERSATION ===",
		"=== RELEVANT FROM PAST CONVERSATIONS ===",
	} {
		if !strings.Contains(text, section) {
			t.Fatalf("Format() missing section %q in:\n%s", section, text)
		}
	}
	if !strings.Contains(text, "user: how do I reset my password?") {
		t.Fatalf("Format() missing role-tagged recent line in:\n%s", text)
	}
}

func TestMemoryBackendErrorDegradesToEmpty(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{err: errors.New("connection refused")}
	u := newMemoryUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{
		UserID:         "u1",
		ConversationID: "c1",
		Query:          "anything",
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want graceful empty", err)
	}
	if len(items) != 0 {
		t.Fatalf("Retrieve() = %d items, want 0", len(items))
	}
}

func TestMemoryWithoutUserIsEmpty(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	u := newMemoryUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{Query: "anything"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(items) != 0 || len(backend.calls) != 0 {
		t.Fatalf("expected no retrieval without a user, got items=%d calls=%d", len(items), len(backend.calls))
	}
}

func TestMemoryWithoutConversationSkipsConversationTiers(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		responses: [][]contractx.RetrievedItem{
			{item("m1", "older discussion")},
		},
	}
	u := newMemoryUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{UserID: "u1", Query: "topic"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("backend calls = %d, want 1 (cross-session only)", len(backend.calls))
	}
	if len(backend.calls[0].req.ExcludeTags) != 0 {
		t.Fatalf("exclude tags = %v, want none", backend.calls[0].req.ExcludeTags)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
}

func TestKnowledgeRetrieveScopesGlobal(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		responses: [][]contractx.RetrievedItem{
			{
				{
					ID:      "d1",
					Content: "Employees may work remotely up to three days a week.",
					Tags:    []string{"global_knowledge", "category_hr"},
					Metadata: map[string]any{
						"doc_id": "HR-104",
						"title":  "Remote Work Policy",
					},
				},
			},
		},
	}
	u := newKnowledgeUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{Query: "remote work policy"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("backend calls = %d, want 1", len(backend.calls))
	}
	if got := backend.calls[0].req.Tags; len(got) != 1 || got[0] != "global_knowledge" {
		t.Fatalf("tags = %v", got)
	}

	text := u.Format(items)
	if !strings.Contains(text, "[HR] HR-104 - Remote Work Policy") {
		t.Fatalf("Format() header missing in:\n%s", text)
	}
	if !strings.Contains(text, "three days a week") {
		t.Fatalf("Format() content missing in:\n%s", text)
	}
}

func TestKnowledgeCategoryFilter(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	u := newKnowledgeUnit(backend)

	if _, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{Query: "q", Category: "HR"}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got := backend.calls[0].req.Tags; len(got) != 2 || got[1] != "category_hr" {
		t.Fatalf("tags = %v, want category filter", got)
	}
}

func TestKnowledgeBackendErrorDegradesToEmpty(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{err: errors.New("timeout")}
	u := newKnowledgeUnit(backend)

	items, err := u.Retrieve(context.Background(), contractx.RetrievalQuery{Query: "q"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want graceful empty", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}
