package recall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchSendsQueryAndAuth(t *testing.T) {
	t.Parallel()

	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(searchResponse{
			Results: []wireItem{
				{ID: "m1", Content: "prefers dark mode", Tags: []string{"preference"}, Score: 0.91},
			},
		})
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL, Token: "secret-token"})
	items, err := client.Search(context.Background(), SearchRequest{
		Query:       "user preferences",
		TopK:        5,
		Tags:        []string{"user_u1", "preference"},
		ExcludeTags: []string{"conversation_c1"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotReq.URL.Path != "/recall" {
		t.Fatalf("unexpected path: %s", gotReq.URL.Path)
	}
	q := gotReq.URL.Query()
	if q.Get("query") != "user preferences" {
		t.Fatalf("unexpected query param: %q", q.Get("query"))
	}
	if q.Get("limit") != "5" {
		t.Fatalf("unexpected limit param: %q", q.Get("limit"))
	}
	if q.Get("tags") != "user_u1,preference" {
		t.Fatalf("unexpected tags param: %q", q.Get("tags"))
	}
	if q.Get("exclude_tags") != "conversation_c1" {
		t.Fatalf("unexpected exclude_tags param: %q", q.Get("exclude_tags"))
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", got)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "m1" || items[0].Content != "prefers dark mode" || items[0].Score != 0.91 {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestSearchOmitsEmptyParams(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if _, ok := q["query"]; ok {
			t.Error("empty query must not be sent")
		}
		if _, ok := q["exclude_tags"]; ok {
			t.Error("empty exclude_tags must not be sent")
		}
		_ = json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	if _, err := client.Search(context.Background(), SearchRequest{TopK: 3, Tags: []string{"t"}}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
}

func TestSearchDecodesNestedMemoryPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":"m2","score":0.5,"memory":{"content":"asked about pricing","tags":["topic"]}}]}`))
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	items, err := client.Search(context.Background(), SearchRequest{Query: "pricing"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Content != "asked about pricing" {
		t.Fatalf("nested content not lifted: %+v", items[0])
	}
	if len(items[0].Tags) != 1 || items[0].Tags[0] != "topic" {
		t.Fatalf("nested tags not lifted: %+v", items[0])
	}
}

func TestSearchErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	_, err := client.Search(context.Background(), SearchRequest{Query: "anything"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSearchServiceLevelError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[],"error":"index rebuilding"}`))
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	_, err := client.Search(context.Background(), SearchRequest{Query: "anything"})
	if err == nil || err.Error() != "index rebuilding" {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestStoreSendsBody(t *testing.T) {
	t.Parallel()

	var got StoreRequest
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL})
	err := client.Store(context.Background(), StoreRequest{
		Content:    "user asked about the refund policy",
		Type:       "conversation",
		Importance: 0.7,
		Tags:       []string{"user_u1", "conversation_c1"},
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/memory" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if got.Content != "user asked about the refund policy" {
		t.Fatalf("unexpected content: %q", got.Content)
	}
	if got.Importance != 0.7 || got.Type != "conversation" {
		t.Fatalf("unexpected store request: %+v", got)
	}
}

func TestStoreRejectsEmptyContent(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{URL: "http://localhost:9"})
	if err := client.Store(context.Background(), StoreRequest{Content: "   "}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "   "}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recall" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL + "/"})
	if _, err := client.Search(context.Background(), SearchRequest{Query: "x"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
}
