package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

const (
	knowledgeTag      = "global_knowledge"
	categoryTagPrefix = "category_"

	defaultKnowledgeTopK = 5
)

// knowledgeUnit retrieves organization-wide documents: policies, internal
// docs. It never calls a generative model, and a backend failure degrades to
// an empty result so generative units fall back to no-context behavior.
type knowledgeUnit struct {
	backend contractx.SearchBackend
	topK    int
}

func newKnowledgeUnit(backend contractx.SearchBackend) *knowledgeUnit {
	return &knowledgeUnit{backend: backend, topK: defaultKnowledgeTopK}
}

func (u *knowledgeUnit) Name() contractx.UnitName {
	return contractx.UnitKnowledge
}

func (u *knowledgeUnit) Retrieve(ctx context.Context, q contractx.RetrievalQuery) ([]contractx.RetrievedItem, error) {
	tags := []string{knowledgeTag}
	if cat := strings.TrimSpace(q.Category); cat != "" {
		tags = append(tags, categoryTagPrefix+strings.ToLower(cat))
	}

	items, err := u.backend.Search(ctx, contractx.SearchRequest{
		Query: q.Query,
		TopK:  u.topK,
		Tags:  tags,
	})
	if err != nil {
		log.Warn().Err(err).Str("unit", string(u.Name())).Msg("knowledge retrieval degraded to empty")
		return nil, nil
	}
	return items, nil
}

// Format renders each document with its category, id and title header.
func (u *knowledgeUnit) Format(items []contractx.RetrievedItem) string {
	var parts []string
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}

		header := "[" + documentCategory(item) + "]"
		if docID, ok := item.Metadata["doc_id"].(string); ok && docID != "" {
			header += " " + docID
		}
		if title, ok := item.Metadata["title"].(string); ok && title != "" {
			header += " - " + title
		}
		parts = append(parts, fmt.Sprintf("%s\n%s", header, content))
	}
	return strings.Join(parts, "\n\n")
}

func documentCategory(item contractx.RetrievedItem) string {
	for _, tag := range item.Tags {
		if strings.HasPrefix(tag, categoryTagPrefix) {
			return strings.ToUpper(strings.TrimPrefix(tag, categoryTagPrefix))
		}
	}
	return "GENERAL"
}
