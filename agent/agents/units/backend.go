package units

import (
	"context"
	"fmt"

	contractx "github.com/chorusml/chorus/agent/contract"
	recallx "github.com/chorusml/chorus/pkg/recall"
)

// recallBackend adapts the recall HTTP client to the retrieval contract.
type recallBackend struct {
	client *recallx.Client
}

// NewRecallBackend wraps a recall client as the SearchBackend both retrieval
// units read from.
func NewRecallBackend(client *recallx.Client) contractx.SearchBackend {
	return &recallBackend{client: client}
}

func (b *recallBackend) Search(ctx context.Context, req contractx.SearchRequest) ([]contractx.RetrievedItem, error) {
	items, err := b.client.Search(ctx, recallx.SearchRequest{
		Query:       req.Query,
		TopK:        req.TopK,
		Tags:        req.Tags,
		ExcludeTags: req.ExcludeTags,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrievalUnavailable, err)
	}

	out := make([]contractx.RetrievedItem, 0, len(items))
	for _, item := range items {
		out = append(out, contractx.RetrievedItem{
			ID:       item.ID,
			Content:  item.Content,
			Tags:     item.Tags,
			Metadata: item.Metadata,
			Score:    item.Score,
		})
	}
	return out, nil
}
