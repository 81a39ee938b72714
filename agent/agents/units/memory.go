package units

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chorusml/chorus/agent/contract"
)

const (
	userTagPrefix         = "user_"
	conversationTagPrefix = "conversation_"

	tierTagRecent       = "tier_recent"
	tierTagConversation = "tier_conversation"
	tierTagGlobal       = "tier_global"

	defaultRecentTopK       = 5
	defaultConversationTopK = 10
	defaultCrossSessionTopK = 15
)

// memoryUnit retrieves the user's conversational history in three tiers,
// applied in precedence order and merged with de-duplication:
//
//  1. recent messages of the active conversation, chronological
//  2. semantically ranked messages within the active conversation
//  3. semantically ranked messages across all of the user's conversations
//
// An item surfaced by an earlier tier never reappears in a later one.
type memoryUnit struct {
	backend          contractx.SearchBackend
	recentTopK       int
	conversationTopK int
	crossSessionTopK int
}

func newMemoryUnit(backend contractx.SearchBackend) *memoryUnit {
	return &memoryUnit{
		backend:          backend,
		recentTopK:       defaultRecentTopK,
		conversationTopK: defaultConversationTopK,
		crossSessionTopK: defaultCrossSessionTopK,
	}
}

func (u *memoryUnit) Name() contractx.UnitName {
	return contractx.UnitMemory
}

func (u *memoryUnit) Retrieve(ctx context.Context, q contractx.RetrievalQuery) ([]contractx.RetrievedItem, error) {
	if strings.TrimSpace(q.UserID) == "" {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var merged []contractx.RetrievedItem

	convTag := ""
	if strings.TrimSpace(q.ConversationID) != "" {
		convTag = conversationTagPrefix + q.ConversationID
	}

	// Tier 1: recency signal, not similarity-ranked. An empty query asks the
	// backend for chronological order.
	if convTag != "" {
		recent := u.search(ctx, contractx.SearchRequest{
			TopK: u.recentTopK,
			Tags: []string{convTag},
		})
		merged = appendTier(merged, seen, recent, tierTagRecent)
	}

	// Tier 2: topic signal within the current thread.
	if convTag != "" {
		inConv := u.search(ctx, contractx.SearchRequest{
			Query: q.Query,
			TopK:  u.conversationTopK,
			Tags:  []string{convTag},
		})
		merged = appendTier(merged, seen, inConv, tierTagConversation)
	}

	// Tier 3: cross-session recall over everything the user has discussed.
	crossReq := contractx.SearchRequest{
		Query: q.Query,
		TopK:  u.crossSessionTopK,
		Tags:  []string{userTagPrefix + q.UserID},
	}
	if convTag != "" {
		crossReq.ExcludeTags = []string{convTag}
	}
	cross := u.search(ctx, crossReq)
	merged = appendTier(merged, seen, cross, tierTagGlobal)

	return merged, nil
}

// search is one tier's backend call: unavailability degrades that tier to
// empty without failing the others.
func (u *memoryUnit) search(ctx context.Context, req contractx.SearchRequest) []contractx.RetrievedItem {
	items, err := u.backend.Search(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("unit", string(u.Name())).Msg("memory tier degraded to empty")
		return nil
	}
	return items
}

func appendTier(
	merged []contractx.RetrievedItem,
	seen map[string]struct{},
	items []contractx.RetrievedItem,
	tierTag string,
) []contractx.RetrievedItem {
	for _, item := range items {
		if item.ID != "" {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
		}
		item.Tags = append(append([]string(nil), item.Tags...), tierTag)
		merged = append(merged, item)
	}
	return merged
}

// Format renders tiers as labeled sections so downstream prompts can tell a
// verbatim recent exchange from older recalled material.
func (u *memoryUnit) Format(items []contractx.RetrievedItem) string {
	var recent, inConv, cross []string
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		switch {
		case hasTag(item, tierTagRecent):
			recent = append(recent, turnRole(item)+": "+content)
		case hasTag(item, tierTagConversation):
			inConv = append(inConv, "- "+content)
		default:
			cross = append(cross, "- "+content)
		}
	}

	var sections []string
	if len(recent) > 0 {
		sections = append(sections, "=== RECENT CONVERSATION ===\n"+strings.Join(recent, "\n"))
	}
	if len(inConv) > 0 {
		sections = append(sections, "=== RELEVANT FROM THIS CONVERSATION ===\n"+strings.Join(inConv, "\n"))
	}
	if len(cross) > 0 {
		sections = append(sections, "=== RELEVANT FROM PAST CONVERSATIONS ===\n"+strings.Join(cross, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func hasTag(item contractx.RetrievedItem, tag string) bool {
	for _, t := range item.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func turnRole(item contractx.RetrievedItem) string {
	for _, t := range item.Tags {
		if t == "user" || t == "assistant" {
			return t
		}
	}
	return "unknown"
}
