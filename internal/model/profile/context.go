package profile

import "strings"

// Per-category cap after merging newly learned items into the context.
const maxItemsPerCategory = 10

// Learned holds items extracted from one conversation exchange. The same
// shape doubles as the persisted long-term context, where each category is
// capped at ten entries.
type Learned struct {
	Topics      []string `json:"topics"`
	Preferences []string `json:"preferences"`
	Facts       []string `json:"facts"`
	Interests   []string `json:"interests"`
}

// IsEmpty reports whether no category carries any item.
func (l Learned) IsEmpty() bool {
	return len(l.Topics) == 0 && len(l.Preferences) == 0 && len(l.Facts) == 0 && len(l.Interests) == 0
}

// Merge unions the newly learned items into ctx. Duplicates (exact string
// match) are dropped, insertion order is preserved, and each category keeps
// at most ten entries. Merging the same learnings twice yields the same
// result as merging them once.
func (l Learned) Merge(incoming Learned) Learned {
	return Learned{
		Topics:      mergeCategory(l.Topics, incoming.Topics),
		Preferences: mergeCategory(l.Preferences, incoming.Preferences),
		Facts:       mergeCategory(l.Facts, incoming.Facts),
		Interests:   mergeCategory(l.Interests, incoming.Interests),
	}
}

// Render projects the context into the labeled-lines text embedded in the
// system prompt, e.g. "Topics: go, music\nFacts: lives in Madrid". Empty
// categories are omitted; an empty context renders as "".
func (l Learned) Render() string {
	sections := make([]string, 0, 4)
	if len(l.Topics) > 0 {
		sections = append(sections, "Topics: "+strings.Join(l.Topics, ", "))
	}
	if len(l.Preferences) > 0 {
		sections = append(sections, "Preferences: "+strings.Join(l.Preferences, ", "))
	}
	if len(l.Facts) > 0 {
		sections = append(sections, "Facts: "+strings.Join(l.Facts, ", "))
	}
	if len(l.Interests) > 0 {
		sections = append(sections, "Interests: "+strings.Join(l.Interests, ", "))
	}
	return strings.Join(sections, "\n")
}

func mergeCategory(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, lists := range [][]string{existing, incoming} {
		for _, item := range lists {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			merged = append(merged, item)
			if len(merged) == maxItemsPerCategory {
				return merged
			}
		}
	}
	return merged
}
