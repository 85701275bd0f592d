package search

import (
	"context"
	"sort"
	"strings"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
)

const maxSuggestions = 8

// Suggest derives query suggestions from the first enabled provider's
// titles: titles are split into tokens, tokens containing the query are
// scored with the ranking tiers, and anything matching the blocklist is
// dropped. A blocked or empty query yields no suggestions.
func (s *Service) Suggest(ctx context.Context, query string, providers []Provider) []domain.Suggestion {
	query = strings.TrimSpace(query)
	if query == "" || filter.QueryBlocked(query, s.policy) {
		return []domain.Suggestion{}
	}

	dispatch := s.dispatchable(providers)
	if len(dispatch) == 0 {
		return []domain.Suggestion{}
	}

	first := dispatch[0]
	result := s.guard(ctx, first, query)
	s.recordProviderResult(first, query, result.err, result.elapsed)
	if result.err != nil {
		return []domain.Suggestion{}
	}

	queryLower := strings.ToLower(query)
	seen := make(map[string]struct{})
	var candidates []string
collect:
	for _, item := range filter.Apply(result.items, s.policy) {
		for _, word := range strings.FieldsFunc(item.Title, querySeparators) {
			word = strings.TrimSpace(word)
			if len([]rune(word)) <= 1 {
				continue
			}
			if !strings.Contains(strings.ToLower(word), queryLower) {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			candidates = append(candidates, word)
			if len(candidates) >= maxSuggestions {
				break collect
			}
		}
	}

	suggestions := make([]domain.Suggestion, 0, len(candidates))
	for _, word := range candidates {
		if filter.QueryBlocked(word, s.policy) {
			continue
		}
		score := ScoreText(word, query)
		suggestions = append(suggestions, domain.Suggestion{
			Text:  word,
			Type:  TierFor(score),
			Score: score,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions
}
