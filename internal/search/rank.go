package search

import (
	"sort"
	"strings"

	"vodstream/searchgateway/internal/domain"
)

// Relevance scores. Exact beats prefix/suffix beats token overlap; anything
// else keeps the baseline and therefore its discovery order.
const (
	scoreExact    = 2.0
	scoreAffix    = 1.8
	scoreOverlap  = 1.5
	scoreBaseline = 1.0
)

// querySeparators split a query into tokens: space, colon (ASCII and
// full-width), middle dot, ideographic comma, hyphen.
func querySeparators(r rune) bool {
	switch r {
	case ' ', ':', '：', '·', '、', '-', '－':
		return true
	}
	return false
}

func queryTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), querySeparators)
	out := fields[:0]
	for _, field := range fields {
		if len([]rune(field)) > 1 {
			out = append(out, field)
		}
	}
	return out
}

// Rank orders items by relevance to the query. The sort is stable and
// deterministic: equal scores keep discovery order. The input slice is left
// untouched.
func Rank(items []domain.Item, query string) []domain.Item {
	if len(items) <= 1 {
		return append([]domain.Item{}, items...)
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))
	tokens := queryTokens(queryLower)

	type scored struct {
		item  domain.Item
		score float64
	}
	entries := make([]scored, len(items))
	for i, item := range items {
		entries[i] = scored{item: item, score: relevanceScore(item.Title, queryLower, tokens)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	ranked := make([]domain.Item, len(entries))
	for i, entry := range entries {
		ranked[i] = entry.item
	}
	return ranked
}

func relevanceScore(title, queryLower string, tokens []string) float64 {
	titleLower := strings.ToLower(strings.TrimSpace(title))
	if titleLower == "" || queryLower == "" {
		return scoreBaseline
	}
	if titleLower == queryLower {
		return scoreExact
	}
	if strings.HasPrefix(titleLower, queryLower) || strings.HasSuffix(titleLower, queryLower) {
		return scoreAffix
	}
	for _, token := range tokens {
		if strings.Contains(titleLower, token) {
			return scoreOverlap
		}
	}
	return scoreBaseline
}

// ScoreText scores an arbitrary candidate string the same way titles are
// scored; suggestion generation reuses it.
func ScoreText(text, query string) float64 {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	return relevanceScore(text, queryLower, queryTokens(queryLower))
}

// TierFor maps a score onto the exact/related/suggestion tiers.
func TierFor(score float64) domain.SuggestionType {
	switch {
	case score >= scoreExact:
		return domain.SuggestionExact
	case score >= scoreOverlap:
		return domain.SuggestionRelated
	default:
		return domain.SuggestionSuggestion
	}
}
