// Package filter implements the layered content-policy pipeline. The
// pipeline is pure: no I/O, no stored state beyond the compiled Policy,
// and Apply(Apply(x)) == Apply(x) for every policy.
package filter

import (
	"strings"

	"vodstream/searchgateway/internal/domain"
)

// Stage identifies which pipeline stage produced a decision.
type Stage string

const (
	StageProviderVeto Stage = "provider_veto"
	StageCategoryVeto Stage = "category_veto"
	StageWhitelist    Stage = "whitelist"
	StageBlocklist    Stage = "blocklist"
	StageNone         Stage = "none"
)

// Decision is the per-item outcome, kept only for tests and logging.
type Decision struct {
	Pass  bool
	Stage Stage
	Rule  string
}

// Apply runs every item through the pipeline and returns the survivors in
// their original order. The input slice is never modified.
func Apply(items []domain.Item, policy *Policy) []domain.Item {
	if len(items) == 0 {
		return []domain.Item{}
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if Decide(item, policy).Pass {
			out = append(out, item)
		}
	}
	return out
}

// Decide evaluates the stages in their fixed order. Each veto stage
// short-circuits; no later stage can un-reject, and only the whitelist
// override (stage 3) can skip the blocklist (stage 4).
func Decide(item domain.Item, policy *Policy) Decision {
	// Stage 1: provider-level veto overrides everything, including the
	// whitelist.
	if policy.ProviderRestricted(item.SourceKey) {
		return Decision{Pass: false, Stage: StageProviderVeto, Rule: item.SourceKey}
	}

	category := Normalize(item.Category)

	// Stage 2: category classification veto, toggle-controlled.
	if policy.categoryFilter {
		for _, term := range policy.classificationTerms {
			if strings.Contains(category, term) {
				return Decision{Pass: false, Stage: StageCategoryVeto, Rule: term}
			}
		}
	}

	// Stage 3: exact-title whitelist override skips the blocklist.
	if policy.titleWhitelisted(item.Title) {
		return Decision{Pass: true, Stage: StageWhitelist}
	}

	// Stage 4: keyword blocklist over title and category.
	title := Normalize(item.Title)
	for _, term := range policy.blockedTerms {
		if strings.Contains(title, term) || strings.Contains(category, term) {
			return Decision{Pass: false, Stage: StageBlocklist, Rule: term}
		}
	}

	return Decision{Pass: true, Stage: StageNone}
}

// QueryBlocked is the request-level short-circuit: a query containing a
// blocked substring makes the whole request return empty without touching
// any provider. With QueryWhitelistBypass enabled, a query that exactly
// equals a whitelisted title is allowed through anyway.
func QueryBlocked(query string, policy *Policy) bool {
	normalized := Normalize(query)
	if normalized == "" {
		return false
	}
	if policy.queryWhitelistBypass && policy.titleWhitelisted(query) {
		return false
	}
	for _, term := range policy.blockedTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}
