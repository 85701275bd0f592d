package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
	"vodstream/searchgateway/internal/metrics"
)

// maxConcurrentProviders bounds in-flight provider queries when many
// sources are configured for one deployment.
const maxConcurrentProviders = 10

// Aggregate fans one query out to every dispatchable provider, merges the
// settled results, filters, dedupes, ranks, and returns one batch.
//
// A policy-rejected query returns an empty, nil-error result: it is a
// designed outcome, indistinguishable from a legitimately empty search.
// Per-provider failures are absorbed; only structural errors (empty query)
// reach the caller.
func (s *Service) Aggregate(ctx context.Context, query string, providers []Provider) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if filter.QueryBlocked(query, s.policy) {
		metrics.QueryBlockedTotal.Inc()
		return []domain.Item{}, nil
	}

	dispatch := s.dispatchable(providers)
	fingerprint := Fingerprint(query, providerKeys(dispatch), s.policy.Version())

	if cached, ok := s.cache.Lookup(ctx, fingerprint); ok {
		// The entry may predate a policy change within its TTL window:
		// re-filter, return the reduced view, leave the stored entry
		// untouched.
		return filter.Apply(cached, s.policy), nil
	}

	startedAt := time.Now()
	merged, settled, failed := s.fanOut(ctx, query, dispatch, nil)

	items := filter.Apply(dedupe(merged), s.policy)
	items = Rank(items, query)

	s.logger.Info("search aggregated",
		slog.String("query", truncateForLog(query)),
		slog.Int("providers", len(dispatch)),
		slog.Int("settled", settled),
		slog.Int("failed", failed),
		slog.Int("results", len(items)),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)

	if len(items) > 0 {
		s.cache.Store(ctx, fingerprint, items)
	}
	return items, nil
}

// AggregateOne queries a single named provider and keeps only items whose
// title exactly matches the query, filtered through the same pipeline.
func (s *Service) AggregateOne(ctx context.Context, query string, provider Provider) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if provider == nil {
		return nil, ErrUnknownProvider
	}
	if filter.QueryBlocked(query, s.policy) || s.policy.ProviderRestricted(provider.Key()) {
		return []domain.Item{}, nil
	}

	result := s.guard(ctx, provider, query)
	s.recordProviderResult(provider, query, result.err, result.elapsed)
	if result.err != nil {
		return nil, result.err
	}

	exact := make([]domain.Item, 0, len(result.items))
	for _, item := range result.items {
		if item.Title == query {
			exact = append(exact, item)
		}
	}
	return filter.Apply(dedupe(exact), s.policy), nil
}

// onSettle, when non-nil, observes each provider as it settles while the
// merge lock is NOT held. Used by the streaming facade.
type settleFunc func(result guardResult, filtered []domain.Item)

// fanOut runs one guarded query per provider with bounded concurrency and
// merges successful results into an append-only accumulator. "All settled"
// derives from the WaitGroup join, never from a manual counter.
func (s *Service) fanOut(ctx context.Context, query string, providers []Provider, onSettle settleFunc) (merged []domain.Item, settled, failed int) {
	if len(providers) == 0 {
		return nil, 0, 0
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(maxConcurrentProviders)
	var wg sync.WaitGroup

	for _, provider := range providers {
		wg.Add(1)
		go func(current Provider) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled before this provider was dispatched.
				mu.Lock()
				settled++
				failed++
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			result := s.guard(ctx, current, query)
			s.recordProviderResult(current, query, result.err, result.elapsed)

			var filtered []domain.Item
			if result.err == nil {
				filtered = filter.Apply(result.items, s.policy)
				if dropped := len(result.items) - len(filtered); dropped > 0 {
					metrics.ItemsFilteredTotal.Add(float64(dropped))
				}
			}

			mu.Lock()
			settled++
			if result.err != nil {
				failed++
			} else {
				merged = append(merged, filtered...)
			}
			mu.Unlock()

			if onSettle != nil {
				onSettle(result, filtered)
			}
		}(provider)
	}
	wg.Wait()
	return merged, settled, failed
}

// dedupe collapses items with an identical (sourceKey, id) pair, keeping
// first occurrence. The same id under two different sources is two items.
func dedupe(items []domain.Item) []domain.Item {
	if len(items) <= 1 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		key := item.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func providerKeys(providers []Provider) []string {
	keys := make([]string, 0, len(providers))
	for _, provider := range providers {
		keys = append(keys, provider.Key())
	}
	return keys
}

func truncateForLog(value string) string {
	const limit = 80
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
