package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
	"vodstream/searchgateway/internal/metrics"
)

// Stream is the incremental facade over Aggregate. It emits a start event,
// then one source_result or source_error per dispatched provider as each
// settles, then exactly one complete event. When ctx is cancelled the
// channel closes without further events; late provider completions are
// discarded silently.
//
// The stream bypasses the cache read: per-provider attribution cannot be
// replayed faithfully from a flattened cached payload. The merged final
// result is still written to the cache when non-empty.
func (s *Service) Stream(ctx context.Context, query string, providers []Provider) <-chan domain.SearchEvent {
	events := make(chan domain.SearchEvent, 8)

	query = strings.TrimSpace(query)
	dispatch := s.dispatchable(providers)
	if filter.QueryBlocked(query, s.policy) {
		metrics.QueryBlockedTotal.Inc()
		// Indistinguishable from a run with no providers enabled.
		dispatch = nil
	}

	go s.runStream(ctx, query, dispatch, events)
	return events
}

func (s *Service) runStream(ctx context.Context, query string, dispatch []Provider, events chan<- domain.SearchEvent) {
	defer close(events)

	emit := func(event domain.SearchEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	start := domain.NewEvent(domain.EventStart)
	start.Query = query
	start.TotalSources = len(dispatch)
	if !emit(start) {
		return
	}

	startedAt := time.Now()
	merged, settled, failed := s.fanOut(ctx, query, dispatch, func(result guardResult, filtered []domain.Item) {
		info := result.provider.Info()
		if result.err != nil {
			event := domain.NewEvent(domain.EventSourceError)
			event.Source = info.Key
			event.SourceName = info.Name
			event.Error = result.err.Error()
			emit(event)
			return
		}
		event := domain.NewEvent(domain.EventSourceResult)
		event.Source = info.Key
		event.SourceName = info.Name
		event.Results = Rank(filtered, query)
		emit(event)
	})

	if ctx.Err() != nil {
		// Consumer gone: discard whatever settled after cancellation.
		s.logger.Debug("stream cancelled", slog.String("query", truncateForLog(query)))
		return
	}

	items := Rank(filter.Apply(dedupe(merged), s.policy), query)
	if len(items) > 0 {
		fingerprint := Fingerprint(query, providerKeys(dispatch), s.policy.Version())
		s.cache.Store(ctx, fingerprint, items)
	}

	complete := domain.NewEvent(domain.EventComplete)
	complete.TotalResults = len(items)
	complete.CompletedSources = settled
	emit(complete)

	s.logger.Info("stream search completed",
		slog.String("query", truncateForLog(query)),
		slog.Int("providers", len(dispatch)),
		slog.Int("failed", failed),
		slog.Int("totalResults", len(items)),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)
}
