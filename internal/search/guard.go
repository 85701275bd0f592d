package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"vodstream/searchgateway/internal/domain"
)

// Soft per-provider failure classes. They attribute a failure to one
// provider and never abort the enclosing aggregation.
var (
	ErrProviderTimeout = errors.New("provider timeout")
	ErrProviderFailure = errors.New("provider failure")
)

// guardResult is what one settled provider contributes to the merge.
type guardResult struct {
	provider Provider
	items    []domain.Item
	err      error
	elapsed  time.Duration
}

// guard races the provider adapter against the configured timeout and
// normalizes the outcome. No retries: a failed provider simply contributes
// zero items to this request.
func (s *Service) guard(ctx context.Context, provider Provider, query string) guardResult {
	guardCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startedAt := time.Now()
	items, err := provider.Search(guardCtx, query)
	elapsed := time.Since(startedAt)

	result := guardResult{provider: provider, elapsed: elapsed}
	if err != nil {
		result.err = normalizeProviderError(provider.Key(), err)
		return result
	}

	info := provider.Info()
	normalized := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		if item.SourceKey == "" {
			item.SourceKey = provider.Key()
		}
		if item.SourceName == "" {
			item.SourceName = info.Name
		}
		normalized = append(normalized, item)
	}
	result.items = normalized
	return result
}

// normalizeProviderError folds adapter-specific failures into the two soft
// classes so callers can attribute timeouts without inspecting raw errors.
func normalizeProviderError(providerKey string, err error) error {
	if isTimeoutLikeError(err) {
		return fmt.Errorf("%s: %w", providerKey, ErrProviderTimeout)
	}
	return fmt.Errorf("%s: %w: %s", providerKey, ErrProviderFailure, err.Error())
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}
