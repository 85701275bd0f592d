package search

import (
	"sort"
	"strings"
	"time"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/metrics"
)

// providerStats is observability-only bookkeeping. The orchestrator never
// consults it when deciding what to dispatch: a provider that failed the
// last request is queried again on the next one.
type providerStats struct {
	lastError     string
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastLatency   time.Duration
	lastTimeout   bool
	lastQuery     string
	totalRequests int64
	totalFailures int64
	timeoutCount  int64
}

func (s *Service) recordProviderResult(provider Provider, query string, err error, latency time.Duration) {
	key := strings.ToLower(strings.TrimSpace(provider.Key()))
	if key == "" {
		return
	}

	s.diagMu.Lock()
	defer s.diagMu.Unlock()

	stats := s.diag[key]
	if stats == nil {
		stats = &providerStats{}
		s.diag[key] = stats
	}
	now := time.Now()
	stats.totalRequests++
	stats.lastQuery = truncateForLog(query)
	if latency > 0 {
		stats.lastLatency = latency
		metrics.ProviderRequestDuration.WithLabelValues(key).Observe(latency.Seconds())
	}
	stats.lastTimeout = isTimeoutLikeError(err)
	if stats.lastTimeout {
		stats.timeoutCount++
	}

	if err == nil {
		stats.lastError = ""
		stats.lastSuccessAt = now
		metrics.ProviderRequestsTotal.WithLabelValues(key, "ok").Inc()
		return
	}

	stats.totalFailures++
	stats.lastFailureAt = now
	stats.lastError = err.Error()
	status := "error"
	if stats.lastTimeout {
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(key, status).Inc()
}

// ProviderDiagnostics snapshots the per-provider counters for the health
// endpoint, sorted by key.
func (s *Service) ProviderDiagnostics(providers []Provider) []domain.ProviderDiagnostics {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()

	items := make([]domain.ProviderDiagnostics, 0, len(providers))
	for _, provider := range providers {
		info := provider.Info()
		item := domain.ProviderDiagnostics{
			Key:  info.Key,
			Name: info.Name,
		}
		if stats := s.diag[strings.ToLower(strings.TrimSpace(info.Key))]; stats != nil {
			item.LastError = stats.lastError
			if !stats.lastSuccessAt.IsZero() {
				at := stats.lastSuccessAt
				item.LastSuccessAt = &at
			}
			if !stats.lastFailureAt.IsZero() {
				at := stats.lastFailureAt
				item.LastFailureAt = &at
			}
			item.LastLatencyMS = stats.lastLatency.Milliseconds()
			item.LastTimeout = stats.lastTimeout
			item.LastQuery = stats.lastQuery
			item.TotalRequests = stats.totalRequests
			item.TotalFailures = stats.totalFailures
			item.TimeoutCount = stats.timeoutCount
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items
}
