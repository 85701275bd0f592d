package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
)

var (
	ErrInvalidQuery    = errors.New("query is required")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider is one upstream content source. Search may hang; the guard
// imposes the timeout, never the adapter.
type Provider interface {
	Key() string
	Info() domain.ProviderInfo
	Search(ctx context.Context, query string) ([]domain.Item, error)
}

// Service is the fan-out orchestrator. One orchestration runs per request;
// the only state shared across requests is the result cache and the
// per-provider diagnostics, each behind its own lock.
type Service struct {
	policy  *filter.Policy
	cache   *ResultCache
	timeout time.Duration
	logger  *slog.Logger

	diagMu sync.Mutex
	diag   map[string]*providerStats
}

type ServiceOption func(*Service)

func WithCache(cache *ResultCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(policy *filter.Policy, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	svc := &Service{
		policy:  policy,
		timeout: timeout,
		logger:  slog.Default(),
		diag:    make(map[string]*providerStats),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Policy() *filter.Policy { return s.policy }

// dispatchable drops restricted providers before fan-out; their items would
// be vetoed by filter stage 1 anyway, so querying them is wasted work.
func (s *Service) dispatchable(providers []Provider) []Provider {
	out := make([]Provider, 0, len(providers))
	seen := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(provider.Key()))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if s.policy.ProviderRestricted(key) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, provider)
	}
	return out
}
