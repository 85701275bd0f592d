package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vodstream/searchgateway/internal/auth"
	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
	"vodstream/searchgateway/internal/search"
)

type countingProvider struct {
	stubProvider
	calls int
}

func (p *countingProvider) Search(ctx context.Context, query string) ([]domain.Item, error) {
	p.calls++
	return p.stubProvider.Search(ctx, query)
}

// Full flow: first batch request hits the provider, the second is served
// from the shared result cache without touching it.
func TestSearchFlowWithCache(t *testing.T) {
	provider := &countingProvider{stubProvider: stubProvider{
		key: "alpha", name: "Alpha",
		items: []domain.Item{testItem("alpha", "1", "庆余年")},
	}}

	policy := filter.Compile(filter.Config{Version: "e2e-v1"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := search.NewResultCache(search.NewMemoryStore(), time.Minute, logger)
	service := search.NewService(policy, 2*time.Second,
		search.WithLogger(logger),
		search.WithCache(cache),
	)
	handler := NewServer(service, &stubRegistry{providers: []search.Provider{provider}},
		auth.NewTokenGate(""), logger).Handler()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=庆余年", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if results := decodeResults(t, rec.Body); len(results) != 1 {
			t.Fatalf("request %d: unexpected results %+v", i+1, results)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected the second request to be a cache hit, got %d provider calls", provider.calls)
	}
}
